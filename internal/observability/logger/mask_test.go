package logger

import "testing"

func TestMaskAuthorization(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Bearer abcdef1234", "Bearer ****1234"},
		{"ub_0123456789abcdef", "****cdef"},
		{"", ""},
		{"abc", "****abc"},
	}
	for _, tc := range cases {
		if got := MaskAuthorization(tc.in); got != tc.want {
			t.Fatalf("MaskAuthorization(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("ub_deadbeefcafe"); got != "****cafe" {
		t.Fatalf("got %q", got)
	}
	if got := MaskAPIKey("  "); got != "" {
		t.Fatalf("got %q", got)
	}
}
