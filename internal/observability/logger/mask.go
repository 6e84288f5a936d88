package logger

import "strings"

// MaskAuthorization masks a bearer credential, preserving the scheme so
// access logs still show which auth path a request took.
func MaskAuthorization(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	parts := strings.Fields(value)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return "Bearer " + maskLast4(parts[1])
	}
	return maskLast4(value)
}

// MaskAPIKey keeps only the trailing characters of a key so operators can
// correlate log lines against the key list without the log holding the
// credential.
func MaskAPIKey(value string) string {
	return maskLast4(strings.TrimSpace(value))
}

func maskLast4(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 4 {
		return "****" + value
	}
	return "****" + value[len(value)-4:]
}
