package domain

import "testing"

func TestComputeSummary(t *testing.T) {
	tests := []struct {
		name            string
		totalFees       float64
		totalPaid       float64
		wantOutstanding float64
		wantRate        float64
		wantStatus      SummaryStatus
	}{
		{"fully collected", 1000, 1000, 0, 100, SummaryStatusCompleted},
		{"partially collected", 1000, 400, 600, 40, SummaryStatusPartial},
		{"nothing collected", 1000, 0, 1000, 0, SummaryStatusPending},
		{"no fees no payments", 0, 0, 0, 0, SummaryStatusNA},
		{"payments without fees", 0, 250, 0, 100, SummaryStatusCompleted},
		{"overpaid clamps outstanding", 500, 750, 0, 150, SummaryStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeSummary(tt.totalFees, tt.totalPaid)
			if got.Outstanding != tt.wantOutstanding {
				t.Errorf("outstanding = %.2f, want %.2f", got.Outstanding, tt.wantOutstanding)
			}
			if got.CollectionRate != tt.wantRate {
				t.Errorf("collection rate = %.2f, want %.2f", got.CollectionRate, tt.wantRate)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
		})
	}
}
