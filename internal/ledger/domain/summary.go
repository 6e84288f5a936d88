package domain

// SummaryStatus is a pure function of the collection rate.
type SummaryStatus string

const (
	SummaryStatusPending   SummaryStatus = "Pending"
	SummaryStatusPartial   SummaryStatus = "Partial"
	SummaryStatusCompleted SummaryStatus = "Completed"
	SummaryStatusNA        SummaryStatus = "N/A"
)

// Summary is the derived aggregate stored denormalized on the subject
// ledger head.
type Summary struct {
	TotalFees      float64       `json:"totalFees"`
	TotalPaid      float64       `json:"totalPaid"`
	Outstanding    float64       `json:"outstanding"`
	CollectionRate float64       `json:"collectionRate"`
	Status         SummaryStatus `json:"status"`
}

// ComputeSummary derives the summary from its two inputs. It performs no
// I/O and must be re-derived whenever either input changes; the stored
// head is never hand-edited.
//
// Invariants: outstanding = max(0, totalFees - totalPaid); status follows
// the collection rate (0% Pending, 0-100% Partial, >=100% Completed,
// both-zero N/A).
func ComputeSummary(totalFees, totalPaid float64) Summary {
	summary := Summary{
		TotalFees: totalFees,
		TotalPaid: totalPaid,
	}

	outstanding := totalFees - totalPaid
	if outstanding < 0 {
		outstanding = 0
	}
	summary.Outstanding = outstanding

	switch {
	case totalFees <= 0 && totalPaid <= 0:
		summary.CollectionRate = 0
		summary.Status = SummaryStatusNA
	case totalFees <= 0:
		summary.CollectionRate = 100
		summary.Status = SummaryStatusCompleted
	default:
		rate := totalPaid / totalFees * 100
		summary.CollectionRate = rate
		switch {
		case rate >= 100:
			summary.Status = SummaryStatusCompleted
		case rate > 0:
			summary.Status = SummaryStatusPartial
		default:
			summary.Status = SummaryStatusPending
		}
	}

	return summary
}
