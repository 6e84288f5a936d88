package events

// PaymentRecordedPayload captures the minimal data a notification
// dispatcher needs for a recorded recurring payment.
type PaymentRecordedPayload struct {
	PlanID        string  `json:"plan_id"`
	SubjectID     string  `json:"subject_id"`
	TransactionID string  `json:"transaction_id"`
	InvoiceNumber string  `json:"invoice_number"`
	PeriodNumber  int     `json:"period_number"`
	Amount        float64 `json:"amount"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p PaymentRecordedPayload) ToMap() map[string]any {
	return map[string]any{
		"plan_id":        p.PlanID,
		"subject_id":     p.SubjectID,
		"transaction_id": p.TransactionID,
		"invoice_number": p.InvoiceNumber,
		"period_number":  p.PeriodNumber,
		"amount":         p.Amount,
	}
}

// PlanOverduePayload captures the minimal data needed for an overdue
// reminder.
type PlanOverduePayload struct {
	PlanID    string `json:"plan_id"`
	SubjectID string `json:"subject_id"`
	DueDate   string `json:"due_date"`
	DaysLate  int    `json:"days_late"`
}

// ToMap converts the payload into an outbox-friendly map.
func (p PlanOverduePayload) ToMap() map[string]any {
	return map[string]any{
		"plan_id":    p.PlanID,
		"subject_id": p.SubjectID,
		"due_date":   p.DueDate,
		"days_late":  p.DaysLate,
	}
}
