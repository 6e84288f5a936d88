package domain

import "strings"

// ValidateEntry checks the fields a ledger entry must carry before it is
// appended. Entries are immutable afterwards, so nothing gets fixed up
// later.
func ValidateEntry(entry *PaymentTransaction) error {
	if entry == nil {
		return ErrInvalidEntry
	}
	if strings.TrimSpace(entry.SubjectID) == "" {
		return ErrInvalidSubject
	}
	if entry.SubscriptionPlanID == 0 {
		return ErrInvalidEntry
	}
	if entry.Amount <= 0 {
		return ErrInvalidAmount
	}
	if entry.PeriodNumber <= 0 {
		return ErrInvalidEntry
	}
	if entry.PaidDate.IsZero() {
		return ErrInvalidEntry
	}
	if strings.TrimSpace(entry.InvoiceNumber) == "" {
		return ErrInvalidEntry
	}
	if strings.TrimSpace(entry.PaymentMode) == "" {
		return ErrInvalidEntry
	}
	switch entry.Status {
	case TransactionStatusConfirmed, TransactionStatusReversed:
	default:
		return ErrInvalidEntry
	}
	return nil
}
