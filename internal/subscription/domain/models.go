package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// PlanType is the recurring-payment shape of a billable enrollment.
type PlanType string

const (
	PlanTypeOneTime           PlanType = "ONE_TIME"
	PlanTypeMonthly           PlanType = "MONTHLY_SUBSCRIPTION"
	PlanTypeMonthlyDiscounted PlanType = "MONTHLY_SUBSCRIPTION_DISCOUNTED"
	PlanTypeEMI               PlanType = "EMI"
	PlanTypeCustom            PlanType = "CUSTOM"
)

// PlanStatus is the lifecycle state of a plan. CANCELLED and COMPLETED are
// terminal; plans are never physically deleted.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusPaused    PlanStatus = "PAUSED"
	PlanStatusCancelled PlanStatus = "CANCELLED"
	PlanStatusCompleted PlanStatus = "COMPLETED"
)

// BillingCycleDays is the fixed billing cycle length. Due dates are always
// paidDate + 30 days regardless of calendar month boundaries; downstream
// due-date reminders assume this, so it must not be "fixed" to
// calendar-month semantics.
const BillingCycleDays = 30

// AmountEpsilon is the tolerance for monetary comparisons. It absorbs
// binary floating representation error only; it is not approximate
// equality.
const AmountEpsilon = 0.01

// SubscriptionPlan is the ledger head tracking one subject's recurring
// billing state. Mutated only by the billing state machine; the version
// column is the optimistic guard that serializes concurrent charges for
// one plan.
type SubscriptionPlan struct {
	ID                snowflake.ID   `gorm:"primaryKey" json:"id"`
	TenantID          string         `gorm:"type:text;not null;index" json:"tenantId"`
	SubjectID         string         `gorm:"type:text;not null;index" json:"subjectId"`
	Code              string         `gorm:"type:text;not null" json:"code"`
	PlanType          PlanType       `gorm:"type:text;not null" json:"planType"`
	Status            PlanStatus     `gorm:"type:text;not null;default:'ACTIVE'" json:"status"`
	CurrentPeriod     int            `gorm:"not null;default:0" json:"currentPeriod"`
	CommitmentPeriods *int           `gorm:"column:commitment_periods" json:"commitmentPeriods,omitempty"`
	BaseAmount        float64        `gorm:"not null" json:"baseAmount"`
	DiscountedAmount  *float64       `gorm:"column:discounted_amount" json:"discountedAmount,omitempty"`
	TotalPaidAmount   float64        `gorm:"not null;default:0" json:"totalPaidAmount"`
	LastPaymentDate   *time.Time     `gorm:"column:last_payment_date" json:"lastPaymentDate,omitempty"`
	NextDueDate       *time.Time     `gorm:"column:next_due_date;index" json:"nextDueDate,omitempty"`
	PaymentRecordIDs  datatypes.JSON `gorm:"column:payment_record_ids;not null;default:'[]'" json:"paymentRecordIds"`
	AuditTrail        datatypes.JSON `gorm:"column:audit_trail;not null;default:'[]'" json:"auditTrail"`
	Version           int64          `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt         time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (SubscriptionPlan) TableName() string { return "subscription_plans" }

// AuditEntry is one append-only administrative record on a plan.
type AuditEntry struct {
	Action string    `json:"action"`
	Actor  string    `json:"actor"`
	At     time.Time `json:"at"`
	Detail string    `json:"detail,omitempty"`
}

var transitions = map[PlanStatus][]PlanStatus{
	PlanStatusActive:    {PlanStatusPaused, PlanStatusCancelled, PlanStatusCompleted},
	PlanStatusPaused:    {PlanStatusActive, PlanStatusCancelled},
	PlanStatusCancelled: {},
	PlanStatusCompleted: {},
}

// CanTransitionTo reports whether the state machine permits moving from s
// to target.
func (s PlanStatus) CanTransitionTo(target PlanStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s PlanStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// ExpectedAmount returns the charge the plan expects for the given period.
// For discounted monthly plans the discounted amount applies while the
// period is inside the commitment window; afterwards the base amount
// applies.
func (p *SubscriptionPlan) ExpectedAmount(period int) float64 {
	if p.PlanType == PlanTypeMonthlyDiscounted &&
		p.DiscountedAmount != nil &&
		p.CommitmentPeriods != nil &&
		period <= *p.CommitmentPeriods {
		return *p.DiscountedAmount
	}
	return p.BaseAmount
}

// AppendAudit returns the trail with one more entry. The stored trail is
// ordered and append-only.
func AppendAudit(trail datatypes.JSON, entry AuditEntry) (datatypes.JSON, error) {
	var entries []AuditEntry
	if len(trail) > 0 {
		if err := json.Unmarshal(trail, &entries); err != nil {
			return nil, err
		}
	}
	entries = append(entries, entry)
	encoded, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

// AuditEntries decodes the stored trail.
func (p *SubscriptionPlan) AuditEntries() ([]AuditEntry, error) {
	var entries []AuditEntry
	if len(p.AuditTrail) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(p.AuditTrail, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AppendPaymentRecordID returns the ordered payment-record refs with one
// more id.
func AppendPaymentRecordID(refs datatypes.JSON, id snowflake.ID) (datatypes.JSON, error) {
	var ids []string
	if len(refs) > 0 {
		if err := json.Unmarshal(refs, &ids); err != nil {
			return nil, err
		}
	}
	ids = append(ids, id.String())
	encoded, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
