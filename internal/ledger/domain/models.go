package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TransactionStatus marks a ledger entry as a confirmed charge or a
// compensating reversal. Entries are immutable once created; corrections
// are new REVERSED entries, never in-place edits.
type TransactionStatus string

const (
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// PaymentTransaction is one immutable ledger entry. The unique
// (tenant, plan, period, status) index is the hard stop against two
// confirmed charges for the same billing period.
type PaymentTransaction struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	TenantID           string            `gorm:"type:text;not null;index;uniqueIndex:ux_payment_tx_plan_period,priority:1" json:"tenantId"`
	SubscriptionPlanID snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_payment_tx_plan_period,priority:2" json:"subscriptionPlanId"`
	PeriodNumber       int               `gorm:"not null;uniqueIndex:ux_payment_tx_plan_period,priority:3" json:"periodNumber"`
	Status             TransactionStatus `gorm:"type:text;not null;default:'CONFIRMED';uniqueIndex:ux_payment_tx_plan_period,priority:4" json:"status"`
	SubjectID          string            `gorm:"type:text;not null;index" json:"subjectId"`
	Amount             float64           `gorm:"not null" json:"amount"`
	PaidDate           time.Time         `gorm:"not null;index" json:"paidDate"`
	PaymentMode        string            `gorm:"type:text;not null" json:"paymentMode"`
	InvoiceNumber      string            `gorm:"type:text;not null;index" json:"invoiceNumber"`
	TransactionRef     *string           `gorm:"type:text" json:"transactionRef,omitempty"`
	ReceivedBy         string            `gorm:"type:text;not null" json:"receivedBy"`
	Notes              *string           `gorm:"type:text" json:"notes,omitempty"`
	ContentHash        *string           `gorm:"type:text" json:"-"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (PaymentTransaction) TableName() string { return "payment_transactions" }

// SubjectLedger is the denormalized per-subject summary head. It is
// recomputed inside the mutation that changes totalFees or totalPaid,
// never patched opportunistically on read.
type SubjectLedger struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	TenantID       string        `gorm:"type:text;not null;uniqueIndex:ux_subject_ledgers_tenant_subject,priority:1" json:"tenantId"`
	SubjectID      string        `gorm:"type:text;not null;uniqueIndex:ux_subject_ledgers_tenant_subject,priority:2" json:"subjectId"`
	TotalFees      float64       `gorm:"not null;default:0" json:"totalFees"`
	TotalPaid      float64       `gorm:"not null;default:0" json:"totalPaid"`
	Outstanding    float64       `gorm:"not null;default:0" json:"outstanding"`
	CollectionRate float64       `gorm:"not null;default:0" json:"collectionRate"`
	Status         SummaryStatus `gorm:"type:text;not null;default:'N/A'" json:"status"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (SubjectLedger) TableName() string { return "subject_ledgers" }

// Balance is the read-only view of a subject's position.
type Balance struct {
	SubjectID      string  `json:"subjectId"`
	TotalFees      float64 `json:"totalFees"`
	TotalPaid      float64 `json:"totalPaid"`
	Outstanding    float64 `json:"outstanding"`
	CollectionRate float64 `json:"collectionRate"`
}

// BreakdownLine is one row of the chronological invoice breakdown with the
// running paid balance after the entry was applied.
type BreakdownLine struct {
	TransactionID snowflake.ID      `json:"transactionId"`
	InvoiceNumber string            `json:"invoiceNumber"`
	PeriodNumber  int               `json:"periodNumber"`
	Amount        float64           `json:"amount"`
	PaidDate      time.Time         `json:"paidDate"`
	PaymentMode   string            `json:"paymentMode"`
	Status        TransactionStatus `json:"status"`
	RunningPaid   float64           `json:"runningPaid"`
}
