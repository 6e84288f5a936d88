package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Sequence is a per-tenant monotonic counter. Allocation is an atomic
// increment-and-read keyed by (tenant_id, name); no two allocations for
// the same key ever return the same value.
type Sequence struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	TenantID  string       `gorm:"type:text;not null;uniqueIndex:ux_sequences_tenant_name,priority:1"`
	Name      string       `gorm:"type:text;not null;uniqueIndex:ux_sequences_tenant_name,priority:2"`
	NextValue int64        `gorm:"not null;default:0"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Sequence) TableName() string { return "sequences" }

// Well-known sequence names.
const (
	NameInvoice          = "invoice"
	NameSubscriptionPlan = "subscription_plan"
)

// Service allocates tenant-scoped sequence values.
type Service interface {
	// Next returns the next value for the named sequence under the
	// ambient tenant, starting at 1 on first use.
	Next(ctx context.Context, name string) (int64, error)
	// NextTx allocates inside an existing transaction so the counter
	// advance commits or rolls back with the caller's writes.
	NextTx(ctx context.Context, tx *gorm.DB, name string) (int64, error)
	// NextInvoiceNumber allocates and formats the tenant's next
	// zero-padded invoice number.
	NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error)
	// NextEntityCode allocates and formats a human-readable entity code
	// for the named sequence, e.g. SUB-0001.
	NextEntityCode(ctx context.Context, name, prefix string) (string, error)
}

var (
	ErrInvalidName      = errors.New("invalid_sequence_name")
	ErrSequenceConflict = errors.New("sequence_conflict")
)
