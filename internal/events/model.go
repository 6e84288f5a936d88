package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// BillingEvent is one stored outbox row awaiting dispatch. Rows with a
// dedupe key are unique per tenant.
type BillingEvent struct {
	ID        snowflake.ID      `gorm:"primaryKey"`
	TenantID  string            `gorm:"type:text;not null;index;uniqueIndex:ux_billing_events_dedupe,priority:1"`
	EventType string            `gorm:"type:text;not null;index"`
	Payload   datatypes.JSONMap `gorm:"not null;default:'{}'"`
	DedupeKey *string           `gorm:"type:text;uniqueIndex:ux_billing_events_dedupe,priority:2"`
	Published bool              `gorm:"not null;default:false;index"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (BillingEvent) TableName() string { return "billing_events" }
