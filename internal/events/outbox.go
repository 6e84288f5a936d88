package events

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types the billing engine publishes for the out-of-scope
// notification dispatcher.
const (
	TypePaymentRecorded = "payment.recorded"
	TypePlanOverdue     = "plan.overdue"
)

// Event describes a billing event to store in the outbox. TenantID may be
// left empty when the ambient context carries one.
type Event struct {
	TenantID  string
	Type      string
	Payload   map[string]any
	DedupeKey string
}

// Outbox inserts billing events into the billing_events table. The dedupe
// key makes repeated publication of the same logical event a no-op.
type Outbox struct {
	db    *gorm.DB
	genID *snowflake.Node
}

func NewOutbox(db *gorm.DB, genID *snowflake.Node) *Outbox {
	return &Outbox{db: db, genID: genID}
}

// Publish stores an event using the default database connection.
func (o *Outbox) Publish(ctx context.Context, event Event) error {
	return o.publish(ctx, o.db, event)
}

// PublishTx stores an event using an existing transaction so the event
// commits or rolls back with the writes it describes.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	return o.publish(ctx, tx, event)
}

func (o *Outbox) publish(ctx context.Context, db *gorm.DB, event Event) error {
	if o == nil || db == nil || o.genID == nil {
		return errors.New("outbox_unavailable")
	}
	tenantID := strings.TrimSpace(event.TenantID)
	if tenantID == "" {
		ambient, err := tenantcontext.TenantID(ctx)
		if err != nil {
			return err
		}
		tenantID = ambient
	}
	name := strings.TrimSpace(event.Type)
	if name == "" {
		return errors.New("missing_event_type")
	}

	payload := datatypes.JSONMap{}
	for key, value := range event.Payload {
		if strings.TrimSpace(key) == "" {
			continue
		}
		payload[key] = value
	}

	dedupe := strings.TrimSpace(event.DedupeKey)
	var dedupeValue any
	if dedupe != "" {
		dedupeValue = dedupe
	}

	now := time.Now().UTC()
	return db.WithContext(ctx).Exec(
		`INSERT INTO billing_events (id, tenant_id, event_type, payload, dedupe_key, published, created_at)
		 VALUES (?, ?, ?, ?, ?, false, ?)
		 ON CONFLICT (tenant_id, dedupe_key) DO NOTHING`,
		o.genID.Generate(),
		tenantID,
		name,
		payload,
		dedupeValue,
		now,
	).Error
}
