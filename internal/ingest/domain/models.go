package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// RowStatus is the per-row outcome of a bulk ingestion.
type RowStatus string

const (
	RowStatusInserted  RowStatus = "inserted"
	RowStatusDuplicate RowStatus = "duplicate"
	RowStatusInvalid   RowStatus = "invalid"
	RowStatusError     RowStatus = "error"
)

// ExternalRow is one externally-sourced ledger row as submitted.
type ExternalRow struct {
	Date     time.Time `json:"date"`
	Category string    `json:"category"`
	Amount   float64   `json:"amount"`
	Note     *string   `json:"note,omitempty"`
}

// LedgerRow is the persisted form. The unique (tenant, kind, hash) index
// is what makes re-submitting the same batch a no-op.
type LedgerRow struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	TenantID    string       `gorm:"type:text;not null;index;uniqueIndex:ux_ledger_rows_fingerprint,priority:1"`
	Kind        string       `gorm:"type:text;not null;uniqueIndex:ux_ledger_rows_fingerprint,priority:2"`
	ContentHash string       `gorm:"type:text;not null;uniqueIndex:ux_ledger_rows_fingerprint,priority:3"`
	Category    string       `gorm:"type:text;not null"`
	Amount      float64      `gorm:"not null"`
	RowDate     time.Time    `gorm:"column:row_date;not null"`
	Note        *string      `gorm:"type:text"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LedgerRow) TableName() string { return "ledger_rows" }

// RowResult reports one input row's outcome, in input order.
type RowResult struct {
	Index  int           `json:"index"`
	Status RowStatus     `json:"status"`
	ID     *snowflake.ID `json:"id,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// BatchResult aggregates a whole ingestion call.
type BatchResult struct {
	Results        []RowResult `json:"results"`
	Total          int         `json:"total"`
	InsertedCount  int         `json:"insertedCount"`
	DuplicateCount int         `json:"duplicateCount"`
	InvalidCount   int         `json:"invalidCount"`
	ErrorCount     int         `json:"errorCount"`
}

// Service ingests external ledger rows idempotently.
type Service interface {
	// IngestBatch inserts the rows not already present for the tenant.
	// One bad row never aborts the rest; the batch result reports every
	// row individually.
	IngestBatch(ctx context.Context, kind string, rows []ExternalRow) (BatchResult, error)
}

var ErrInvalidKind = errors.New("invalid_collection_kind")

// Fingerprint derives the content hash used for deduplication: the kind,
// the date truncated to the day, the category and the amount. Coarse on
// purpose; two distinct rows sharing all four fields will collide.
func Fingerprint(kind string, date time.Time, category string, amount float64) string {
	day := date.UTC().Format("2006-01-02")
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%.2f", kind, day, category, amount)))
	return hex.EncodeToString(sum[:])
}

// Validate reports why a row cannot be ingested, or "" when it can.
func (r ExternalRow) Validate() string {
	if r.Date.IsZero() {
		return "missing date"
	}
	if strings.TrimSpace(r.Category) == "" {
		return "missing category"
	}
	if r.Amount <= 0 {
		return "amount must be positive"
	}
	return ""
}
