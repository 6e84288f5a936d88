package domain

import (
	"context"
	"errors"

	"github.com/UniqBrio/UniqBrio-sub017/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service owns the append-only payment ledger and the derived per-subject
// summary head.
type Service interface {
	// RecordTransactionTx appends one immutable entry and folds its
	// amount into the subject's summary head, inside the caller's
	// transaction.
	RecordTransactionTx(ctx context.Context, tx *gorm.DB, entry *PaymentTransaction) error
	// ReverseTransaction appends a compensating REVERSED entry for a
	// confirmed charge. The original row is never edited.
	ReverseTransaction(ctx context.Context, transactionID snowflake.ID, actor string) (*PaymentTransaction, error)
	// SetTotalFees records the fees owed by a subject (driven by
	// enrollment, outside this core) and recomputes the summary head.
	SetTotalFees(ctx context.Context, subjectID string, totalFees float64) (*SubjectLedger, error)
	GetTransaction(ctx context.Context, transactionID snowflake.ID) (*PaymentTransaction, error)
	ListBySubject(ctx context.Context, subjectID string, page pagination.Pagination) ([]PaymentTransaction, pagination.PageInfo, error)
	GetBalance(ctx context.Context, subjectID string) (Balance, error)
	GetSummary(ctx context.Context, subjectID string) (*SubjectLedger, error)
	// InvoiceBreakdown reconstructs the chronological entry list with
	// running balances, from stored rows alone.
	InvoiceBreakdown(ctx context.Context, subjectID string) ([]BreakdownLine, error)
}

var (
	ErrInvalidSubject      = errors.New("invalid_subject")
	ErrInvalidAmount       = errors.New("invalid_amount")
	ErrInvalidEntry        = errors.New("invalid_entry")
	ErrTransactionNotFound = errors.New("transaction_not_found")
	ErrAlreadyReversed     = errors.New("transaction_already_reversed")
	ErrSubjectNotFound     = errors.New("subject_not_found")
)
