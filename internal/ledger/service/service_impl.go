package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/UniqBrio/UniqBrio-sub017/internal/clock"
	"github.com/UniqBrio/UniqBrio-sub017/internal/ledger/domain"
	pkgdb "github.com/UniqBrio/UniqBrio-sub017/pkg/db"
	"github.com/UniqBrio/UniqBrio-sub017/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var listSortColumns = map[string]bool{
	"paid_date":      true,
	"created_at":     true,
	"amount":         true,
	"period_number":  true,
	"invoice_number": true,
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (s *Service) RecordTransactionTx(ctx context.Context, tx *gorm.DB, entry *domain.PaymentTransaction) error {
	if tx == nil {
		return errors.New("missing_transaction")
	}
	if err := domain.ValidateEntry(entry); err != nil {
		return err
	}
	if entry.ID == 0 {
		entry.ID = s.genID.Generate()
	}

	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return err
	}

	delta := entry.Amount
	if entry.Status == domain.TransactionStatusReversed {
		delta = -entry.Amount
	}
	return s.applyPaidDeltaTx(ctx, tx, entry.SubjectID, delta)
}

func (s *Service) ReverseTransaction(ctx context.Context, transactionID snowflake.ID, actor string) (*domain.PaymentTransaction, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, domain.ErrInvalidEntry
	}

	var reversal domain.PaymentTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var original domain.PaymentTransaction
		if err := tx.WithContext(ctx).First(&original, "id = ?", transactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTransactionNotFound
			}
			return err
		}
		if original.Status != domain.TransactionStatusConfirmed {
			return domain.ErrAlreadyReversed
		}

		note := fmt.Sprintf("reversal of %s", original.InvoiceNumber)
		reversal = domain.PaymentTransaction{
			ID:                 s.genID.Generate(),
			SubscriptionPlanID: original.SubscriptionPlanID,
			PeriodNumber:       original.PeriodNumber,
			Status:             domain.TransactionStatusReversed,
			SubjectID:          original.SubjectID,
			Amount:             original.Amount,
			PaidDate:           s.clock.Now(),
			PaymentMode:        original.PaymentMode,
			InvoiceNumber:      original.InvoiceNumber,
			ReceivedBy:         actor,
			Notes:              &note,
		}
		if err := s.RecordTransactionTx(ctx, tx, &reversal); err != nil {
			if pkgdb.IsUniqueViolation(err) {
				return domain.ErrAlreadyReversed
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reversal, nil
}

func (s *Service) SetTotalFees(ctx context.Context, subjectID string, totalFees float64) (*domain.SubjectLedger, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, domain.ErrInvalidSubject
	}
	if totalFees < 0 {
		return nil, domain.ErrInvalidAmount
	}

	var head domain.SubjectLedger
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := s.loadOrCreateHeadTx(ctx, tx, subjectID)
		if err != nil {
			return err
		}
		if err := tx.WithContext(ctx).
			Model(&domain.SubjectLedger{}).
			Where("id = ?", loaded.ID).
			Update("total_fees", totalFees).Error; err != nil {
			return err
		}
		if err := s.rederiveSummaryTx(ctx, tx, loaded.ID); err != nil {
			return err
		}
		return tx.WithContext(ctx).First(&head, "id = ?", loaded.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &head, nil
}

func (s *Service) GetTransaction(ctx context.Context, transactionID snowflake.ID) (*domain.PaymentTransaction, error) {
	var entry domain.PaymentTransaction
	if err := s.db.WithContext(ctx).First(&entry, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (s *Service) ListBySubject(ctx context.Context, subjectID string, page pagination.Pagination) ([]domain.PaymentTransaction, pagination.PageInfo, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, pagination.PageInfo{}, domain.ErrInvalidSubject
	}
	page = page.Normalize("paid_date", listSortColumns)

	var total int64
	if err := s.db.WithContext(ctx).
		Model(&domain.PaymentTransaction{}).
		Where("subject_id = ?", subjectID).
		Count(&total).Error; err != nil {
		return nil, pagination.PageInfo{}, err
	}

	var entries []domain.PaymentTransaction
	if err := page.Apply(
		s.db.WithContext(ctx).Where("subject_id = ?", subjectID),
	).Find(&entries).Error; err != nil {
		return nil, pagination.PageInfo{}, err
	}

	return entries, pagination.PageInfo{Total: total, Limit: page.Limit, Skip: page.Skip}, nil
}

func (s *Service) GetBalance(ctx context.Context, subjectID string) (domain.Balance, error) {
	head, err := s.GetSummary(ctx, subjectID)
	if err != nil {
		return domain.Balance{}, err
	}
	return domain.Balance{
		SubjectID:      head.SubjectID,
		TotalFees:      head.TotalFees,
		TotalPaid:      head.TotalPaid,
		Outstanding:    head.Outstanding,
		CollectionRate: head.CollectionRate,
	}, nil
}

func (s *Service) GetSummary(ctx context.Context, subjectID string) (*domain.SubjectLedger, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, domain.ErrInvalidSubject
	}
	var head domain.SubjectLedger
	if err := s.db.WithContext(ctx).First(&head, "subject_id = ?", subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubjectNotFound
		}
		return nil, err
	}
	return &head, nil
}

func (s *Service) InvoiceBreakdown(ctx context.Context, subjectID string) ([]domain.BreakdownLine, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, domain.ErrInvalidSubject
	}

	var entries []domain.PaymentTransaction
	if err := s.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("paid_date ASC, created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	lines := make([]domain.BreakdownLine, 0, len(entries))
	running := 0.0
	for _, entry := range entries {
		if entry.Status == domain.TransactionStatusReversed {
			running -= entry.Amount
		} else {
			running += entry.Amount
		}
		lines = append(lines, domain.BreakdownLine{
			TransactionID: entry.ID,
			InvoiceNumber: entry.InvoiceNumber,
			PeriodNumber:  entry.PeriodNumber,
			Amount:        entry.Amount,
			PaidDate:      entry.PaidDate,
			PaymentMode:   entry.PaymentMode,
			Status:        entry.Status,
			RunningPaid:   running,
		})
	}
	return lines, nil
}

// applyPaidDeltaTx folds a confirmed or reversed amount into the subject's
// summary head and re-derives the stored aggregate. Runs inside the
// mutation that changed totalPaid, never on read. The delta is applied
// with an in-database increment so concurrent payments on different plans
// of the same subject never overwrite each other's totals.
func (s *Service) applyPaidDeltaTx(ctx context.Context, tx *gorm.DB, subjectID string, delta float64) error {
	head, err := s.loadOrCreateHeadTx(ctx, tx, subjectID)
	if err != nil {
		return err
	}
	if err := tx.WithContext(ctx).
		Model(&domain.SubjectLedger{}).
		Where("id = ?", head.ID).
		Update("total_paid", gorm.Expr(
			"CASE WHEN total_paid + ? < 0 THEN 0 ELSE total_paid + ? END", delta, delta,
		)).Error; err != nil {
		return err
	}
	return s.rederiveSummaryTx(ctx, tx, head.ID)
}

func (s *Service) loadOrCreateHeadTx(ctx context.Context, tx *gorm.DB, subjectID string) (*domain.SubjectLedger, error) {
	var head domain.SubjectLedger
	err := tx.WithContext(ctx).First(&head, "subject_id = ?", subjectID).Error
	if err == nil {
		return &head, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := s.clock.Now()
	head = domain.SubjectLedger{
		ID:        s.genID.Generate(),
		SubjectID: subjectID,
		Status:    domain.SummaryStatusNA,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&head).Error; err != nil {
		return nil, err
	}
	return &head, nil
}

// rederiveSummaryTx recomputes outstanding, collection rate and status
// from the head row as this transaction sees it. The caller's preceding
// UPDATE holds the row lock, so the re-read cannot interleave with
// another writer's increment.
func (s *Service) rederiveSummaryTx(ctx context.Context, tx *gorm.DB, headID snowflake.ID) error {
	var head domain.SubjectLedger
	if err := tx.WithContext(ctx).First(&head, "id = ?", headID).Error; err != nil {
		return err
	}
	summary := domain.ComputeSummary(head.TotalFees, head.TotalPaid)
	return tx.WithContext(ctx).
		Model(&domain.SubjectLedger{}).
		Where("id = ?", headID).
		Updates(map[string]any{
			"outstanding":     summary.Outstanding,
			"collection_rate": summary.CollectionRate,
			"status":          summary.Status,
			"updated_at":      s.clock.Now(),
		}).Error
}

