package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/UniqBrio/UniqBrio-sub017/internal/clock"
	"github.com/UniqBrio/UniqBrio-sub017/internal/events"
	ledgerdomain "github.com/UniqBrio/UniqBrio-sub017/internal/ledger/domain"
	sequencedomain "github.com/UniqBrio/UniqBrio-sub017/internal/sequence/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/subscription/domain"
	pkgdb "github.com/UniqBrio/UniqBrio-sub017/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	SeqSvc    sequencedomain.Service
	LedgerSvc ledgerdomain.Service
	Outbox    *events.Outbox
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	seqSvc    sequencedomain.Service
	ledgerSvc ledgerdomain.Service
	outbox    *events.Outbox
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("subscription.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		seqSvc:    p.SeqSvc,
		ledgerSvc: p.LedgerSvc,
		outbox:    p.Outbox,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePlanRequest) (*domain.SubscriptionPlan, error) {
	req.SubjectID = strings.TrimSpace(req.SubjectID)
	if req.SubjectID == "" {
		return nil, domain.ErrInvalidSubject
	}
	switch req.PlanType {
	case domain.PlanTypeOneTime, domain.PlanTypeMonthly, domain.PlanTypeMonthlyDiscounted, domain.PlanTypeEMI, domain.PlanTypeCustom:
	default:
		return nil, domain.ErrInvalidPlan
	}
	if req.BaseAmount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.PlanType == domain.PlanTypeMonthlyDiscounted {
		if req.DiscountedAmount == nil || *req.DiscountedAmount <= 0 || req.CommitmentPeriods == nil || *req.CommitmentPeriods <= 0 {
			return nil, domain.ErrInvalidPlan
		}
	}
	if req.PlanType == domain.PlanTypeEMI {
		if req.CommitmentPeriods == nil || *req.CommitmentPeriods <= 0 {
			return nil, domain.ErrInvalidPlan
		}
	}

	code, err := s.seqSvc.NextEntityCode(ctx, sequencedomain.NameSubscriptionPlan, "SUB")
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	trail, err := domain.AppendAudit(nil, domain.AuditEntry{
		Action: "plan.created",
		Actor:  strings.TrimSpace(req.Actor),
		At:     now,
		Detail: string(req.PlanType),
	})
	if err != nil {
		return nil, err
	}

	plan := domain.SubscriptionPlan{
		ID:                s.genID.Generate(),
		SubjectID:         req.SubjectID,
		Code:              code,
		PlanType:          req.PlanType,
		Status:            domain.PlanStatusActive,
		CurrentPeriod:     0,
		CommitmentPeriods: req.CommitmentPeriods,
		BaseAmount:        req.BaseAmount,
		DiscountedAmount:  req.DiscountedAmount,
		NextDueDate:       req.FirstDueDate,
		PaymentRecordIDs:  datatypes.JSON([]byte("[]")),
		AuditTrail:        trail,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}

func (s *Service) Get(ctx context.Context, planID snowflake.ID) (*domain.SubscriptionPlan, error) {
	var plan domain.SubscriptionPlan
	if err := s.db.WithContext(ctx).First(&plan, "id = ?", planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (s *Service) ListBySubject(ctx context.Context, subjectID string) ([]domain.SubscriptionPlan, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, domain.ErrInvalidSubject
	}
	var plans []domain.SubscriptionPlan
	if err := s.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at ASC, id ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// ProcessRecurringPayment charges the plan's next billing period. The
// invoice allocation, ledger entry, plan update and audit record are one
// transaction; the plan's version guard plus the unique
// (plan, period, status) index guarantee exactly one committed charge per
// period even under concurrent calls.
func (s *Service) ProcessRecurringPayment(ctx context.Context, planID snowflake.ID, charge domain.Charge) (*domain.SubscriptionPlan, *ledgerdomain.PaymentTransaction, error) {
	charge.PaymentMode = strings.TrimSpace(charge.PaymentMode)
	charge.ReceivedBy = strings.TrimSpace(charge.ReceivedBy)
	if charge.Amount <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}
	if charge.PaidDate.IsZero() {
		charge.PaidDate = s.clock.Now()
	}
	if charge.PaymentMode == "" || charge.ReceivedBy == "" {
		return nil, nil, domain.ErrInvalidPlan
	}

	var (
		updated domain.SubscriptionPlan
		entry   ledgerdomain.PaymentTransaction
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan domain.SubscriptionPlan
		if err := tx.WithContext(ctx).First(&plan, "id = ?", planID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPlanNotFound
			}
			return err
		}
		if plan.Status != domain.PlanStatusActive {
			return domain.ErrPlanNotActive
		}

		nextPeriod := plan.CurrentPeriod + 1
		expected := plan.ExpectedAmount(nextPeriod)
		if math.Abs(charge.Amount-expected) > domain.AmountEpsilon {
			return &domain.AmountMismatchError{Submitted: charge.Amount, Expected: expected}
		}

		invoiceNumber, err := s.seqSvc.NextInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}

		entry = ledgerdomain.PaymentTransaction{
			ID:                 s.genID.Generate(),
			SubscriptionPlanID: plan.ID,
			PeriodNumber:       nextPeriod,
			Status:             ledgerdomain.TransactionStatusConfirmed,
			SubjectID:          plan.SubjectID,
			Amount:             charge.Amount,
			PaidDate:           charge.PaidDate,
			PaymentMode:        charge.PaymentMode,
			InvoiceNumber:      invoiceNumber,
			TransactionRef:     charge.TransactionRef,
			ReceivedBy:         charge.ReceivedBy,
			Notes:              charge.Notes,
		}
		if err := s.ledgerSvc.RecordTransactionTx(ctx, tx, &entry); err != nil {
			if pkgdb.IsUniqueViolation(err) {
				return domain.ErrConcurrentUpdate
			}
			return err
		}

		nextDue := charge.PaidDate.AddDate(0, 0, domain.BillingCycleDays)
		now := s.clock.Now()

		refs, err := domain.AppendPaymentRecordID(plan.PaymentRecordIDs, entry.ID)
		if err != nil {
			return err
		}
		trail, err := domain.AppendAudit(plan.AuditTrail, domain.AuditEntry{
			Action: "payment.recorded",
			Actor:  charge.ReceivedBy,
			At:     now,
			Detail: fmt.Sprintf("period %d, invoice %s", nextPeriod, invoiceNumber),
		})
		if err != nil {
			return err
		}

		status := plan.Status
		if done, reason := s.planCompletes(&plan, nextPeriod); done {
			status = domain.PlanStatusCompleted
			trail, err = domain.AppendAudit(trail, domain.AuditEntry{
				Action: "plan.completed",
				Actor:  charge.ReceivedBy,
				At:     now,
				Detail: reason,
			})
			if err != nil {
				return err
			}
		}

		res := tx.WithContext(ctx).
			Model(&domain.SubscriptionPlan{}).
			Where("id = ? AND version = ?", plan.ID, plan.Version).
			Updates(map[string]any{
				"status":             status,
				"current_period":     nextPeriod,
				"total_paid_amount":  plan.TotalPaidAmount + charge.Amount,
				"last_payment_date":  charge.PaidDate,
				"next_due_date":      nextDue,
				"payment_record_ids": refs,
				"audit_trail":        trail,
				"version":            plan.Version + 1,
				"updated_at":         now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConcurrentUpdate
		}

		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			Type: events.TypePaymentRecorded,
			Payload: events.PaymentRecordedPayload{
				PlanID:        plan.ID.String(),
				SubjectID:     plan.SubjectID,
				TransactionID: entry.ID.String(),
				InvoiceNumber: invoiceNumber,
				PeriodNumber:  nextPeriod,
				Amount:        charge.Amount,
			}.ToMap(),
			DedupeKey: fmt.Sprintf("payment:%s:%d", plan.ID.String(), nextPeriod),
		}); err != nil {
			return err
		}

		updated = plan
		updated.Status = status
		updated.CurrentPeriod = nextPeriod
		updated.TotalPaidAmount = plan.TotalPaidAmount + charge.Amount
		updated.LastPaymentDate = &charge.PaidDate
		updated.NextDueDate = &nextDue
		updated.PaymentRecordIDs = refs
		updated.AuditTrail = trail
		updated.Version = plan.Version + 1
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("recurring payment recorded",
		zap.String("plan_id", updated.ID.String()),
		zap.String("subject_id", updated.SubjectID),
		zap.Int("period", updated.CurrentPeriod),
		zap.String("invoice_number", entry.InvoiceNumber),
		zap.Float64("amount", entry.Amount),
	)
	return &updated, &entry, nil
}

// planCompletes reports whether the charge for nextPeriod finishes the
// plan's schedule.
func (s *Service) planCompletes(plan *domain.SubscriptionPlan, nextPeriod int) (bool, string) {
	switch plan.PlanType {
	case domain.PlanTypeOneTime:
		return true, "one-time payment settled"
	case domain.PlanTypeEMI:
		if plan.CommitmentPeriods != nil && nextPeriod >= *plan.CommitmentPeriods {
			return true, fmt.Sprintf("all %d installments settled", *plan.CommitmentPeriods)
		}
	}
	return false, ""
}

func (s *Service) Pause(ctx context.Context, planID snowflake.ID, actor string) (*domain.SubscriptionPlan, error) {
	return s.transition(ctx, planID, domain.PlanStatusPaused, "plan.paused", actor, "")
}

func (s *Service) Resume(ctx context.Context, planID snowflake.ID, actor string) (*domain.SubscriptionPlan, error) {
	return s.transition(ctx, planID, domain.PlanStatusActive, "plan.resumed", actor, "")
}

func (s *Service) Cancel(ctx context.Context, planID snowflake.ID, actor, reason string) (*domain.SubscriptionPlan, error) {
	return s.transition(ctx, planID, domain.PlanStatusCancelled, "plan.cancelled", actor, strings.TrimSpace(reason))
}

func (s *Service) Complete(ctx context.Context, planID snowflake.ID, actor string) (*domain.SubscriptionPlan, error) {
	return s.transition(ctx, planID, domain.PlanStatusCompleted, "plan.completed", actor, "")
}

// transition applies an administrative state change. It touches only the
// status, version and audit trail; the ledger is never involved.
func (s *Service) transition(ctx context.Context, planID snowflake.ID, target domain.PlanStatus, action, actor, detail string) (*domain.SubscriptionPlan, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, domain.ErrInvalidPlan
	}

	var updated domain.SubscriptionPlan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan domain.SubscriptionPlan
		if err := tx.WithContext(ctx).First(&plan, "id = ?", planID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrPlanNotFound
			}
			return err
		}
		if !plan.Status.CanTransitionTo(target) {
			return &domain.TransitionError{From: plan.Status, To: target}
		}

		now := s.clock.Now()
		trail, err := domain.AppendAudit(plan.AuditTrail, domain.AuditEntry{
			Action: action,
			Actor:  actor,
			At:     now,
			Detail: detail,
		})
		if err != nil {
			return err
		}

		res := tx.WithContext(ctx).
			Model(&domain.SubscriptionPlan{}).
			Where("id = ? AND version = ?", plan.ID, plan.Version).
			Updates(map[string]any{
				"status":      target,
				"audit_trail": trail,
				"version":     plan.Version + 1,
				"updated_at":  now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrConcurrentUpdate
		}

		updated = plan
		updated.Status = target
		updated.AuditTrail = trail
		updated.Version = plan.Version + 1
		updated.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

