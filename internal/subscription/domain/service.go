package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	ledgerdomain "github.com/UniqBrio/UniqBrio-sub017/internal/ledger/domain"
	"github.com/bwmarrin/snowflake"
)

// CreatePlanRequest starts a billable enrollment.
type CreatePlanRequest struct {
	SubjectID         string
	PlanType          PlanType
	BaseAmount        float64
	DiscountedAmount  *float64
	CommitmentPeriods *int
	FirstDueDate      *time.Time
	Actor             string
}

// Charge is one submitted recurring payment.
type Charge struct {
	Amount         float64
	PaidDate       time.Time
	PaymentMode    string
	TransactionRef *string
	ReceivedBy     string
	Notes          *string
}

// Service drives the subscription billing state machine.
type Service interface {
	Create(ctx context.Context, req CreatePlanRequest) (*SubscriptionPlan, error)
	Get(ctx context.Context, planID snowflake.ID) (*SubscriptionPlan, error)
	ListBySubject(ctx context.Context, subjectID string) ([]SubscriptionPlan, error)
	// ProcessRecurringPayment advances the plan by one billing period:
	// invoice allocation, the immutable ledger entry, the plan update and
	// its audit record commit in one transaction or not at all.
	ProcessRecurringPayment(ctx context.Context, planID snowflake.ID, charge Charge) (*SubscriptionPlan, *ledgerdomain.PaymentTransaction, error)
	Pause(ctx context.Context, planID snowflake.ID, actor string) (*SubscriptionPlan, error)
	Resume(ctx context.Context, planID snowflake.ID, actor string) (*SubscriptionPlan, error)
	Cancel(ctx context.Context, planID snowflake.ID, actor, reason string) (*SubscriptionPlan, error)
	Complete(ctx context.Context, planID snowflake.ID, actor string) (*SubscriptionPlan, error)
}

var (
	ErrInvalidPlan       = errors.New("invalid_plan")
	ErrInvalidSubject    = errors.New("invalid_subject")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrPlanNotFound      = errors.New("plan_not_found")
	ErrPlanNotActive     = errors.New("plan_not_active")
	ErrInvalidTransition = errors.New("invalid_transition")
	ErrAmountMismatch    = errors.New("amount_mismatch")
	ErrConcurrentUpdate  = errors.New("concurrent_update")
)

// AmountMismatchError carries the submitted and expected amounts so the
// boundary can surface both to the caller. errors.Is(err,
// ErrAmountMismatch) matches it.
type AmountMismatchError struct {
	Submitted float64
	Expected  float64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount_mismatch: submitted %.2f, expected %.2f", e.Submitted, e.Expected)
}

// Is makes the sentinel match.
func (e *AmountMismatchError) Is(target error) bool { return target == ErrAmountMismatch }

// TransitionError names the offending states for InvalidState failures.
type TransitionError struct {
	From PlanStatus
	To   PlanStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: %s -> %s", e.From, e.To)
}

// Is makes the sentinel match.
func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
