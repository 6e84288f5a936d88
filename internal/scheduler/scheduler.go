package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/clock"
	"github.com/UniqBrio/UniqBrio-sub017/internal/config"
	"github.com/UniqBrio/UniqBrio-sub017/internal/events"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/metrics"
	subscriptiondomain "github.com/UniqBrio/UniqBrio-sub017/internal/subscription/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OverduePlan is the projection the scanner works on.
type OverduePlan struct {
	ID          snowflake.ID
	TenantID    string
	SubjectID   string
	NextDueDate time.Time
}

// Scheduler periodically scans for active plans whose due date has
// passed and publishes one deduplicated overdue event per plan per due
// date. It never mutates plans; reminders and dunning live downstream
// of the outbox.
type Scheduler struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	outbox  *events.Outbox
	metrics *metrics.BillingMetrics

	interval  time.Duration
	batchSize int

	stop chan struct{}
	done chan struct{}
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Outbox *events.Outbox
	Cfg    config.Config
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler"),
		clock:     p.Clock,
		outbox:    p.Outbox,
		metrics:   metrics.Billing(),
		interval:  p.Cfg.SchedulerInterval,
		batchSize: p.Cfg.SchedulerBatchSize,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (s *Scheduler) Start() {
	go s.run()
}

func (s *Scheduler) Stop(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run() {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			if err := s.ScanOnce(ctx); err != nil {
				s.log.Error("overdue scan failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// ScanOnce walks every tenant's overdue plans in one pass. The read runs
// under a system scope because it crosses tenants; each event publish
// re-enters the owning tenant's scope.
func (s *Scheduler) ScanOnce(ctx context.Context) error {
	start := time.Now()
	now := s.clock.Now()

	plans, err := s.fetchOverduePlans(ctx, now)
	if err != nil {
		return err
	}

	var oldest time.Duration
	published := 0
	for _, plan := range plans {
		if age := now.Sub(plan.NextDueDate); age > oldest {
			oldest = age
		}
		if err := s.publishOverdue(ctx, plan, now); err != nil {
			s.log.Warn("overdue event publish failed",
				zap.String("plan_id", plan.ID.String()),
				zap.String("tenant_id", plan.TenantID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	s.metrics.SetOverdueBacklog(len(plans))
	s.metrics.SetOverdueOldest(oldest)
	s.metrics.ObserveScanDuration(time.Since(start))

	if len(plans) > 0 {
		s.log.Info("overdue scan complete",
			zap.Int("overdue", len(plans)),
			zap.Int("published", published),
			zap.Duration("oldest", oldest),
		)
	}
	return nil
}

func (s *Scheduler) fetchOverduePlans(ctx context.Context, now time.Time) ([]OverduePlan, error) {
	var plans []OverduePlan
	err := s.db.WithContext(tenantcontext.WithSystem(ctx)).Raw(
		`SELECT id, tenant_id, subject_id, next_due_date
		 FROM subscription_plans
		 WHERE status = ? AND next_due_date IS NOT NULL AND next_due_date < ?
		 ORDER BY next_due_date ASC
		 LIMIT ?`,
		subscriptiondomain.PlanStatusActive,
		now,
		s.batchSize,
	).Scan(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (s *Scheduler) publishOverdue(ctx context.Context, plan OverduePlan, now time.Time) error {
	payload := events.PlanOverduePayload{
		PlanID:    plan.ID.String(),
		SubjectID: plan.SubjectID,
		DueDate:   plan.NextDueDate.UTC().Format("2006-01-02"),
		DaysLate:  int(now.Sub(plan.NextDueDate).Hours() / 24),
	}
	return s.outbox.Publish(tenantcontext.WithTenant(ctx, plan.TenantID), events.Event{
		TenantID:  plan.TenantID,
		Type:      events.TypePlanOverdue,
		Payload:   payload.ToMap(),
		DedupeKey: fmt.Sprintf("overdue:%s:%s", plan.ID.String(), plan.NextDueDate.UTC().Format("2006-01-02")),
	})
}
