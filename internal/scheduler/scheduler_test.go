package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/clock"
	"github.com/UniqBrio/UniqBrio-sub017/internal/config"
	"github.com/UniqBrio/UniqBrio-sub017/internal/events"
	"github.com/UniqBrio/UniqBrio-sub017/internal/subscription/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantscope"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var scanNow = time.Date(2025, time.July, 1, 6, 0, 0, 0, time.UTC)

func setupSchedulerTest(t *testing.T) (*gorm.DB, *Scheduler, *snowflake.Node) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Use(tenantscope.New()); err != nil {
		t.Fatalf("install plugin: %v", err)
	}
	if err := db.AutoMigrate(&domain.SubscriptionPlan{}, &events.BillingEvent{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(5)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	s := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.Fixed(scanNow),
		Outbox: events.NewOutbox(db, node),
		Cfg: config.Config{
			SchedulerInterval:  time.Hour,
			SchedulerBatchSize: 100,
		},
	})
	return db, s, node
}

func seedPlan(t *testing.T, db *gorm.DB, node *snowflake.Node, tenant, subject string, status domain.PlanStatus, due *time.Time) snowflake.ID {
	t.Helper()
	plan := domain.SubscriptionPlan{
		ID:          node.Generate(),
		SubjectID:   subject,
		Code:        "SUB-0001",
		PlanType:    domain.PlanTypeMonthly,
		Status:      status,
		BaseAmount:  500,
		NextDueDate: due,
	}
	ctx := tenantcontext.WithTenant(context.Background(), tenant)
	if err := db.WithContext(ctx).Create(&plan).Error; err != nil {
		t.Fatalf("seed plan: %v", err)
	}
	return plan.ID
}

func countOverdueEvents(t *testing.T, db *gorm.DB, tenant string) int64 {
	t.Helper()
	ctx := tenantcontext.WithTenant(context.Background(), tenant)
	var count int64
	if err := db.WithContext(ctx).
		Model(&events.BillingEvent{}).
		Where("event_type = ?", events.TypePlanOverdue).
		Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func TestScanPublishesOverdueEvents(t *testing.T) {
	db, s, node := setupSchedulerTest(t)
	past := scanNow.AddDate(0, 0, -5)
	future := scanNow.AddDate(0, 0, 5)

	seedPlan(t, db, node, "academy-a", "student-1", domain.PlanStatusActive, &past)
	seedPlan(t, db, node, "academy-a", "student-2", domain.PlanStatusActive, &future)
	seedPlan(t, db, node, "academy-a", "student-3", domain.PlanStatusPaused, &past)
	seedPlan(t, db, node, "academy-a", "student-4", domain.PlanStatusActive, nil)

	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if got := countOverdueEvents(t, db, "academy-a"); got != 1 {
		t.Fatalf("expected 1 overdue event, got %d", got)
	}
}

func TestScanIsIdempotentPerDueDate(t *testing.T) {
	db, s, node := setupSchedulerTest(t)
	past := scanNow.AddDate(0, 0, -3)
	seedPlan(t, db, node, "academy-a", "student-1", domain.PlanStatusActive, &past)

	for i := 0; i < 3; i++ {
		if err := s.ScanOnce(context.Background()); err != nil {
			t.Fatalf("scan %d: %v", i, err)
		}
	}

	if got := countOverdueEvents(t, db, "academy-a"); got != 1 {
		t.Fatalf("repeated scans must dedupe, got %d events", got)
	}
}

func TestScanCoversAllTenants(t *testing.T) {
	db, s, node := setupSchedulerTest(t)
	past := scanNow.AddDate(0, 0, -1)
	seedPlan(t, db, node, "academy-a", "student-1", domain.PlanStatusActive, &past)
	seedPlan(t, db, node, "academy-b", "student-1", domain.PlanStatusActive, &past)

	if err := s.ScanOnce(context.Background()); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if got := countOverdueEvents(t, db, "academy-a"); got != 1 {
		t.Fatalf("tenant A: expected 1 event, got %d", got)
	}
	if got := countOverdueEvents(t, db, "academy-b"); got != 1 {
		t.Fatalf("tenant B: expected 1 event, got %d", got)
	}
}
