package service

import (
	"context"
	"testing"

	"github.com/UniqBrio/UniqBrio-sub017/internal/audit/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/audit/repository"
	"github.com/UniqBrio/UniqBrio-sub017/internal/auditcontext"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantscope"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuditTest(t *testing.T) (domain.Service, *gorm.DB) {
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
	if err := db.AutoMigrate(&domain.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(db),
	})
	return svc, db
}

func auditCtx(tenant string) context.Context {
	return tenantcontext.WithTenant(context.Background(), tenant)
}

func TestAuditLogStampsTenantAndDefaults(t *testing.T) {
	svc, _ := setupAuditTest(t)
	ctx := auditCtx("academy-a")

	targetID := "plan-1"
	if err := svc.AuditLog(ctx, "plan.created", "subscription_plan", &targetID, map[string]any{"amount": 500}); err != nil {
		t.Fatalf("audit log: %v", err)
	}

	entries, err := svc.List(ctx, domain.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	got := entries[0]
	if got.TenantID != "academy-a" {
		t.Fatalf("tenant = %q", got.TenantID)
	}
	if got.ActorType != string(domain.ActorTypeSystem) {
		t.Fatalf("actor type = %q", got.ActorType)
	}
	if got.TargetID == nil || *got.TargetID != "plan-1" {
		t.Fatalf("target id = %v", got.TargetID)
	}
	if got.Metadata["amount"] != float64(500) {
		t.Fatalf("metadata = %v", got.Metadata)
	}
}

func TestAuditLogCarriesActorFromContext(t *testing.T) {
	svc, _ := setupAuditTest(t)
	ctx := auditcontext.WithActor(auditCtx("academy-a"), string(domain.ActorTypeAPIKey), "academy-a")
	ctx = auditcontext.WithIPAddress(ctx, "203.0.113.9")

	if err := svc.AuditLog(ctx, "plan.paused", "subscription_plan", nil, nil); err != nil {
		t.Fatalf("audit log: %v", err)
	}
	entries, err := svc.List(ctx, domain.ListFilter{ActorType: string(domain.ActorTypeAPIKey)})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].ActorID == nil || *entries[0].ActorID != "academy-a" {
		t.Fatalf("actor id = %v", entries[0].ActorID)
	}
	if entries[0].IPAddress == nil || *entries[0].IPAddress != "203.0.113.9" {
		t.Fatalf("ip = %v", entries[0].IPAddress)
	}
}

func TestAuditListIsTenantScoped(t *testing.T) {
	svc, _ := setupAuditTest(t)

	if err := svc.AuditLog(auditCtx("academy-a"), "plan.created", "subscription_plan", nil, nil); err != nil {
		t.Fatalf("audit log a: %v", err)
	}
	if err := svc.AuditLog(auditCtx("academy-b"), "plan.created", "subscription_plan", nil, nil); err != nil {
		t.Fatalf("audit log b: %v", err)
	}

	entries, err := svc.List(auditCtx("academy-b"), domain.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].TenantID != "academy-b" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestAuditListCursorPagination(t *testing.T) {
	svc, _ := setupAuditTest(t)
	ctx := auditCtx("academy-a")

	for _, action := range []string{"plan.created", "plan.paused", "plan.resumed"} {
		if err := svc.AuditLog(ctx, action, "subscription_plan", nil, nil); err != nil {
			t.Fatalf("audit log %s: %v", action, err)
		}
	}

	first, err := svc.List(ctx, domain.ListFilter{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first page = %d", len(first))
	}
	last := first[len(first)-1]
	second, err := svc.List(ctx, domain.ListFilter{
		Limit:  2,
		Cursor: &domain.AuditCursor{ID: last.ID, CreatedAt: last.CreatedAt},
	})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("second page = %d", len(second))
	}
	if second[0].ID == first[0].ID || second[0].ID == first[1].ID {
		t.Fatalf("cursor returned an already-seen entry")
	}
}
