package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/apikey/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/apikey/repository"
	"github.com/UniqBrio/UniqBrio-sub017/internal/clock"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantscope"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupKeyTest(t *testing.T) domain.Service {
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
	if err := db.AutoMigrate(&domain.APIKey{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(4)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.Fixed(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(db),
	})
}

func TestMintAndResolve(t *testing.T) {
	svc := setupKeyTest(t)
	ctx := tenantcontext.WithTenant(context.Background(), "academy-a")

	raw, key, err := svc.Mint(ctx, "ops")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if !strings.HasPrefix(raw, "ub_") {
		t.Fatalf("expected prefixed raw key, got %q", raw)
	}
	if key.KeyHash == raw {
		t.Fatal("raw key must never be stored")
	}

	// Resolution happens before any tenant scope exists.
	tenantID, err := svc.Resolve(context.Background(), raw)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if tenantID != "academy-a" {
		t.Fatalf("expected academy-a, got %q", tenantID)
	}
}

func TestResolveCacheHitReturnsSameTenant(t *testing.T) {
	svc := setupKeyTest(t)
	ctx := tenantcontext.WithTenant(context.Background(), "academy-a")

	raw, _, err := svc.Mint(ctx, "ops")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	first, err := svc.Resolve(context.Background(), raw)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	// Second resolve is served from the cache.
	second, err := svc.Resolve(context.Background(), raw)
	if err != nil {
		t.Fatalf("cached resolve: %v", err)
	}
	if first != "academy-a" || second != first {
		t.Fatalf("expected academy-a from both resolves, got %q then %q", first, second)
	}

	if err := svc.Disable(ctx, raw); err != nil {
		t.Fatalf("disable: %v", err)
	}
	// Disable evicts the cached entry, so the next resolve sees the row.
	if _, err := svc.Resolve(context.Background(), raw); !errors.Is(err, domain.ErrKeyDisabled) {
		t.Fatalf("expected ErrKeyDisabled after disable, got %v", err)
	}
}

func TestResolveUnknownKey(t *testing.T) {
	svc := setupKeyTest(t)

	if _, err := svc.Resolve(context.Background(), "ub_nope"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := svc.Resolve(context.Background(), ""); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound for empty key, got %v", err)
	}
}

func TestDisabledKeyIsRejected(t *testing.T) {
	svc := setupKeyTest(t)
	ctx := tenantcontext.WithTenant(context.Background(), "academy-a")

	raw, _, err := svc.Mint(ctx, "ops")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Disable(tenantcontext.WithSystem(context.Background()), raw); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if _, err := svc.Resolve(context.Background(), raw); !errors.Is(err, domain.ErrKeyDisabled) {
		t.Fatalf("expected ErrKeyDisabled, got %v", err)
	}
}

func TestMintRequiresTenantContext(t *testing.T) {
	svc := setupKeyTest(t)

	if _, _, err := svc.Mint(context.Background(), "ops"); !errors.Is(err, tenantcontext.ErrNoTenantContext) {
		t.Fatalf("expected ErrNoTenantContext, got %v", err)
	}
}

func TestKeysResolveTheirOwnTenant(t *testing.T) {
	svc := setupKeyTest(t)

	rawA, _, err := svc.Mint(tenantcontext.WithTenant(context.Background(), "academy-a"), "a-key")
	if err != nil {
		t.Fatalf("mint for A: %v", err)
	}
	rawB, _, err := svc.Mint(tenantcontext.WithTenant(context.Background(), "academy-b"), "b-key")
	if err != nil {
		t.Fatalf("mint for B: %v", err)
	}

	if got, _ := svc.Resolve(context.Background(), rawA); got != "academy-a" {
		t.Fatalf("key A resolved to %q", got)
	}
	if got, _ := svc.Resolve(context.Background(), rawB); got != "academy-b" {
		t.Fatalf("key B resolved to %q", got)
	}
}
