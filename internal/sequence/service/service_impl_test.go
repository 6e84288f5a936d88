package service

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/UniqBrio/UniqBrio-sub017/internal/sequence/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantscope"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSequenceTest(t *testing.T) domain.Service {
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
	if err := db.AutoMigrate(&domain.Sequence{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return NewService(Params{DB: db, Log: zap.NewNop(), GenID: node})
}

func TestNextStartsAtOne(t *testing.T) {
	svc := setupSequenceTest(t)
	ctx := tenantcontext.WithTenant(context.Background(), "acme")

	value, err := svc.Next(ctx, "invoice")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if value != 1 {
		t.Fatalf("expected first value 1, got %d", value)
	}
}

func TestNextIsMonotonicPerKey(t *testing.T) {
	svc := setupSequenceTest(t)
	ctx := tenantcontext.WithTenant(context.Background(), "acme")

	for want := int64(1); want <= 5; want++ {
		got, err := svc.Next(ctx, "invoice")
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("expected %d, got %d", want, got)
		}
	}
}

func TestSequencesAreTenantScoped(t *testing.T) {
	svc := setupSequenceTest(t)
	ctxA := tenantcontext.WithTenant(context.Background(), "tenant-a")
	ctxB := tenantcontext.WithTenant(context.Background(), "tenant-b")

	if _, err := svc.Next(ctxA, "invoice"); err != nil {
		t.Fatalf("next under A: %v", err)
	}
	if _, err := svc.Next(ctxA, "invoice"); err != nil {
		t.Fatalf("next under A: %v", err)
	}

	got, err := svc.Next(ctxB, "invoice")
	if err != nil {
		t.Fatalf("next under B: %v", err)
	}
	if got != 1 {
		t.Fatalf("tenant B must start its own counter at 1, got %d", got)
	}
}

func TestNextRequiresTenantContext(t *testing.T) {
	svc := setupSequenceTest(t)
	if _, err := svc.Next(context.Background(), "invoice"); err != tenantcontext.ErrNoTenantContext {
		t.Fatalf("expected ErrNoTenantContext, got %v", err)
	}
}

func TestConcurrentAllocationsAreDistinctAndConsecutive(t *testing.T) {
	svc := setupSequenceTest(t)
	ctx := tenantcontext.WithTenant(context.Background(), "acme")

	const workers = 20
	var wg sync.WaitGroup
	values := make(chan int64, workers)
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := svc.Next(ctx, "invoice")
			if err != nil {
				errs <- err
				return
			}
			values <- value
		}()
	}
	wg.Wait()
	close(values)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent next: %v", err)
	}

	var got []int64
	for value := range values {
		got = append(got, value)
	}
	if len(got) != workers {
		t.Fatalf("expected %d values, got %d", workers, len(got))
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, value := range got {
		if value != int64(i+1) {
			t.Fatalf("expected consecutive values 1..%d, got %v", workers, got)
		}
	}
}

func TestNextInvoiceNumberFormat(t *testing.T) {
	svc := setupSequenceTest(t)
	ctx := tenantcontext.WithTenant(context.Background(), "acme")

	number, err := svc.NextInvoiceNumber(ctx, nil)
	if err != nil {
		t.Fatalf("invoice number: %v", err)
	}
	if number != "INV-000001" {
		t.Fatalf("expected INV-000001, got %q", number)
	}
}

func TestNextEntityCodeFormat(t *testing.T) {
	svc := setupSequenceTest(t)
	ctx := tenantcontext.WithTenant(context.Background(), "acme")

	code, err := svc.NextEntityCode(ctx, domain.NameSubscriptionPlan, "sub")
	if err != nil {
		t.Fatalf("entity code: %v", err)
	}
	if code != "SUB-0001" {
		t.Fatalf("expected SUB-0001, got %q", code)
	}
}
