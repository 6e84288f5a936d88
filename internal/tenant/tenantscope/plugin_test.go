package tenantscope

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type scopedNote struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	TenantID  string `gorm:"type:text;not null;index"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (scopedNote) TableName() string { return "scoped_notes" }

type globalSetting struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Key   string `gorm:"type:text;not null"`
	Value string `gorm:"type:text;not null"`
}

func (globalSetting) TableName() string { return "global_settings" }

func setupScopeTestDB(t *testing.T) *gorm.DB {
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
	if err := db.Use(New()); err != nil {
		t.Fatalf("install plugin: %v", err)
	}
	if err := db.AutoMigrate(&scopedNote{}, &globalSetting{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCreateStampsAmbientTenant(t *testing.T) {
	db := setupScopeTestDB(t)
	ctx := tenantcontext.WithTenant(context.Background(), "acme")

	note := scopedNote{Body: "hello"}
	if err := db.WithContext(ctx).Create(&note).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if note.TenantID != "acme" {
		t.Fatalf("expected stamped tenant acme, got %q", note.TenantID)
	}
}

func TestCreateRejectsMismatchedTenant(t *testing.T) {
	db := setupScopeTestDB(t)
	ctx := tenantcontext.WithTenant(context.Background(), "acme")

	note := scopedNote{TenantID: "rival", Body: "smuggled"}
	err := db.WithContext(ctx).Create(&note).Error
	if !errors.Is(err, ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}

	var count int64
	sys := tenantcontext.WithSystem(context.Background())
	if err := db.WithContext(sys).Model(&scopedNote{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("mismatched row must not be written, found %d", count)
	}
}

func TestScopedOperationsFailClosedWithoutTenant(t *testing.T) {
	db := setupScopeTestDB(t)
	ctx := context.Background()

	if err := db.WithContext(ctx).Create(&scopedNote{Body: "x"}).Error; !errors.Is(err, tenantcontext.ErrNoTenantContext) {
		t.Fatalf("create: expected ErrNoTenantContext, got %v", err)
	}

	var notes []scopedNote
	if err := db.WithContext(ctx).Find(&notes).Error; !errors.Is(err, tenantcontext.ErrNoTenantContext) {
		t.Fatalf("query: expected ErrNoTenantContext, got %v", err)
	}

	if err := db.WithContext(ctx).Model(&scopedNote{}).Where("body = ?", "x").Update("body", "y").Error; !errors.Is(err, tenantcontext.ErrNoTenantContext) {
		t.Fatalf("update: expected ErrNoTenantContext, got %v", err)
	}
}

func TestReadsNeverCrossTenants(t *testing.T) {
	db := setupScopeTestDB(t)
	ctxA := tenantcontext.WithTenant(context.Background(), "tenant-a")
	ctxB := tenantcontext.WithTenant(context.Background(), "tenant-b")

	if err := db.WithContext(ctxA).Create(&scopedNote{Body: "secret-a"}).Error; err != nil {
		t.Fatalf("create under A: %v", err)
	}

	var fromB []scopedNote
	if err := db.WithContext(ctxB).Find(&fromB).Error; err != nil {
		t.Fatalf("find under B: %v", err)
	}
	if len(fromB) != 0 {
		t.Fatalf("tenant B observed %d of tenant A's rows", len(fromB))
	}

	// Even a filter built to match A's rows stays confined to B.
	var stolen []scopedNote
	if err := db.WithContext(ctxB).Where("tenant_id = ?", "tenant-a").Find(&stolen).Error; err != nil {
		t.Fatalf("hostile filter under B: %v", err)
	}
	if len(stolen) != 0 {
		t.Fatalf("hostile filter escaped scoping, got %d rows", len(stolen))
	}

	var fromA []scopedNote
	if err := db.WithContext(ctxA).Find(&fromA).Error; err != nil {
		t.Fatalf("find under A: %v", err)
	}
	if len(fromA) != 1 {
		t.Fatalf("tenant A expected its own row, got %d", len(fromA))
	}
}

func TestUpdatesAndDeletesAreScoped(t *testing.T) {
	db := setupScopeTestDB(t)
	ctxA := tenantcontext.WithTenant(context.Background(), "tenant-a")
	ctxB := tenantcontext.WithTenant(context.Background(), "tenant-b")

	if err := db.WithContext(ctxA).Create(&scopedNote{Body: "original"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	res := db.WithContext(ctxB).Model(&scopedNote{}).Where("body = ?", "original").Update("body", "tampered")
	if res.Error != nil {
		t.Fatalf("update under B: %v", res.Error)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("tenant B updated %d of tenant A's rows", res.RowsAffected)
	}

	res = db.WithContext(ctxB).Where("body = ?", "original").Delete(&scopedNote{})
	if res.Error != nil {
		t.Fatalf("delete under B: %v", res.Error)
	}
	if res.RowsAffected != 0 {
		t.Fatalf("tenant B deleted %d of tenant A's rows", res.RowsAffected)
	}

	var note scopedNote
	if err := db.WithContext(ctxA).First(&note, "body = ?", "original").Error; err != nil {
		t.Fatalf("tenant A's row must survive: %v", err)
	}
}

func TestModelsWithoutTenantFieldPassThrough(t *testing.T) {
	db := setupScopeTestDB(t)
	ctx := context.Background()

	if err := db.WithContext(ctx).Create(&globalSetting{Key: "version", Value: "1"}).Error; err != nil {
		t.Fatalf("create unscoped model: %v", err)
	}
	var settings []globalSetting
	if err := db.WithContext(ctx).Find(&settings).Error; err != nil {
		t.Fatalf("find unscoped model: %v", err)
	}
	if len(settings) != 1 {
		t.Fatalf("expected 1 setting, got %d", len(settings))
	}
}
