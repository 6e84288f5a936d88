package seed

import (
	"context"
	"errors"

	apikeydomain "github.com/UniqBrio/UniqBrio-sub017/internal/apikey/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/config"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultTenantID = "demo-academy"
	defaultKeyName  = "bootstrap"

	// Development bootstrap credential. Printed nowhere; documented in
	// the dev setup notes.
	defaultRawKey = "ub_dev_bootstrap_key"
)

// Module seeds a default tenant API key on startup in development mode.
var Module = fx.Module("seed",
	fx.Invoke(Run),
)

func Run(lc fx.Lifecycle, db *gorm.DB, log *zap.Logger, cfg config.Config, genID *snowflake.Node) {
	if !cfg.SeedEnabled {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return EnsureDefaultTenant(ctx, db, log.Named("seed"), genID)
		},
	})
}

// EnsureDefaultTenant creates the demo tenant's bootstrap API key if it
// does not exist yet. Runs under a system scope because it happens before
// any tenant is authenticated.
func EnsureDefaultTenant(ctx context.Context, db *gorm.DB, log *zap.Logger, genID *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	ctx = tenantcontext.WithSystem(ctx)

	hash := apikeydomain.HashAPIKey(defaultRawKey)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing apikeydomain.APIKey
		err := tx.WithContext(ctx).First(&existing, "key_hash = ?", hash).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		key := apikeydomain.APIKey{
			ID:       genID.Generate(),
			TenantID: defaultTenantID,
			Name:     defaultKeyName,
			KeyHash:  hash,
		}
		if err := tx.WithContext(ctx).Create(&key).Error; err != nil {
			return err
		}
		log.Info("default tenant seeded", zap.String("tenant_id", defaultTenantID))
		return nil
	})
}
