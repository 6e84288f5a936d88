package migration

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module applies pending migrations on startup, before anything else
// touches the schema.
var Module = fx.Module("migration",
	fx.Invoke(Run),
)

type appliedMigration struct {
	Version string `gorm:"primaryKey;type:text"`
}

func (appliedMigration) TableName() string { return "schema_migrations" }

// Run applies every embedded .up.sql file not yet recorded in
// schema_migrations, in lexical order. Each migration runs in its own
// transaction under a system scope.
func Run(lc fx.Lifecycle, db *gorm.DB, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return apply(ctx, db, log.Named("migration"))
		},
	})
}

func apply(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	ctx = tenantcontext.WithSystem(ctx)

	if err := db.WithContext(ctx).AutoMigrate(&appliedMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := fs.Glob(migrationFS, migrationsDir+"/*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, file := range files {
		version := strings.TrimSuffix(strings.TrimPrefix(file, migrationsDir+"/"), ".up.sql")

		var count int64
		if err := db.WithContext(ctx).
			Model(&appliedMigration{}).
			Where("version = ?", version).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		raw, err := migrationFS.ReadFile(file)
		if err != nil {
			return err
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, stmt := range splitStatements(string(raw)) {
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("migration %s: %w", version, err)
				}
			}
			return tx.Create(&appliedMigration{Version: version}).Error
		})
		if err != nil {
			return err
		}
		log.Info("migration applied", zap.String("version", version))
	}
	return nil
}

func splitStatements(script string) []string {
	parts := strings.Split(script, ";")
	statements := make([]string, 0, len(parts))
	for _, part := range parts {
		stmt := strings.TrimSpace(part)
		if stmt == "" {
			continue
		}
		statements = append(statements, stmt)
	}
	return statements
}
