package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/sequence/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxAttempts    = 5
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = 200 * time.Millisecond
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("sequence.service"),
		genID: p.GenID,
	}
}

func (s *Service) Next(ctx context.Context, name string) (int64, error) {
	var value int64
	err := s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			allocated, err := s.allocate(ctx, tx, name)
			if err != nil {
				return err
			}
			value = allocated
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (s *Service) NextTx(ctx context.Context, tx *gorm.DB, name string) (int64, error) {
	if tx == nil {
		return s.Next(ctx, name)
	}
	return s.allocate(ctx, tx, name)
}

func (s *Service) NextInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	value, err := s.NextTx(ctx, tx, domain.NameInvoice)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("INV-%06d", value), nil
}

func (s *Service) NextEntityCode(ctx context.Context, name, prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		return "", domain.ErrInvalidName
	}
	value, err := s.Next(ctx, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%04d", prefix, value), nil
}

// allocate performs upsert-if-absent then an atomic increment, reading the
// committed value back inside the same transaction. The row update is the
// single linearization point: concurrent callers for one key serialize on
// it and observe consecutive values.
func (s *Service) allocate(ctx context.Context, tx *gorm.DB, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	if err := tx.WithContext(ctx).Exec(
		`INSERT INTO sequences (id, tenant_id, name, next_value, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)
		 ON CONFLICT (tenant_id, name) DO NOTHING`,
		s.genID.Generate(),
		tenantID,
		name,
		now,
		now,
	).Error; err != nil {
		return 0, err
	}

	if err := tx.WithContext(ctx).Exec(
		`UPDATE sequences
		 SET next_value = next_value + 1, updated_at = ?
		 WHERE tenant_id = ? AND name = ?`,
		now,
		tenantID,
		name,
	).Error; err != nil {
		return 0, err
	}

	var value int64
	if err := tx.WithContext(ctx).Raw(
		`SELECT next_value
		 FROM sequences
		 WHERE tenant_id = ? AND name = ?`,
		tenantID,
		name,
	).Scan(&value).Error; err != nil {
		return 0, err
	}
	if value <= 0 {
		return 0, domain.ErrSequenceConflict
	}
	return value, nil
}

// withRetry retries transient storage contention with bounded backoff.
// A value is only ever returned from a committed transaction, so a retry
// can never surface a reused value.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
		s.log.Debug("sequence allocation contended",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return err
}

func isTransient(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, marker := range []string{"database is locked", "busy", "deadlock", "serialization", "could not serialize"} {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}
