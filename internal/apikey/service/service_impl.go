package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/apikey/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/cache"
	"github.com/UniqBrio/UniqBrio-sub017/internal/clock"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/logger"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	keyPrefix       = "ub_"
	resolveCacheTTL = 30 * time.Second
	resolveCacheMax = 1024
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository

	resolved cache.Cache[string, resolvedKey]
}

type resolvedKey struct {
	tenantID string
	disabled bool
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("apikey.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		resolved: cache.NewTTLCache[string, resolvedKey](resolveCacheMax),
	}
}

func (s *Service) Mint(ctx context.Context, name string) (string, *domain.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, domain.ErrInvalidName
	}
	tenantID, err := tenantcontext.TenantID(ctx)
	if err != nil {
		return "", nil, err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate key material: %w", err)
	}
	raw := keyPrefix + hex.EncodeToString(buf)

	key := &domain.APIKey{
		ID:       s.genID.Generate(),
		TenantID: tenantID,
		Name:     name,
		KeyHash:  domain.HashAPIKey(raw),
	}
	if err := s.repo.Insert(ctx, s.db, key); err != nil {
		return "", nil, err
	}

	s.log.Info("api key minted",
		zap.String("tenant_id", tenantID),
		zap.String("name", name),
		zap.String("key", logger.MaskAPIKey(raw)),
	)
	return raw, key, nil
}

// Resolve looks the raw key up by its SHA-256 digest under a system
// scope; the lookup is what establishes tenant identity, so it cannot
// itself be tenant-scoped. Equality is established by the exact digest
// match in the lookup, so no further comparison happens here.
func (s *Service) Resolve(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrKeyNotFound
	}
	hash := domain.HashAPIKey(raw)

	if hit, ok := s.resolved.Get(hash); ok {
		return s.check(hit)
	}

	key, err := s.repo.FindByHash(tenantcontext.WithSystem(ctx), s.db, hash)
	if err != nil {
		return "", err
	}
	entry := resolvedKey{tenantID: key.TenantID, disabled: key.Disabled}
	s.resolved.Set(hash, entry, resolveCacheTTL)

	go s.touchLastUsed(key.KeyHash)
	return s.check(entry)
}

func (s *Service) check(entry resolvedKey) (string, error) {
	if entry.disabled {
		return "", domain.ErrKeyDisabled
	}
	return entry.tenantID, nil
}

func (s *Service) Disable(ctx context.Context, raw string) error {
	hash := domain.HashAPIKey(strings.TrimSpace(raw))
	if err := s.repo.Disable(ctx, s.db, hash); err != nil {
		return err
	}
	s.resolved.Delete(hash)
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.APIKey, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) touchLastUsed(keyHash string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := s.clock.Now()
	err := s.db.WithContext(tenantcontext.WithSystem(ctx)).
		Model(&domain.APIKey{}).
		Where("key_hash = ?", keyHash).
		Update("last_used_at", now).Error
	if err != nil {
		s.log.Warn("last_used_at update failed", zap.Error(err))
	}
}
