package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, key *APIKey) error
	FindByHash(ctx context.Context, db *gorm.DB, keyHash string) (*APIKey, error)
	Disable(ctx context.Context, db *gorm.DB, keyHash string) error
	List(ctx context.Context, db *gorm.DB) ([]APIKey, error)
}

// Service is the inbound authorization boundary: the verified tenant id
// resolved from a key is the only source of tenant identity.
type Service interface {
	// Mint creates a key for the ambient tenant and returns the raw
	// credential exactly once.
	Mint(ctx context.Context, name string) (raw string, key *APIKey, err error)
	// Resolve maps a raw inbound key to its tenant id. It runs outside
	// any tenant scope because it is what establishes one.
	Resolve(ctx context.Context, raw string) (tenantID string, err error)
	Disable(ctx context.Context, raw string) error
	List(ctx context.Context) ([]APIKey, error)
}

var (
	ErrKeyNotFound = errors.New("api_key_not_found")
	ErrKeyDisabled = errors.New("api_key_disabled")
	ErrInvalidName = errors.New("invalid_key_name")
)
