package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/bwmarrin/snowflake"
)

// APIKey maps a hashed inbound credential to the tenant it
// authenticates. Only the hash is ever stored; the raw key is shown once
// at mint time.
type APIKey struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	TenantID   string       `gorm:"type:text;not null;index"`
	Name       string       `gorm:"type:text;not null"`
	KeyHash    string       `gorm:"type:text;not null;uniqueIndex:ux_tenant_api_keys_hash"`
	Disabled   bool         `gorm:"not null;default:false"`
	LastUsedAt *time.Time
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "tenant_api_keys" }

// HashAPIKey derives the stored digest for a raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
