package tenantcontext

import (
	"context"
	"errors"
	"strings"
)

type contextKey string

const (
	tenantIDKey contextKey = "tenant_id"
	systemKey   contextKey = "tenant_system"
)

var (
	// ErrNoTenantContext is returned when tenant-owned data is touched
	// outside a bound tenant scope. Treated as a security defect, not a
	// recoverable condition: scoped operations fail closed.
	ErrNoTenantContext = errors.New("no_tenant_context")

	// ErrInvalidTenant is returned when a caller tries to bind an empty
	// tenant identifier.
	ErrInvalidTenant = errors.New("invalid_tenant")
)

// WithTenant binds a tenant identifier to the context. The binding lives
// only as long as the derived context, so concurrent operations never
// observe each other's tenant.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ctx
	}
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantID returns the tenant bound to ctx, or ErrNoTenantContext when
// called outside a bound scope.
func TenantID(ctx context.Context) (string, error) {
	value, _ := ctx.Value(tenantIDKey).(string)
	if value == "" {
		return "", ErrNoTenantContext
	}
	return value, nil
}

// RunWithTenant executes fn with tenantID bound for the dynamic extent of
// the call. The binding is carried by the derived context and cannot leak
// into unrelated operations.
func RunWithTenant(ctx context.Context, tenantID string, fn func(ctx context.Context) error) error {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrInvalidTenant
	}
	return fn(WithTenant(ctx, tenantID))
}

// WithSystem marks ctx as a system scope. System scopes are the explicit
// bypass used by migrations, seeding and cross-tenant background work;
// scoped queries under them are exempt from tenant injection.
func WithSystem(ctx context.Context) context.Context {
	return context.WithValue(ctx, systemKey, true)
}

// IsSystem reports whether ctx carries the system bypass marker.
func IsSystem(ctx context.Context) bool {
	value, _ := ctx.Value(systemKey).(bool)
	return value
}
