package server

import (
	"strings"

	auditdomain "github.com/UniqBrio/UniqBrio-sub017/internal/audit/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/auditcontext"
	obscontext "github.com/UniqBrio/UniqBrio-sub017/internal/observability/context"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/gin-gonic/gin"
)

const (
	contextAuthTypeKey = "auth_type"
	contextTenantIDKey = "tenant_id"
)

// APIKeyRequired authenticates requests with a bearer API key. The
// tenant bound to the request comes exclusively from the key lookup;
// any client-supplied tenant identifier is itself grounds for refusal.
func (s *Server) APIKeyRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if requestHasTenantID(c) {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		tenantID, err := s.apikeySvc.Resolve(c.Request.Context(), parts[1])
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := c.Request.Context()
		ctx = tenantcontext.WithTenant(ctx, tenantID)
		ctx = obscontext.WithTenantID(ctx, tenantID)
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeAPIKey), tenantID)

		c.Set(contextAuthTypeKey, "api_key")
		c.Set(contextTenantIDKey, tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func requestHasTenantID(c *gin.Context) bool {
	if strings.TrimSpace(c.GetHeader("X-Tenant-Id")) != "" {
		return true
	}
	for _, param := range []string{"tenant_id", "tenantId"} {
		if value, ok := c.GetQuery(param); ok && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}
