package server

import (
	"strings"

	"github.com/UniqBrio/UniqBrio-sub017/internal/auditcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func parseSnowflakeParam(c *gin.Context, name string) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil || raw == "" {
		AbortWithError(c, newValidationError(name, "format", name+" must be a numeric id"))
		return 0, false
	}
	return id, true
}

func actorOrDefault(c *gin.Context, actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	if _, actorID := auditcontext.ActorFromContext(c.Request.Context()); actorID != "" {
		return actorID
	}
	return "api"
}

// audit records an administrative action. Failures are logged, never
// surfaced: the action itself already committed.
func (s *Server) audit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.AuditLog(c.Request.Context(), action, targetType, &targetID, metadata); err != nil {
		s.log.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
}
