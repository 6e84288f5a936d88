package server

import (
	"net/http"

	"github.com/UniqBrio/UniqBrio-sub017/internal/ingest/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/metrics"
	"github.com/gin-gonic/gin"
)

type ingestRequest struct {
	Kind string               `json:"kind" binding:"required"`
	Rows []domain.ExternalRow `json:"rows" binding:"required"`
}

func (s *Server) IngestBatch(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.ingestSvc.IngestBatch(c.Request.Context(), req.Kind, req.Rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	m := metrics.Billing()
	m.AddIngestRows(string(domain.RowStatusInserted), result.InsertedCount)
	m.AddIngestRows(string(domain.RowStatusDuplicate), result.DuplicateCount)
	m.AddIngestRows(string(domain.RowStatusInvalid), result.InvalidCount)
	m.AddIngestRows(string(domain.RowStatusError), result.ErrorCount)

	c.JSON(http.StatusOK, result)
}
