package server

import (
	"net/http"
	"strings"

	"github.com/UniqBrio/UniqBrio-sub017/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type setFeesRequest struct {
	TotalFees float64 `json:"totalFees"`
	Actor     string  `json:"actor"`
}

type reverseRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func (s *Server) ListSubjectTransactions(c *gin.Context) {
	subjectID := strings.TrimSpace(c.Param("id"))

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entries, info, err := s.ledgerSvc.ListBySubject(c.Request.Context(), subjectID, page)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries, "pageInfo": info})
}

func (s *Server) GetSubjectBalance(c *gin.Context) {
	balance, err := s.ledgerSvc.GetBalance(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balance})
}

func (s *Server) GetSubjectSummary(c *gin.Context) {
	summary, err := s.ledgerSvc.GetSummary(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) GetInvoiceBreakdown(c *gin.Context) {
	lines, err := s.ledgerSvc.InvoiceBreakdown(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"breakdown": lines})
}

func (s *Server) SetSubjectFees(c *gin.Context) {
	subjectID := strings.TrimSpace(c.Param("id"))

	var req setFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	summary, err := s.ledgerSvc.SetTotalFees(c.Request.Context(), subjectID, req.TotalFees)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "subject.fees_updated", "subject_ledger", subjectID, map[string]any{
		"total_fees": req.TotalFees,
	})
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (s *Server) ReverseTransaction(c *gin.Context) {
	transactionID, ok := parseSnowflakeParam(c, "id")
	if !ok {
		return
	}

	var req reverseRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	entry, err := s.ledgerSvc.ReverseTransaction(c.Request.Context(), transactionID, actorOrDefault(c, req.Actor))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "transaction.reversed", "payment_transaction", transactionID.String(), map[string]any{
		"reversal_id": entry.ID.String(),
		"reason":      req.Reason,
	})
	c.JSON(http.StatusOK, gin.H{"transaction": entry})
}
