package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/UniqBrio/UniqBrio-sub017/internal/auditcontext"
	"github.com/UniqBrio/UniqBrio-sub017/internal/observability/metrics"
	"github.com/UniqBrio/UniqBrio-sub017/internal/subscription/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type createPlanRequest struct {
	SubjectID         string   `json:"subjectId" binding:"required"`
	PlanType          string   `json:"planType" binding:"required"`
	BaseAmount        float64  `json:"baseAmount" binding:"required"`
	DiscountedAmount  *float64 `json:"discountedAmount"`
	CommitmentPeriods *int     `json:"commitmentPeriods"`
	FirstDueDate      *string  `json:"firstDueDate"`
	Actor             string   `json:"actor"`
}

type paymentRequest struct {
	PaymentAmount float64 `json:"paymentAmount" binding:"required"`
	PaymentDate   string  `json:"paymentDate" binding:"required"`
	PaymentMethod string  `json:"paymentMethod" binding:"required"`
	TransactionID *string `json:"transactionId"`
	ReceivedBy    string  `json:"receivedBy" binding:"required"`
	Notes         *string `json:"notes"`
}

type transitionRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func (s *Server) CreatePlan(c *gin.Context) {
	var req createPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var firstDue *time.Time
	if req.FirstDueDate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.FirstDueDate)
		if err != nil {
			AbortWithError(c, newValidationError("firstDueDate", "format", "firstDueDate must be RFC 3339"))
			return
		}
		firstDue = &parsed
	}

	plan, err := s.subscriptionSvc.Create(c.Request.Context(), domain.CreatePlanRequest{
		SubjectID:         req.SubjectID,
		PlanType:          domain.PlanType(strings.ToUpper(strings.TrimSpace(req.PlanType))),
		BaseAmount:        req.BaseAmount,
		DiscountedAmount:  req.DiscountedAmount,
		CommitmentPeriods: req.CommitmentPeriods,
		FirstDueDate:      firstDue,
		Actor:             actorOrDefault(c, req.Actor),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, "plan.created", "subscription_plan", plan.ID.String(), map[string]any{
		"subject_id": plan.SubjectID,
		"plan_type":  string(plan.PlanType),
	})
	c.JSON(http.StatusCreated, gin.H{"plan": plan})
}

func (s *Server) GetPlan(c *gin.Context) {
	planID, ok := parseSnowflakeParam(c, "id")
	if !ok {
		return
	}
	plan, err := s.subscriptionSvc.Get(c.Request.Context(), planID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func (s *Server) ListSubjectPlans(c *gin.Context) {
	subjectID := strings.TrimSpace(c.Param("id"))
	plans, err := s.subscriptionSvc.ListBySubject(c.Request.Context(), subjectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

// ProcessPayment drives one billing period forward. The response carries
// both the advanced plan and the committed ledger entry.
func (s *Server) ProcessPayment(c *gin.Context) {
	planID, ok := parseSnowflakeParam(c, "id")
	if !ok {
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	paidDate, err := time.Parse(time.RFC3339, req.PaymentDate)
	if err != nil {
		AbortWithError(c, newValidationError("paymentDate", "format", "paymentDate must be RFC 3339"))
		return
	}

	ctx := auditcontext.WithPlanID(c.Request.Context(), planID.String())
	plan, entry, err := s.subscriptionSvc.ProcessRecurringPayment(ctx, planID, domain.Charge{
		Amount:         req.PaymentAmount,
		PaidDate:       paidDate,
		PaymentMode:    req.PaymentMethod,
		TransactionRef: req.TransactionID,
		ReceivedBy:     req.ReceivedBy,
		Notes:          req.Notes,
	})
	if err != nil {
		metrics.Billing().IncPaymentProcessed(paymentResult(err))
		AbortWithError(c, err)
		return
	}
	metrics.Billing().IncPaymentProcessed("recorded")

	s.audit(c, "payment.recorded", "subscription_plan", planID.String(), map[string]any{
		"invoice_number": entry.InvoiceNumber,
		"period_number":  entry.PeriodNumber,
		"amount":         entry.Amount,
	})
	c.JSON(http.StatusOK, gin.H{"plan": plan, "transaction": entry})
}

func (s *Server) PausePlan(c *gin.Context) {
	s.transition(c, "plan.paused", func(ctx *gin.Context, planID snowflake.ID, req transitionRequest) (*domain.SubscriptionPlan, error) {
		return s.subscriptionSvc.Pause(ctx.Request.Context(), planID, actorOrDefault(ctx, req.Actor))
	})
}

func (s *Server) ResumePlan(c *gin.Context) {
	s.transition(c, "plan.resumed", func(ctx *gin.Context, planID snowflake.ID, req transitionRequest) (*domain.SubscriptionPlan, error) {
		return s.subscriptionSvc.Resume(ctx.Request.Context(), planID, actorOrDefault(ctx, req.Actor))
	})
}

func (s *Server) CancelPlan(c *gin.Context) {
	s.transition(c, "plan.cancelled", func(ctx *gin.Context, planID snowflake.ID, req transitionRequest) (*domain.SubscriptionPlan, error) {
		return s.subscriptionSvc.Cancel(ctx.Request.Context(), planID, actorOrDefault(ctx, req.Actor), req.Reason)
	})
}

func (s *Server) transition(c *gin.Context, action string, apply func(*gin.Context, snowflake.ID, transitionRequest) (*domain.SubscriptionPlan, error)) {
	planID, ok := parseSnowflakeParam(c, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, invalidRequestError())
			return
		}
	}

	plan, err := apply(c, planID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit(c, action, "subscription_plan", planID.String(), map[string]any{
		"status": string(plan.Status),
	})
	c.JSON(http.StatusOK, gin.H{"plan": plan})
}

func paymentResult(err error) string {
	switch translate(err).Status {
	case http.StatusConflict:
		return "conflict"
	case http.StatusBadRequest:
		return "rejected"
	default:
		return "failed"
	}
}
