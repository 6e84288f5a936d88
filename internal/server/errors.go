package server

import (
	"errors"
	"fmt"
	"net/http"

	apikeydomain "github.com/UniqBrio/UniqBrio-sub017/internal/apikey/domain"
	ingestdomain "github.com/UniqBrio/UniqBrio-sub017/internal/ingest/domain"
	ledgerdomain "github.com/UniqBrio/UniqBrio-sub017/internal/ledger/domain"
	subscriptiondomain "github.com/UniqBrio/UniqBrio-sub017/internal/subscription/domain"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantcontext"
	"github.com/UniqBrio/UniqBrio-sub017/internal/tenant/tenantscope"
	"github.com/gin-gonic/gin"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not_found")
	ErrRateLimited  = errors.New("rate_limited")
)

// APIError is the JSON error body every failure path produces.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  any    `json:"detail,omitempty"`
}

func (e *APIError) Error() string { return e.Code }

func newValidationError(field, rule, message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "validation_error",
		Message: message,
		Detail:  gin.H{"field": field, "rule": rule},
	}
}

func invalidRequestError() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

// AbortWithError translates a domain error into an HTTP response.
// Tenancy violations fail closed as auth errors; they are never softened
// into empty results.
func AbortWithError(c *gin.Context, err error) {
	apiErr := translate(err)
	c.AbortWithStatusJSON(apiErr.Status, apiErr)
}

func translate(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, tenantcontext.ErrNoTenantContext),
		errors.Is(err, apikeydomain.ErrKeyNotFound),
		errors.Is(err, apikeydomain.ErrKeyDisabled):
		return &APIError{Status: http.StatusUnauthorized, Code: "unauthorized", Message: "a valid API key is required"}

	case errors.Is(err, tenantscope.ErrTenantMismatch):
		return &APIError{Status: http.StatusForbidden, Code: "tenant_mismatch", Message: "payload tenant disagrees with the authenticated tenant"}

	case errors.Is(err, ErrNotFound),
		errors.Is(err, subscriptiondomain.ErrPlanNotFound),
		errors.Is(err, ledgerdomain.ErrTransactionNotFound),
		errors.Is(err, ledgerdomain.ErrSubjectNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "not_found", Message: "the requested resource does not exist"}

	case errors.Is(err, subscriptiondomain.ErrAmountMismatch):
		detail := gin.H{}
		var mismatch *subscriptiondomain.AmountMismatchError
		if errors.As(err, &mismatch) {
			detail["submittedAmount"] = mismatch.Submitted
			detail["expectedAmount"] = mismatch.Expected
		}
		return &APIError{
			Status:  http.StatusBadRequest,
			Code:    "amount_mismatch",
			Message: amountMismatchMessage(mismatch),
			Detail:  detail,
		}

	case errors.Is(err, subscriptiondomain.ErrPlanNotActive):
		return &APIError{Status: http.StatusBadRequest, Code: "plan_not_active", Message: "payments are only accepted on active plans"}

	case errors.Is(err, subscriptiondomain.ErrInvalidTransition):
		var transition *subscriptiondomain.TransitionError
		message := "the requested state change is not permitted"
		if errors.As(err, &transition) {
			message = fmt.Sprintf("cannot transition from %s to %s", transition.From, transition.To)
		}
		return &APIError{Status: http.StatusBadRequest, Code: "invalid_state", Message: message}

	case errors.Is(err, subscriptiondomain.ErrInvalidPlan),
		errors.Is(err, subscriptiondomain.ErrInvalidSubject),
		errors.Is(err, subscriptiondomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidSubject),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidEntry),
		errors.Is(err, ledgerdomain.ErrAlreadyReversed),
		errors.Is(err, ingestdomain.ErrInvalidKind):
		return &APIError{Status: http.StatusBadRequest, Code: "validation_error", Message: err.Error()}

	case errors.Is(err, subscriptiondomain.ErrConcurrentUpdate):
		return &APIError{Status: http.StatusConflict, Code: "concurrent_update", Message: "the plan changed while processing; retry the request"}

	case errors.Is(err, ErrRateLimited):
		return &APIError{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "too many requests"}
	}

	return &APIError{Status: http.StatusInternalServerError, Code: "internal_error", Message: "an internal error occurred; no partial writes were committed"}
}

func amountMismatchMessage(mismatch *subscriptiondomain.AmountMismatchError) string {
	if mismatch == nil {
		return "submitted amount does not match the expected amount"
	}
	return fmt.Sprintf("submitted amount %.2f does not match expected amount %.2f", mismatch.Submitted, mismatch.Expected)
}
