package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	billingdomain "github.com/upeosms/upeo/internal/billing/domain"
	ledgerdomain "github.com/upeosms/upeo/internal/ledger/domain"
	messagedomain "github.com/upeosms/upeo/internal/message/domain"
	pricingdomain "github.com/upeosms/upeo/internal/pricing/domain"
	quotadomain "github.com/upeosms/upeo/internal/quota/domain"
	ratingdomain "github.com/upeosms/upeo/internal/rating/domain"
)

type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Message }

func invalidRequestError() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body or query could not be parsed",
	}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Field:   field,
		Message: message,
	}
}

// AbortWithError maps domain errors onto HTTP responses. Unrecognized
// errors become an opaque 500 so internals never leak to clients.
func AbortWithError(c *gin.Context, err error) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	status, code := classify(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
			"code":    code,
			"message": "internal server error",
		}})
		return
	}

	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code":    code,
		"message": err.Error(),
	}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ledgerdomain.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, messagedomain.ErrMessageNotFound):
		return http.StatusNotFound, "message_not_found"
	case errors.Is(err, pricingdomain.ErrRuleNotFound):
		return http.StatusNotFound, "pricing_rule_not_found"

	case errors.Is(err, ledgerdomain.ErrInsufficientBalance):
		return http.StatusPaymentRequired, "insufficient_balance"
	case errors.Is(err, quotadomain.ErrSendRateExceeded):
		return http.StatusTooManyRequests, "send_rate_exceeded"

	// Sends are blocked until an admin provisions the global rule.
	case errors.Is(err, pricingdomain.ErrNoGlobalRule):
		return http.StatusServiceUnavailable, "no_global_pricing_rule"
	case errors.Is(err, pricingdomain.ErrVersionConflict):
		return http.StatusConflict, "pricing_rule_conflict"

	case errors.Is(err, billingdomain.ErrEmptyMessage),
		errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, messagedomain.ErrNotTerminal),
		errors.Is(err, ratingdomain.ErrNoMatchingTier),
		errors.Is(err, ratingdomain.ErrZeroParts),
		errors.Is(err, pricingdomain.ErrInvalidCurrency),
		errors.Is(err, pricingdomain.ErrInvalidMode),
		errors.Is(err, pricingdomain.ErrInvalidCapacity),
		errors.Is(err, pricingdomain.ErrEmptyTiers),
		errors.Is(err, pricingdomain.ErrInvalidTierRange),
		errors.Is(err, pricingdomain.ErrNegativePrice):
		return http.StatusBadRequest, "validation_failed"
	}

	return http.StatusInternalServerError, "internal_error"
}
