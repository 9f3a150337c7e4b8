package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	earningsdomain "github.com/trovio/settled/internal/earnings/domain"
	payoutdomain "github.com/trovio/settled/internal/payout/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, payoutdomain.ErrInvalidSeller),
		errors.Is(err, payoutdomain.ErrInvalidOrderItem),
		errors.Is(err, earningsdomain.ErrInvalidSeller):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, payoutdomain.ErrOrderItemNotFound),
		errors.Is(err, payoutdomain.ErrPaymentNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, payoutdomain.ErrOrderItemNotDelivered):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "invalid_state",
			Message: "order item must be delivered first",
		}
	case errors.Is(err, payoutdomain.ErrBalanceUpdateFailed):
		// Transient: the caller may retry, the payout item idempotency key
		// makes retries safe.
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "transient",
			Message: "balance update failed, retry",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
