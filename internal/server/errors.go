package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	licensedomain "github.com/smartkeys/keyserver/internal/license/domain"
	paymentdomain "github.com/smartkeys/keyserver/internal/payment/domain"
	releasedomain "github.com/smartkeys/keyserver/internal/release/domain"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRateLimited    = errors.New("rate_limited")
	ErrInvalidRequest = errors.New("invalid_request")
)

type errorResponse struct {
	Success       bool   `json:"success"`
	Error         string `json:"error"`
	BoundDeviceID string `json:"bound_device_id,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// ErrorHandlingMiddleware translates domain errors collected during the
// request into the response envelope. Expected license-state outcomes get
// specific statuses and stable machine-readable codes; anything
// unclassified is a plain 500 with internals hidden.
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
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	var mismatch *licensedomain.DeviceMismatchError
	if errors.As(err, &mismatch) {
		// 423 signals "locked by another device", distinct from a generic
		// conflict. Only the device id leaks; names stay private.
		return http.StatusLocked, errorResponse{
			Error:         "device_mismatch",
			BoundDeviceID: mismatch.BoundDeviceID,
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, licensedomain.ErrInvalidRequest),
		errors.Is(err, licensedomain.ErrInvalidUser),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent),
		errors.Is(err, paymentdomain.ErrInvalidBuyer),
		errors.Is(err, paymentdomain.ErrInvalidProvider),
		errors.Is(err, paymentdomain.ErrInvalidSignature):
		return http.StatusBadRequest, errorResponse{Error: errorCode(err, "invalid_request")}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized"}
	case errors.Is(err, licensedomain.ErrDeleteDisabled):
		return http.StatusForbidden, errorResponse{Error: "delete_disabled"}
	case errors.Is(err, licensedomain.ErrNotFound),
		errors.Is(err, releasedomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrProviderNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorResponse{Error: errorCode(err, "not_found")}
	case errors.Is(err, licensedomain.ErrInactive),
		errors.Is(err, licensedomain.ErrWrongSource):
		return http.StatusConflict, errorResponse{Error: errorCode(err, "conflict")}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{Error: "rate_limited"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal_error"}
	}
}

// errorCode prefers the sentinel's own stable name.
func errorCode(err error, fallback string) string {
	switch {
	case errors.Is(err, licensedomain.ErrNotFound):
		return "license_not_found"
	case errors.Is(err, licensedomain.ErrInactive):
		return "license_inactive"
	case errors.Is(err, licensedomain.ErrWrongSource):
		return "license_wrong_source"
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		return "invalid_signature"
	default:
		return fallback
	}
}

// classifyErrorForLog labels errors for the request log without leaking
// internals into responses.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal_error", payload.Error
	case status == http.StatusBadRequest:
		return "validation_error", payload.Error
	default:
		return "domain_error", payload.Error
	}
}
