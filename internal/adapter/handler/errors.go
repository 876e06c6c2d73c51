package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rl1809/bizdesk/internal/core/domain"
	"github.com/rl1809/bizdesk/internal/core/gate"
	"github.com/rl1809/bizdesk/internal/core/service"
	"github.com/rl1809/bizdesk/internal/obs"
)

// statusFor maps a service error to its HTTP status and response body.
func statusFor(err error) (int, gin.H) {
	var (
		ve      *service.ValidationError
		pve     *domain.PaymentValidationError
		decline *domain.DeclineError
	)
	if pw, ok := gate.AsPaywall(err); ok {
		return http.StatusPaymentRequired, gin.H{"error": "paywall", "feature": pw.Feature}
	}
	switch {
	case errors.As(err, &decline):
		return http.StatusPaymentRequired, gin.H{"error": "payment_declined", "reason": decline.Reason}
	case errors.As(err, &pve):
		return http.StatusUnprocessableEntity, gin.H{"error": pve.Message}
	case errors.As(err, &ve):
		return http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field}
	case service.IsNotFound(err):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, service.ErrInvalidQuantity):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrDuplicateRequest),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrPaymentInFlight),
		errors.Is(err, service.ErrAlreadyPro):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, gin.H{"error": "Invalid email or password"}
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusUnauthorized, gin.H{"error": err.Error()}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, gin.H{"error": "request cancelled"}
	}
	return http.StatusInternalServerError, gin.H{"error": "internal error"}
}

func fail(c *gin.Context, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		obs.Logger.Error("http_internal_error",
			"path", c.FullPath(),
			"request_id", c.GetString(ctxRequestID),
			"error", err,
		)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
