package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/truthlens/models"
)

// respondError writes err as a models.ErrorResponse with the status its
// code maps to. Context expiry is reported as a timeout.
func respondError(c *gin.Context, err error) {
	var e *models.Error
	switch {
	case errors.As(err, &e):
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		e = models.NewError(models.ErrCodeTimeout, "verification did not finish in time", err)
	default:
		e = models.NewError(models.ErrCodeInternal, err.Error(), err)
	}

	c.AbortWithStatusJSON(statusFor(e), models.ErrorResponse{Error: e.ToDetail()})
}

// statusFor translates error codes to HTTP status codes.
func statusFor(e *models.Error) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeLLMFailure:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput, models.ErrCodeExtraction:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	case models.ErrCodeBackendOffline, models.ErrCodeLLMAuthFailure:
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}
