package httpserver

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	"storefront/internal/functions"
	cartrepo "storefront/internal/repository/cart"
	"storefront/internal/service/checkout"
	"storefront/internal/session"
)

func statusFor(err error) int {
	var fnErr *functions.StatusError
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrLastAddress),
		errors.Is(err, domain.ErrDefaultAddress),
		errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, checkout.ErrInvalidTransition),
		errors.Is(err, checkout.ErrSubmitInFlight),
		errors.Is(err, checkout.ErrStepIncomplete),
		errors.Is(err, session.ErrNoCheckout),
		errors.Is(err, cartrepo.ErrCartContention):
		return http.StatusConflict
	case errors.Is(err, functions.ErrUnavailable), errors.As(err, &fnErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorBody(err error, status int) gin.H {
	body := gin.H{"error": err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body["field"] = verr.Field
		body["error"] = verr.Message
	}
	if status == http.StatusInternalServerError {
		body["error"] = "internal error"
	}
	return body
}

func writeError(c *gin.Context, logger *log.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Printf("http: %s %s status=%d error=%v", c.Request.Method, c.FullPath(), status, err)
	}
	c.JSON(status, errorBody(err, status))
}

func bindJSON(c *gin.Context, logger *log.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, logger, domain.Invalid("", "malformed request body: "+err.Error()))
		return false
	}
	return true
}

func int64Param(c *gin.Context, logger *log.Logger, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		writeError(c, logger, domain.Invalid(name, "must be a positive integer"))
		return 0, false
	}
	return v, true
}
