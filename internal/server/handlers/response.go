package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/vacation"
	"github.com/mamadbah2/milktracker/internal/service/autoentry"
	"github.com/mamadbah2/milktracker/internal/service/export"
	"github.com/mamadbah2/milktracker/internal/service/ledger"
	"github.com/mamadbah2/milktracker/internal/service/payments"
	"github.com/mamadbah2/milktracker/internal/service/settings"
)

// Response is the JSON envelope returned by every API route.
type Response struct {
	Error   int    `json:"error"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respondOK(c *gin.Context, status int, data any, message string) {
	c.JSON(status, Response{Error: 0, Data: data, Message: message})
}

// RespondError writes the failure envelope and aborts the chain.
func RespondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Error: 1, Data: nil, Message: message})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, calendar.ErrInvalidDateFormat),
		errors.Is(err, vacation.ErrInvalidRange),
		errors.Is(err, ledger.ErrInvalidEntry),
		errors.Is(err, payments.ErrInvalidPayment),
		errors.Is(err, settings.ErrInvalidDefaults):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrNoData),
		errors.Is(err, payments.ErrPaymentNotFound),
		errors.Is(err, settings.ErrDefaultsNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrEntryExists),
		errors.Is(err, payments.ErrPaymentExists),
		errors.Is(err, export.ErrAlreadyExported):
		return http.StatusConflict
	case errors.Is(err, export.ErrDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondServiceError hides internal details behind a generic message for 5xx.
func respondServiceError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
		if errors.Is(err, autoentry.ErrConfigNotFound) {
			message = autoentry.ErrConfigNotFound.Error()
		}
	}
	RespondError(c, status, message)
}
