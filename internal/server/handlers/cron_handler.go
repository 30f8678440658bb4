package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/service/autoentry"
)

// AutoEntryRunner executes the daily job.
type AutoEntryRunner interface {
	Run(ctx context.Context, today calendar.Date) (autoentry.Result, error)
}

// CronHandler serves the endpoint hit by the external daily trigger.
type CronHandler struct {
	runner     AutoEntryRunner
	normalizer calendar.Normalizer
	logger     *zap.Logger
	now        func() time.Time
}

// NewCronHandler constructs the handler.
func NewCronHandler(runner AutoEntryRunner, normalizer calendar.Normalizer, logger *zap.Logger) *CronHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronHandler{runner: runner, normalizer: normalizer, logger: logger, now: time.Now}
}

var autoEntryMessages = map[autoentry.Status]string{
	autoentry.StatusDisabled:           "auto entry is disabled",
	autoentry.StatusVacationSuppressed: "vacation mode active, no entry created",
	autoentry.StatusAlreadyExists:      "entry already exists for today",
	autoentry.StatusCreated:            "auto entry created",
}

// DailyMilkEntry runs the auto-entry job for today.
func (h *CronHandler) DailyMilkEntry(c *gin.Context) {
	today := h.normalizer.Today(h.now())

	result, err := h.runner.Run(c.Request.Context(), today)
	if err != nil {
		h.logger.Error("auto entry job failed", zap.String("date", string(today)), zap.Error(err))
		respondServiceError(c, err)
		return
	}

	status := http.StatusOK
	if result.Status == autoentry.StatusCreated {
		status = http.StatusCreated
	}
	respondOK(c, status, gin.H{
		"status": result.Status,
		"date":   result.Date,
		"entry":  result.Entry,
	}, autoEntryMessages[result.Status])
}
