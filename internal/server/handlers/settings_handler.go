package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/service/settings"
)

// SettingsService manages the auto-entry defaults and vacation window.
type SettingsService interface {
	Defaults(ctx context.Context) (models.Defaults, error)
	UpdateDefaults(ctx context.Context, input settings.DefaultsInput) (models.Defaults, error)
	SetVacationWindow(ctx context.Context, from, to *calendar.Date) (settings.VacationStatus, error)
	VacationStatus(ctx context.Context) (settings.VacationStatus, error)
}

// SettingsHandler serves the settings routes.
type SettingsHandler struct {
	svc    SettingsService
	logger *zap.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(svc SettingsService, logger *zap.Logger) *SettingsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsHandler{svc: svc, logger: logger}
}

type defaultsView struct {
	AutoEntryEnabled bool            `json:"auto_entry_enabled"`
	DefaultQuantity  decimal.Decimal `json:"default_quantity"`
	DefaultRate      decimal.Decimal `json:"default_rate"`
	VacationFrom     *calendar.Date  `json:"vacation_from"`
	VacationTo       *calendar.Date  `json:"vacation_to"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func newDefaultsView(d models.Defaults) defaultsView {
	from, to := d.Window().Bounds()
	return defaultsView{
		AutoEntryEnabled: d.AutoEntryEnabled,
		DefaultQuantity:  d.DefaultQuantity,
		DefaultRate:      d.DefaultRate,
		VacationFrom:     from,
		VacationTo:       to,
		UpdatedAt:        d.UpdatedAt,
	}
}

type defaultsRequest struct {
	AutoEntryEnabled *bool            `json:"auto_entry_enabled"`
	DefaultQuantity  *decimal.Decimal `json:"default_quantity"`
	DefaultRate      *decimal.Decimal `json:"default_rate"`
}

// presentString records whether a JSON key was sent at all, so an absent key
// can be told apart from an explicit null.
type presentString struct {
	Present bool
	Value   *string
}

func (p *presentString) UnmarshalJSON(data []byte) error {
	p.Present = true
	if string(data) == "null" {
		p.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

type vacationRequest struct {
	StartDate presentString `json:"startDate"`
	EndDate   presentString `json:"endDate"`
}

// GetDefaults returns the auto-entry configuration.
func (h *SettingsHandler) GetDefaults(c *gin.Context) {
	d, err := h.svc.Defaults(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, newDefaultsView(d), "defaults fetched")
}

// UpdateDefaults partially updates the auto-entry configuration.
func (h *SettingsHandler) UpdateDefaults(c *gin.Context) {
	var req defaultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid defaults payload", zap.Error(err))
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.svc.UpdateDefaults(c.Request.Context(), settings.DefaultsInput{
		AutoEntryEnabled: req.AutoEntryEnabled,
		DefaultQuantity:  req.DefaultQuantity,
		DefaultRate:      req.DefaultRate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, newDefaultsView(d), "defaults updated")
}

// GetVacation reports the vacation window and whether it covers today.
func (h *SettingsHandler) GetVacation(c *gin.Context) {
	status, err := h.svc.VacationStatus(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, status, "vacation status fetched")
}

// SetVacation replaces the vacation window. Both keys are required; sending
// both as null disables it.
func (h *SettingsHandler) SetVacation(c *gin.Context) {
	var req vacationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid vacation payload", zap.Error(err))
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.StartDate.Present || !req.EndDate.Present {
		RespondError(c, http.StatusBadRequest, "startDate and endDate are required")
		return
	}

	from, err := optionalDate(req.StartDate.Value)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	to, err := optionalDate(req.EndDate.Value)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	status, err := h.svc.SetVacationWindow(c.Request.Context(), from, to)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	message := "vacation mode updated"
	if status.From == nil {
		message = "vacation mode disabled"
	}
	respondOK(c, http.StatusOK, status, message)
}

func optionalDate(raw *string) (*calendar.Date, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := calendar.ParseDate(*raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
