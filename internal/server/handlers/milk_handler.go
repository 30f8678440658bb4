package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/service/export"
	"github.com/mamadbah2/milktracker/internal/service/ledger"
)

// LedgerService is the entry and aggregation surface used by MilkHandler.
type LedgerService interface {
	Create(ctx context.Context, input ledger.EntryInput) (models.MilkEntry, error)
	List(ctx context.Context) ([]models.MilkEntry, error)
	Get(ctx context.Context, id string) (models.MilkEntry, error)
	Update(ctx context.Context, id string, input ledger.EntryInput) (models.MilkEntry, error)
	Delete(ctx context.Context, id string) error
	ListMonth(ctx context.Context, month calendar.MonthKey) ([]models.MilkEntry, error)
	MonthlySummary(ctx context.Context, month calendar.MonthKey) (models.MonthlySummary, error)
}

// Exporter pushes a month to an external spreadsheet.
type Exporter interface {
	ExportMonth(ctx context.Context, month calendar.MonthKey) (export.Result, error)
}

// MilkHandler serves milk entries and monthly summaries.
type MilkHandler struct {
	ledger     LedgerService
	exporter   Exporter
	normalizer calendar.Normalizer
	logger     *zap.Logger
}

// NewMilkHandler constructs the handler. A nil exporter answers export requests with 503.
func NewMilkHandler(ledgerSvc LedgerService, exporter Exporter, normalizer calendar.Normalizer, logger *zap.Logger) *MilkHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MilkHandler{ledger: ledgerSvc, exporter: exporter, normalizer: normalizer, logger: logger}
}

type entryRequest struct {
	// Date accepts "YYYY-MM-DD", RFC 3339 or epoch seconds/milliseconds.
	Date     any                 `json:"date"`
	Quantity *decimal.Decimal    `json:"quantity"`
	Rate     *decimal.Decimal    `json:"rate"`
	Total    decimal.NullDecimal `json:"total"`
	Notes    string              `json:"notes"`
}

// entryView renders an entry with both its calendar day and epoch milliseconds.
type entryView struct {
	models.MilkEntry
	Epoch int64 `json:"epoch"`
}

func (h *MilkHandler) view(e models.MilkEntry) entryView {
	epoch, err := h.normalizer.ToEpoch(e.Date)
	if err != nil {
		h.logger.Warn("stored entry has invalid date", zap.String("id", e.ID), zap.String("date", string(e.Date)))
	}
	return entryView{MilkEntry: e, Epoch: epoch}
}

func (h *MilkHandler) views(entries []models.MilkEntry) []entryView {
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, h.view(e))
	}
	return out
}

func (h *MilkHandler) bindEntry(c *gin.Context) (ledger.EntryInput, bool) {
	var req entryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid entry payload", zap.Error(err))
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return ledger.EntryInput{}, false
	}
	if req.Date == nil || req.Quantity == nil || req.Rate == nil {
		RespondError(c, http.StatusBadRequest, "date, quantity and rate are required")
		return ledger.EntryInput{}, false
	}
	return ledger.EntryInput{
		Date:     req.Date,
		Quantity: *req.Quantity,
		Rate:     *req.Rate,
		Total:    req.Total,
		Notes:    req.Notes,
	}, true
}

// ListEntries returns every entry, newest first.
func (h *MilkHandler) ListEntries(c *gin.Context) {
	entries, err := h.ledger.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing entries", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, h.views(entries), "entries fetched")
}

// CreateEntry records a manual entry.
func (h *MilkHandler) CreateEntry(c *gin.Context) {
	input, ok := h.bindEntry(c)
	if !ok {
		return
	}

	entry, err := h.ledger.Create(c.Request.Context(), input)
	if err != nil {
		h.logger.Warn("failed creating entry", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, h.view(entry), "entry created")
}

// GetEntry returns one entry.
func (h *MilkHandler) GetEntry(c *gin.Context) {
	entry, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, h.view(entry), "entry fetched")
}

// UpdateEntry replaces an entry's fields.
func (h *MilkHandler) UpdateEntry(c *gin.Context) {
	input, ok := h.bindEntry(c)
	if !ok {
		return
	}

	entry, err := h.ledger.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		h.logger.Warn("failed updating entry", zap.String("id", c.Param("id")), zap.Error(err))
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, h.view(entry), "entry updated")
}

// DeleteEntry removes an entry.
func (h *MilkHandler) DeleteEntry(c *gin.Context) {
	if err := h.ledger.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, nil, "entry deleted")
}

// ListMonth returns a month's entries, newest first.
func (h *MilkHandler) ListMonth(c *gin.Context) {
	entries, err := h.ledger.ListMonth(c.Request.Context(), calendar.MonthKey(c.Param("monthYear")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, h.views(entries), "entries fetched")
}

// MonthSummary returns the aggregated ledger for a month.
func (h *MilkHandler) MonthSummary(c *gin.Context) {
	summary, err := h.ledger.MonthlySummary(c.Request.Context(), calendar.MonthKey(c.Param("monthYear")))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, summary, "summary fetched")
}

// ExportMonth pushes a month to Google Sheets.
func (h *MilkHandler) ExportMonth(c *gin.Context) {
	if h.exporter == nil {
		respondServiceError(c, export.ErrDisabled)
		return
	}

	result, err := h.exporter.ExportMonth(c.Request.Context(), calendar.MonthKey(c.Param("monthYear")))
	if err != nil {
		h.logger.Error("failed exporting month", zap.String("month", c.Param("monthYear")), zap.Error(err))
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result, "month exported")
}
