package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/service/payments"
)

// PaymentService records monthly payments.
type PaymentService interface {
	Create(ctx context.Context, input payments.PaymentInput) (models.Payment, error)
	GetByMonth(ctx context.Context, monthKey string) (models.Payment, error)
	List(ctx context.Context) ([]models.Payment, error)
}

// PaymentHandler serves the payment routes.
type PaymentHandler struct {
	svc    PaymentService
	logger *zap.Logger
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(svc PaymentService, logger *zap.Logger) *PaymentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentHandler{svc: svc, logger: logger}
}

type paymentRequest struct {
	MonthYear  string           `json:"month_year"`
	AmountPaid *decimal.Decimal `json:"amount_paid"`
	PaidOn     any              `json:"paid_on"`
	Notes      string           `json:"notes"`
}

// List returns all payments, latest month first.
func (h *PaymentHandler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("failed listing payments", zap.Error(err))
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, list, "payments fetched")
}

// GetByMonth returns the payment of a month.
func (h *PaymentHandler) GetByMonth(c *gin.Context) {
	payment, err := h.svc.GetByMonth(c.Request.Context(), c.Param("monthYear"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusOK, payment, "payment fetched")
}

// Create records a month's payment.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid payment payload", zap.Error(err))
		RespondError(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MonthYear == "" || req.AmountPaid == nil {
		RespondError(c, http.StatusBadRequest, "month_year and amount_paid are required")
		return
	}

	payment, err := h.svc.Create(c.Request.Context(), payments.PaymentInput{
		MonthKey:   req.MonthYear,
		AmountPaid: *req.AmountPaid,
		PaidOn:     req.PaidOn,
		Notes:      req.Notes,
	})
	if err != nil {
		h.logger.Warn("failed creating payment", zap.String("month", req.MonthYear), zap.Error(err))
		respondServiceError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, payment, "payment recorded")
}
