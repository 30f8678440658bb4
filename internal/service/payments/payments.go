package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/repository"
)

var (
	// ErrPaymentExists is returned when the month already has a payment.
	ErrPaymentExists = errors.New("payment for this month already exists")
	// ErrPaymentNotFound is returned when the month has no payment.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrInvalidPayment indicates a negative amount.
	ErrInvalidPayment = errors.New("invalid payment")
)

// PaymentInput carries a client write. PaidOn defaults to today when nil.
type PaymentInput struct {
	MonthKey   string
	AmountPaid decimal.Decimal
	PaidOn     any
	Notes      string
}

// Service records monthly payments.
type Service struct {
	store      repository.PaymentStore
	normalizer calendar.Normalizer
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires the payment service.
func NewService(store repository.PaymentStore, normalizer calendar.Normalizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, normalizer: normalizer, logger: logger, now: time.Now}
}

// Create records the payment of a month. Only one payment per month is kept.
func (s *Service) Create(ctx context.Context, input PaymentInput) (models.Payment, error) {
	month, err := calendar.ParseMonthKey(input.MonthKey)
	if err != nil {
		return models.Payment{}, err
	}
	if input.AmountPaid.IsNegative() {
		return models.Payment{}, fmt.Errorf("%w: amount must not be negative", ErrInvalidPayment)
	}

	paidOn := s.normalizer.Today(s.now())
	if input.PaidOn != nil {
		if paidOn, err = s.normalizer.ToCalendarDate(input.PaidOn); err != nil {
			return models.Payment{}, err
		}
	}

	existing, err := s.store.FindPaymentByMonthKey(ctx, month)
	if err != nil {
		return models.Payment{}, fmt.Errorf("check payment for %s: %w", month, err)
	}
	if existing != nil {
		return models.Payment{}, ErrPaymentExists
	}

	created, err := s.store.InsertPayment(ctx, models.Payment{
		MonthKey:   month,
		AmountPaid: input.AmountPaid,
		PaidOn:     paidOn,
		Notes:      strings.TrimSpace(input.Notes),
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.Payment{}, ErrPaymentExists
		}
		return models.Payment{}, fmt.Errorf("create payment: %w", err)
	}

	s.logger.Info("payment recorded", zap.String("month", string(month)), zap.String("amount", created.AmountPaid.String()))
	return created, nil
}

// GetByMonth returns the payment recorded for month.
func (s *Service) GetByMonth(ctx context.Context, monthKey string) (models.Payment, error) {
	month, err := calendar.ParseMonthKey(monthKey)
	if err != nil {
		return models.Payment{}, err
	}
	payment, err := s.store.FindPaymentByMonthKey(ctx, month)
	if err != nil {
		return models.Payment{}, fmt.Errorf("get payment for %s: %w", month, err)
	}
	if payment == nil {
		return models.Payment{}, ErrPaymentNotFound
	}
	return *payment, nil
}

// List returns all payments, latest month first.
func (s *Service) List(ctx context.Context) ([]models.Payment, error) {
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}
