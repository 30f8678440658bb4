package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/domain/vacation"
	"github.com/mamadbah2/milktracker/internal/repository"
)

var (
	// ErrDefaultsNotFound is returned when the configuration row is missing.
	ErrDefaultsNotFound = errors.New("milk defaults not configured")
	// ErrInvalidDefaults indicates a negative default quantity or rate.
	ErrInvalidDefaults = errors.New("invalid milk defaults")
)

// DefaultsInput is a partial update; nil fields keep their stored value.
type DefaultsInput struct {
	AutoEntryEnabled *bool
	DefaultQuantity  *decimal.Decimal
	DefaultRate      *decimal.Decimal
}

// VacationStatus reports the stored window and whether it covers today.
type VacationStatus struct {
	From   *calendar.Date `json:"vacationFrom"`
	To     *calendar.Date `json:"vacationTo"`
	Active bool           `json:"active"`
}

// Service manages the singleton auto-entry configuration.
type Service struct {
	store      repository.DefaultsStore
	normalizer calendar.Normalizer
	logger     *zap.Logger
	now        func() time.Time
}

// NewService wires the settings service.
func NewService(store repository.DefaultsStore, normalizer calendar.Normalizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, normalizer: normalizer, logger: logger, now: time.Now}
}

// Defaults returns the stored configuration.
func (s *Service) Defaults(ctx context.Context) (models.Defaults, error) {
	d, err := s.store.GetDefaults(ctx)
	if err != nil {
		return models.Defaults{}, s.mapErr("get milk defaults", err)
	}
	return d, nil
}

// UpdateDefaults changes the enabled flag, quantity and rate without touching the vacation window.
func (s *Service) UpdateDefaults(ctx context.Context, input DefaultsInput) (models.Defaults, error) {
	if input.DefaultQuantity != nil && input.DefaultQuantity.IsNegative() {
		return models.Defaults{}, fmt.Errorf("%w: quantity must not be negative", ErrInvalidDefaults)
	}
	if input.DefaultRate != nil && input.DefaultRate.IsNegative() {
		return models.Defaults{}, fmt.Errorf("%w: rate must not be negative", ErrInvalidDefaults)
	}

	current, err := s.Defaults(ctx)
	if err != nil {
		return models.Defaults{}, err
	}
	if input.AutoEntryEnabled != nil {
		current.AutoEntryEnabled = *input.AutoEntryEnabled
	}
	if input.DefaultQuantity != nil {
		current.DefaultQuantity = *input.DefaultQuantity
	}
	if input.DefaultRate != nil {
		current.DefaultRate = *input.DefaultRate
	}

	updated, err := s.store.UpdateDefaults(ctx, current)
	if err != nil {
		return models.Defaults{}, s.mapErr("update milk defaults", err)
	}

	s.logger.Info("milk defaults updated",
		zap.Bool("auto_entry_enabled", updated.AutoEntryEnabled),
		zap.String("quantity", updated.DefaultQuantity.String()),
		zap.String("rate", updated.DefaultRate.String()))
	return updated, nil
}

// SetVacationWindow replaces the vacation window. Both bounds nil clears it;
// a single bound or from after to fails with vacation.ErrInvalidRange before any write.
func (s *Service) SetVacationWindow(ctx context.Context, from, to *calendar.Date) (VacationStatus, error) {
	window, err := vacation.New(from, to)
	if err != nil {
		return VacationStatus{}, err
	}

	updated, err := s.store.UpdateVacationWindow(ctx, window)
	if err != nil {
		return VacationStatus{}, s.mapErr("update vacation window", err)
	}

	status := s.status(updated.Window())
	if status.From == nil {
		s.logger.Info("vacation mode disabled")
	} else {
		s.logger.Info("vacation mode updated",
			zap.String("from", string(*status.From)),
			zap.String("to", string(*status.To)),
			zap.Bool("active", status.Active))
	}
	return status, nil
}

// VacationStatus reports the stored window against today.
func (s *Service) VacationStatus(ctx context.Context) (VacationStatus, error) {
	d, err := s.Defaults(ctx)
	if err != nil {
		return VacationStatus{}, err
	}
	return s.status(d.Window()), nil
}

// EvaluateVacation reports whether ref falls inside w.
func (s *Service) EvaluateVacation(w vacation.Window, ref calendar.Date) bool {
	return vacation.IsActive(w, ref)
}

func (s *Service) status(w vacation.Window) VacationStatus {
	from, to := w.Bounds()
	return VacationStatus{
		From:   from,
		To:     to,
		Active: s.EvaluateVacation(w, s.normalizer.Today(s.now())),
	}
}

func (s *Service) mapErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrDefaultsNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
