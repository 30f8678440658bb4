package autoentry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/domain/vacation"
	"github.com/mamadbah2/milktracker/internal/repository"
)

// ErrConfigNotFound is returned when the milk defaults row does not exist.
var ErrConfigNotFound = errors.New("milk defaults not configured")

// Note tags entries written by the daily job.
const Note = "auto entry (daily job)"

// Status is the terminal outcome of a successful run.
type Status string

const (
	StatusDisabled           Status = "disabled"
	StatusVacationSuppressed Status = "vacation_suppressed"
	StatusAlreadyExists      Status = "already_exists"
	StatusCreated            Status = "created"
)

// Result describes what a run did. Entry is set for AlreadyExists (when known) and Created.
type Result struct {
	Status Status
	Date   calendar.Date
	Entry  *models.MilkEntry
}

// Store is the persistence the job needs.
type Store interface {
	GetDefaults(ctx context.Context) (models.Defaults, error)
	FindEntryByDate(ctx context.Context, date calendar.Date) (*models.MilkEntry, error)
	InsertEntry(ctx context.Context, entry models.MilkEntry) (models.MilkEntry, error)
}

// Service runs the daily auto-entry job. It holds no state between runs.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService wires the auto-entry job.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Run creates today's entry from the saved defaults unless auto entry is
// disabled, the day is inside the vacation window, or the day already has an
// entry. Running it any number of times for the same day leaves exactly one entry.
func (s *Service) Run(ctx context.Context, today calendar.Date) (Result, error) {
	today, err := calendar.ParseDate(string(today))
	if err != nil {
		return Result{}, err
	}
	result := Result{Date: today}

	defaults, err := s.store.GetDefaults(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("auto entry aborted: defaults missing", zap.String("date", string(today)))
			return Result{}, fmt.Errorf("%w: %w", ErrConfigNotFound, err)
		}
		s.logger.Error("auto entry failed reading defaults", zap.String("date", string(today)), zap.Error(err))
		return Result{}, fmt.Errorf("load milk defaults: %w", err)
	}

	return s.run(ctx, defaults, result)
}

func (s *Service) run(ctx context.Context, defaults models.Defaults, result Result) (Result, error) {
	today := result.Date

	if !defaults.AutoEntryEnabled {
		result.Status = StatusDisabled
		s.logger.Info("auto entry disabled", zap.String("date", string(today)))
		return result, nil
	}

	if vacation.IsActive(defaults.Window(), today) {
		result.Status = StatusVacationSuppressed
		s.logger.Info("auto entry suppressed by vacation", zap.String("date", string(today)))
		return result, nil
	}

	existing, err := s.store.FindEntryByDate(ctx, today)
	if err != nil {
		s.logger.Error("auto entry failed checking existing entry", zap.String("date", string(today)), zap.Error(err))
		return Result{}, fmt.Errorf("check entry for %s: %w", today, err)
	}
	if existing != nil {
		result.Status = StatusAlreadyExists
		result.Entry = existing
		s.logger.Info("auto entry skipped: entry exists", zap.String("date", string(today)), zap.String("entry_id", existing.ID))
		return result, nil
	}

	created, err := s.store.InsertEntry(ctx, models.MilkEntry{
		Date:     today,
		Quantity: defaults.DefaultQuantity,
		Rate:     defaults.DefaultRate,
		Notes:    Note,
		Source:   models.SourceAuto,
	})
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			// Another run inserted the same day between our check and insert.
			result.Status = StatusAlreadyExists
			s.logger.Info("auto entry skipped: insert lost race", zap.String("date", string(today)))
			return result, nil
		}
		s.logger.Error("auto entry insert failed", zap.String("date", string(today)), zap.Error(err))
		return Result{}, fmt.Errorf("insert entry for %s: %w", today, err)
	}

	result.Status = StatusCreated
	result.Entry = &created
	s.logger.Info("auto entry created",
		zap.String("date", string(today)),
		zap.String("entry_id", created.ID),
		zap.String("quantity", created.Quantity.String()),
		zap.String("rate", created.Rate.String()))
	return result, nil
}
