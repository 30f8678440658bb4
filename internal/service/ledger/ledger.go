package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/repository"
)

var (
	// ErrNoData is returned when a month has no entries.
	ErrNoData = errors.New("no entries found for this month")
	// ErrEntryExists is returned when the day already has an entry.
	ErrEntryExists = errors.New("entry for this date already present")
	// ErrEntryNotFound is returned for unknown entry ids.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidEntry indicates negative or missing quantity/rate values.
	ErrInvalidEntry = errors.New("invalid entry")
)

// Store is the persistence the ledger needs.
type Store interface {
	repository.EntryStore
	FindPaymentByMonthKey(ctx context.Context, month calendar.MonthKey) (*models.Payment, error)
}

// EntryInput carries a client write. Date accepts anything calendar.Normalizer understands.
type EntryInput struct {
	Date     any
	Quantity decimal.Decimal
	Rate     decimal.Decimal
	Total    decimal.NullDecimal
	Notes    string
}

// Service exposes entry CRUD and monthly aggregation.
type Service struct {
	store      Store
	normalizer calendar.Normalizer
	logger     *zap.Logger
}

// NewService wires a ledger service.
func NewService(store Store, normalizer calendar.Normalizer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, normalizer: normalizer, logger: logger}
}

// Create records a manual entry. A second entry for the same day is rejected.
func (s *Service) Create(ctx context.Context, input EntryInput) (models.MilkEntry, error) {
	entry, err := s.buildEntry(input)
	if err != nil {
		return models.MilkEntry{}, err
	}

	existing, err := s.store.FindEntryByDate(ctx, entry.Date)
	if err != nil {
		return models.MilkEntry{}, fmt.Errorf("check entry for %s: %w", entry.Date, err)
	}
	if existing != nil {
		return models.MilkEntry{}, ErrEntryExists
	}

	entry.Source = models.SourceManual
	created, err := s.store.InsertEntry(ctx, entry)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return models.MilkEntry{}, ErrEntryExists
		}
		return models.MilkEntry{}, fmt.Errorf("create entry: %w", err)
	}

	s.logger.Info("entry created", zap.String("date", string(created.Date)), zap.String("entry_id", created.ID))
	return created, nil
}

// List returns every entry, newest first.
func (s *Service) List(ctx context.Context) ([]models.MilkEntry, error) {
	entries, err := s.store.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (models.MilkEntry, error) {
	entry, err := s.store.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.MilkEntry{}, ErrEntryNotFound
		}
		return models.MilkEntry{}, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// Update replaces date, quantity, rate, total and notes of an entry.
func (s *Service) Update(ctx context.Context, id string, input EntryInput) (models.MilkEntry, error) {
	entry, err := s.buildEntry(input)
	if err != nil {
		return models.MilkEntry{}, err
	}
	entry.ID = id

	updated, err := s.store.UpdateEntry(ctx, entry)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return models.MilkEntry{}, ErrEntryNotFound
		case errors.Is(err, repository.ErrConflict):
			return models.MilkEntry{}, ErrEntryExists
		}
		return models.MilkEntry{}, fmt.Errorf("update entry: %w", err)
	}
	return updated, nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteEntry(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEntryNotFound
		}
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// ListMonth returns the month's entries, newest first.
func (s *Service) ListMonth(ctx context.Context, month calendar.MonthKey) ([]models.MilkEntry, error) {
	entries, err := s.monthEntries(ctx, month)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// MonthlySummary aggregates the month and cross-references its payment.
// It returns ErrNoData when the month has no entries.
func (s *Service) MonthlySummary(ctx context.Context, month calendar.MonthKey) (models.MonthlySummary, error) {
	entries, err := s.monthEntries(ctx, month)
	if err != nil {
		return models.MonthlySummary{}, err
	}
	if len(entries) == 0 {
		return models.MonthlySummary{}, ErrNoData
	}

	payment, err := s.store.FindPaymentByMonthKey(ctx, month)
	if err != nil {
		return models.MonthlySummary{}, fmt.Errorf("find payment for %s: %w", month, err)
	}

	summary, ok := Summarize(month, entries, payment)
	if !ok {
		return models.MonthlySummary{}, ErrNoData
	}

	s.logger.Debug("month summarized",
		zap.String("month", string(month)),
		zap.Int("entries", summary.EntryCount),
		zap.Bool("paid", summary.Payment.Paid))
	return summary, nil
}

func (s *Service) monthEntries(ctx context.Context, month calendar.MonthKey) ([]models.MilkEntry, error) {
	lower, upper, err := calendar.MonthBounds(month)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntriesInRange(ctx, lower, upper)
	if err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", month, err)
	}
	return entries, nil
}

func (s *Service) buildEntry(input EntryInput) (models.MilkEntry, error) {
	date, err := s.normalizer.ToCalendarDate(input.Date)
	if err != nil {
		return models.MilkEntry{}, err
	}
	if input.Quantity.IsNegative() {
		return models.MilkEntry{}, fmt.Errorf("%w: quantity must not be negative", ErrInvalidEntry)
	}
	if input.Rate.IsNegative() {
		return models.MilkEntry{}, fmt.Errorf("%w: rate must not be negative", ErrInvalidEntry)
	}
	if input.Total.Valid && input.Total.Decimal.IsNegative() {
		return models.MilkEntry{}, fmt.Errorf("%w: total must not be negative", ErrInvalidEntry)
	}

	return models.MilkEntry{
		Date:     date,
		Quantity: input.Quantity,
		Rate:     input.Rate,
		Total:    input.Total,
		Notes:    strings.TrimSpace(input.Notes),
	}, nil
}
