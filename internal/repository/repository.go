package repository

import (
	"context"
	"errors"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/domain/vacation"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict signals a uniqueness violation (entry date or payment month).
	ErrConflict = errors.New("record already exists")
	// ErrStorage marks failures of the underlying driver. Stores join it with the driver error.
	ErrStorage = errors.New("storage error")
)

// DefaultsStore covers the singleton auto-entry configuration.
type DefaultsStore interface {
	GetDefaults(ctx context.Context) (models.Defaults, error)
	// EnsureDefaults inserts d only when no configuration row exists yet.
	EnsureDefaults(ctx context.Context, d models.Defaults) error
	// UpdateDefaults writes the enabled flag, quantity and rate. The vacation window is left untouched.
	UpdateDefaults(ctx context.Context, d models.Defaults) (models.Defaults, error)
	// UpdateVacationWindow replaces both bounds in a single write.
	UpdateVacationWindow(ctx context.Context, w vacation.Window) (models.Defaults, error)
}

// EntryStore covers milk entries.
type EntryStore interface {
	// FindEntryByDate returns nil without error when no entry exists for the day.
	FindEntryByDate(ctx context.Context, date calendar.Date) (*models.MilkEntry, error)
	// InsertEntry returns ErrConflict when an entry already exists for the day.
	InsertEntry(ctx context.Context, entry models.MilkEntry) (models.MilkEntry, error)
	GetEntry(ctx context.Context, id string) (models.MilkEntry, error)
	ListEntries(ctx context.Context) ([]models.MilkEntry, error)
	// ListEntriesInRange returns entries with start <= date < end, oldest first.
	ListEntriesInRange(ctx context.Context, start, end calendar.Date) ([]models.MilkEntry, error)
	UpdateEntry(ctx context.Context, entry models.MilkEntry) (models.MilkEntry, error)
	DeleteEntry(ctx context.Context, id string) error
}

// PaymentStore covers monthly payments.
type PaymentStore interface {
	// FindPaymentByMonthKey returns nil without error when the month is unpaid.
	FindPaymentByMonthKey(ctx context.Context, month calendar.MonthKey) (*models.Payment, error)
	// InsertPayment returns ErrConflict when the month already has a payment.
	InsertPayment(ctx context.Context, payment models.Payment) (models.Payment, error)
	ListPayments(ctx context.Context) ([]models.Payment, error)
}

// Store is the full persistence surface implemented by the sqlite and mongodb adapters.
type Store interface {
	DefaultsStore
	EntryStore
	PaymentStore
	Close(ctx context.Context) error
}
