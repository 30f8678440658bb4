package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/domain/vacation"
	"github.com/mamadbah2/milktracker/internal/repository"
)

// Repository implements repository.Store on top of gorm and SQLite.
type Repository struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ repository.Store = (*Repository)(nil)

// Open connects to the SQLite file at path (created when missing) and migrates the schema.
func Open(path string, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	path = strings.TrimSpace(path)
	if path == "" {
		path = "milktracker.db"
	}
	if err := ensureParentDir(path); err != nil {
		return nil, fmt.Errorf("prepare sqlite directory: %w", err)
	}

	gdb, err := gorm.Open(gormsqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	return New(gdb, logger)
}

// New wraps an existing gorm connection and migrates the schema.
func New(gdb *gorm.DB, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := gdb.AutoMigrate(&entryRow{}, &defaultsRow{}, &paymentRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	return &Repository{db: gdb, logger: logger}, nil
}

// GetDefaults loads the singleton configuration row.
func (r *Repository) GetDefaults(ctx context.Context) (models.Defaults, error) {
	var row defaultsRow
	if err := r.db.WithContext(ctx).First(&row, defaultsRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Defaults{}, fmt.Errorf("milk defaults: %w", repository.ErrNotFound)
		}
		return models.Defaults{}, storageErr("get milk defaults", err)
	}
	return row.toModel(), nil
}

// EnsureDefaults seeds the configuration row when it does not exist yet.
func (r *Repository) EnsureDefaults(ctx context.Context, d models.Defaults) error {
	from, to := windowColumns(d.Window())
	row := defaultsRow{
		ID:               defaultsRowID,
		AutoEntryEnabled: d.AutoEntryEnabled,
		Quantity:         d.DefaultQuantity,
		Rate:             d.DefaultRate,
		VacationFrom:     from,
		VacationTo:       to,
		UpdatedAt:        time.Now().UTC(),
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return storageErr("seed milk defaults", result.Error)
	}
	if result.RowsAffected > 0 {
		r.logger.Info("milk defaults seeded",
			zap.Bool("auto_entry_enabled", d.AutoEntryEnabled),
			zap.String("quantity", d.DefaultQuantity.String()),
			zap.String("rate", d.DefaultRate.String()))
	}
	return nil
}

// UpdateDefaults writes the auto-entry flag, quantity and rate.
func (r *Repository) UpdateDefaults(ctx context.Context, d models.Defaults) (models.Defaults, error) {
	return r.updateDefaultsRow(ctx, "update milk defaults", map[string]any{
		"auto_entry_enabled": d.AutoEntryEnabled,
		"quantity":           d.DefaultQuantity,
		"rate":               d.DefaultRate,
		"updated_at":         time.Now().UTC(),
	})
}

// UpdateVacationWindow replaces both window bounds in one statement.
func (r *Repository) UpdateVacationWindow(ctx context.Context, w vacation.Window) (models.Defaults, error) {
	from, to := windowColumns(w)
	return r.updateDefaultsRow(ctx, "update vacation window", map[string]any{
		"vacation_from": from,
		"vacation_to":   to,
		"updated_at":    time.Now().UTC(),
	})
}

func (r *Repository) updateDefaultsRow(ctx context.Context, op string, values map[string]any) (models.Defaults, error) {
	result := r.db.WithContext(ctx).Model(&defaultsRow{}).Where("id = ?", defaultsRowID).Updates(values)
	if result.Error != nil {
		return models.Defaults{}, storageErr(op, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.Defaults{}, fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return r.GetDefaults(ctx)
}

// FindEntryByDate returns the entry for date or nil.
func (r *Repository) FindEntryByDate(ctx context.Context, date calendar.Date) (*models.MilkEntry, error) {
	var rows []entryRow
	if err := r.db.WithContext(ctx).Where("date = ?", string(date)).Limit(1).Find(&rows).Error; err != nil {
		return nil, storageErr("find entry by date", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	entry := rows[0].toModel()
	return &entry, nil
}

// InsertEntry creates an entry; a second entry for the same date yields repository.ErrConflict.
func (r *Repository) InsertEntry(ctx context.Context, entry models.MilkEntry) (models.MilkEntry, error) {
	row := entryRowFromModel(entry)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return models.MilkEntry{}, fmt.Errorf("entry for %s: %w", entry.Date, repository.ErrConflict)
		}
		return models.MilkEntry{}, storageErr("insert entry", err)
	}
	r.logger.Debug("entry inserted", zap.String("date", row.Date), zap.Uint("id", row.ID))
	return row.toModel(), nil
}

// GetEntry loads an entry by id.
func (r *Repository) GetEntry(ctx context.Context, id string) (models.MilkEntry, error) {
	pk, ok := parseID(id)
	if !ok {
		return models.MilkEntry{}, fmt.Errorf("entry %q: %w", id, repository.ErrNotFound)
	}
	var row entryRow
	if err := r.db.WithContext(ctx).First(&row, pk).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.MilkEntry{}, fmt.Errorf("entry %q: %w", id, repository.ErrNotFound)
		}
		return models.MilkEntry{}, storageErr("get entry", err)
	}
	return row.toModel(), nil
}

// ListEntries returns every entry, newest first.
func (r *Repository) ListEntries(ctx context.Context) ([]models.MilkEntry, error) {
	var rows []entryRow
	if err := r.db.WithContext(ctx).Order("date DESC").Find(&rows).Error; err != nil {
		return nil, storageErr("list entries", err)
	}
	return entriesToModels(rows), nil
}

// ListEntriesInRange returns entries with start <= date < end, oldest first.
func (r *Repository) ListEntriesInRange(ctx context.Context, start, end calendar.Date) ([]models.MilkEntry, error) {
	var rows []entryRow
	if err := r.db.WithContext(ctx).
		Where("date >= ? AND date < ?", string(start), string(end)).
		Order("date ASC").
		Find(&rows).Error; err != nil {
		return nil, storageErr("list entries in range", err)
	}
	return entriesToModels(rows), nil
}

// UpdateEntry rewrites date, quantity, rate, total and notes of an existing entry.
func (r *Repository) UpdateEntry(ctx context.Context, entry models.MilkEntry) (models.MilkEntry, error) {
	pk, ok := parseID(entry.ID)
	if !ok {
		return models.MilkEntry{}, fmt.Errorf("entry %q: %w", entry.ID, repository.ErrNotFound)
	}

	result := r.db.WithContext(ctx).Model(&entryRow{}).Where("id = ?", pk).Updates(map[string]any{
		"date":       string(entry.Date),
		"quantity":   entry.Quantity,
		"rate":       entry.Rate,
		"total":      entry.Total,
		"notes":      entry.Notes,
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return models.MilkEntry{}, fmt.Errorf("entry for %s: %w", entry.Date, repository.ErrConflict)
		}
		return models.MilkEntry{}, storageErr("update entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return models.MilkEntry{}, fmt.Errorf("entry %q: %w", entry.ID, repository.ErrNotFound)
	}
	return r.GetEntry(ctx, entry.ID)
}

// DeleteEntry removes an entry by id.
func (r *Repository) DeleteEntry(ctx context.Context, id string) error {
	pk, ok := parseID(id)
	if !ok {
		return fmt.Errorf("entry %q: %w", id, repository.ErrNotFound)
	}
	result := r.db.WithContext(ctx).Delete(&entryRow{}, pk)
	if result.Error != nil {
		return storageErr("delete entry", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("entry %q: %w", id, repository.ErrNotFound)
	}
	return nil
}

// FindPaymentByMonthKey returns the payment of the month or nil.
func (r *Repository) FindPaymentByMonthKey(ctx context.Context, month calendar.MonthKey) (*models.Payment, error) {
	var rows []paymentRow
	if err := r.db.WithContext(ctx).Where("month_key = ?", string(month)).Limit(1).Find(&rows).Error; err != nil {
		return nil, storageErr("find payment by month", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	payment := rows[0].toModel()
	return &payment, nil
}

// InsertPayment records a payment; a second payment for the same month yields repository.ErrConflict.
func (r *Repository) InsertPayment(ctx context.Context, payment models.Payment) (models.Payment, error) {
	row := paymentRow{
		MonthKey:   string(payment.MonthKey),
		AmountPaid: payment.AmountPaid,
		PaidOn:     string(payment.PaidOn),
		Notes:      payment.Notes,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return models.Payment{}, fmt.Errorf("payment for %s: %w", payment.MonthKey, repository.ErrConflict)
		}
		return models.Payment{}, storageErr("insert payment", err)
	}
	return row.toModel(), nil
}

// ListPayments returns all payments, latest month first.
func (r *Repository) ListPayments(ctx context.Context) ([]models.Payment, error) {
	var rows []paymentRow
	if err := r.db.WithContext(ctx).Order("month_key DESC").Find(&rows).Error; err != nil {
		return nil, storageErr("list payments", err)
	}
	payments := make([]models.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toModel())
	}
	return payments, nil
}

// Close releases the underlying connection pool.
func (r *Repository) Close(_ context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func entriesToModels(rows []entryRow) []models.MilkEntry {
	entries := make([]models.MilkEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.toModel())
	}
	return entries
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, repository.ErrStorage, err)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func ensureParentDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
