package export

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/repository/sheets"
)

// Target ranges in the spreadsheet.
const (
	LedgerRange  = "Ledger!A:F"
	SummaryRange = "Summary!A:F"
)

var (
	// ErrDisabled is returned when no spreadsheet is configured.
	ErrDisabled = errors.New("sheets export is not configured")
	// ErrAlreadyExported is returned when the Summary sheet already has a row for the month.
	ErrAlreadyExported = errors.New("month already exported")
)

// Ledger is the read side of the ledger service used for exports.
type Ledger interface {
	ListMonth(ctx context.Context, month calendar.MonthKey) ([]models.MilkEntry, error)
	MonthlySummary(ctx context.Context, month calendar.MonthKey) (models.MonthlySummary, error)
}

// Result reports what was pushed.
type Result struct {
	Month      calendar.MonthKey `json:"month"`
	LedgerRows int               `json:"ledger_rows"`
	ExportedAt time.Time         `json:"exported_at"`
}

// Service pushes a month's entries and summary to Google Sheets.
type Service struct {
	sheets sheets.Repository
	ledger Ledger
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires the exporter. A nil sheets repository disables it.
func NewService(repo sheets.Repository, ledger Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{sheets: repo, ledger: ledger, logger: logger, now: time.Now}
}

// Enabled reports whether a spreadsheet is attached.
func (s *Service) Enabled() bool {
	return s != nil && s.sheets != nil
}

// ExportMonth appends one Ledger row per entry (oldest first) and one Summary
// row. Months without entries fail with ledger.ErrNoData and months already in
// the Summary sheet fail with ErrAlreadyExported, both before anything is written.
func (s *Service) ExportMonth(ctx context.Context, month calendar.MonthKey) (Result, error) {
	if !s.Enabled() {
		return Result{}, ErrDisabled
	}

	summary, err := s.ledger.MonthlySummary(ctx, month)
	if err != nil {
		return Result{}, err
	}
	entries, err := s.ledger.ListMonth(ctx, month)
	if err != nil {
		return Result{}, err
	}

	exported, err := s.alreadyExported(ctx, month)
	if err != nil {
		return Result{}, err
	}
	if exported {
		return Result{}, fmt.Errorf("%w: %s", ErrAlreadyExported, month)
	}

	rows := make([][]interface{}, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		rows = append(rows, ledgerRow(month, entries[i]))
	}

	if err := s.sheets.WriteRows(ctx, LedgerRange, rows); err != nil {
		return Result{}, fmt.Errorf("export ledger rows for %s: %w", month, err)
	}

	exportedAt := s.now().UTC()
	if err := s.sheets.WriteRow(ctx, SummaryRange, summaryRow(summary)); err != nil {
		return Result{}, fmt.Errorf("export summary for %s: %w", month, err)
	}

	s.logger.Info("month exported to sheets", zap.String("month", string(month)), zap.Int("rows", len(rows)))
	return Result{Month: month, LedgerRows: len(rows), ExportedAt: exportedAt}, nil
}

// alreadyExported looks for month in the first column of the Summary sheet.
func (s *Service) alreadyExported(ctx context.Context, month calendar.MonthKey) (bool, error) {
	existing, err := s.sheets.ReadRange(ctx, SummaryRange)
	if err != nil {
		return false, fmt.Errorf("read summary rows for %s: %w", month, err)
	}
	for _, row := range existing {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == string(month) {
			return true, nil
		}
	}
	return false, nil
}

func ledgerRow(month calendar.MonthKey, e models.MilkEntry) []interface{} {
	return []interface{}{
		string(month),
		string(e.Date),
		e.Quantity.String(),
		e.Rate.String(),
		e.Amount().StringFixed(2),
		string(e.Source),
	}
}

func summaryRow(summary models.MonthlySummary) []interface{} {
	paid := "unpaid"
	if summary.Payment.Paid {
		paid = "paid"
	}
	return []interface{}{
		string(summary.Month),
		summary.TotalQuantity.String(),
		summary.TotalAmount.StringFixed(2),
		summary.EntryCount,
		paid,
		formatBreakdown(summary.QuantityBreakdown),
	}
}

func formatBreakdown(breakdown map[string]string) string {
	labels := make([]string, 0, len(breakdown))
	for label := range breakdown {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	parts := make([]string, 0, len(labels))
	for _, label := range labels {
		parts = append(parts, label+": "+breakdown[label])
	}
	return strings.Join(parts, ", ")
}
