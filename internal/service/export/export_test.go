package export

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/repository/sqlite"
	"github.com/mamadbah2/milktracker/internal/service/ledger"
)

type fakeSheets struct {
	rows    map[string][][]interface{}
	err     error
	readErr error
}

func (f *fakeSheets) WriteRow(ctx context.Context, sheetRange string, values []interface{}) error {
	return f.WriteRows(ctx, sheetRange, [][]interface{}{values})
}

func (f *fakeSheets) WriteRows(_ context.Context, sheetRange string, rows [][]interface{}) error {
	if f.err != nil {
		return f.err
	}
	if f.rows == nil {
		f.rows = map[string][][]interface{}{}
	}
	f.rows[sheetRange] = append(f.rows[sheetRange], rows...)
	return nil
}

func (f *fakeSheets) ReadRange(_ context.Context, sheetRange string) ([][]interface{}, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.rows[sheetRange], nil
}

func setupExportTest(t *testing.T) *ledger.Service {
	t.Helper()
	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "milk.db"), nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(context.Background()) })
	return ledger.NewService(repo, calendar.NewNormalizer(time.UTC), nil)
}

func TestExportMonth(t *testing.T) {
	ledgerSvc := setupExportTest(t)
	ctx := context.Background()
	for date, qty := range map[string]string{"2025-01-01": "1", "2025-01-02": "1", "2025-01-03": "1.5", "2025-01-04": "2"} {
		in := ledger.EntryInput{Date: date, Quantity: decimal.RequireFromString(qty), Rate: decimal.NewFromInt(48)}
		if _, err := ledgerSvc.Create(ctx, in); err != nil {
			t.Fatalf("seed %s: %v", date, err)
		}
	}

	sheet := &fakeSheets{}
	svc := NewService(sheet, ledgerSvc, nil)

	result, err := svc.ExportMonth(ctx, "2025-01")
	if err != nil {
		t.Fatalf("ExportMonth returned error: %v", err)
	}
	if result.LedgerRows != 4 {
		t.Fatalf("LedgerRows = %d, want 4", result.LedgerRows)
	}

	ledgerRows := sheet.rows[LedgerRange]
	if len(ledgerRows) != 4 || ledgerRows[0][1] != "2025-01-01" || ledgerRows[3][1] != "2025-01-04" {
		t.Fatalf("unexpected ledger rows: %v", ledgerRows)
	}
	if ledgerRows[2][4] != "72.00" {
		t.Fatalf("amount column = %v, want 72.00", ledgerRows[2][4])
	}

	summaryRows := sheet.rows[SummaryRange]
	if len(summaryRows) != 1 {
		t.Fatalf("summary rows = %d, want 1", len(summaryRows))
	}
	row := summaryRows[0]
	if row[0] != "2025-01" || row[1] != "5.5" || row[2] != "264.00" || row[3] != 4 || row[4] != "unpaid" {
		t.Fatalf("unexpected summary row: %v", row)
	}
	if row[5] != "1 L: 2 days, 1.5 L: 1 day, 2 L: 1 day" {
		t.Fatalf("breakdown column = %q", row[5])
	}
}

func TestExportMonthTwiceDoesNotDuplicateRows(t *testing.T) {
	ledgerSvc := setupExportTest(t)
	ctx := context.Background()
	for _, date := range []string{"2025-01-01", "2025-01-02"} {
		in := ledger.EntryInput{Date: date, Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(48)}
		if _, err := ledgerSvc.Create(ctx, in); err != nil {
			t.Fatalf("seed %s: %v", date, err)
		}
	}

	sheet := &fakeSheets{rows: map[string][][]interface{}{
		SummaryRange: {{"Month", "Quantity", "Amount", "Days", "Payment", "Breakdown"}, {"2024-12", "31", "1488.00", 31, "paid", ""}},
	}}
	svc := NewService(sheet, ledgerSvc, nil)

	if _, err := svc.ExportMonth(ctx, "2025-01"); err != nil {
		t.Fatalf("first ExportMonth returned error: %v", err)
	}
	if _, err := svc.ExportMonth(ctx, "2025-01"); !errors.Is(err, ErrAlreadyExported) {
		t.Fatalf("second ExportMonth error = %v, want ErrAlreadyExported", err)
	}
	if got := len(sheet.rows[LedgerRange]); got != 2 {
		t.Fatalf("ledger rows = %d, want 2", got)
	}
	if got := len(sheet.rows[SummaryRange]); got != 3 {
		t.Fatalf("summary rows = %d, want header, 2024-12 and 2025-01", got)
	}
}

func TestExportMonthStopsWhenSummaryUnreadable(t *testing.T) {
	ledgerSvc := setupExportTest(t)
	ctx := context.Background()
	in := ledger.EntryInput{Date: "2025-01-01", Quantity: decimal.NewFromInt(1), Rate: decimal.NewFromInt(48)}
	if _, err := ledgerSvc.Create(ctx, in); err != nil {
		t.Fatalf("seed: %v", err)
	}

	readErr := errors.New("quota exceeded")
	sheet := &fakeSheets{readErr: readErr}
	svc := NewService(sheet, ledgerSvc, nil)

	if _, err := svc.ExportMonth(ctx, "2025-01"); !errors.Is(err, readErr) {
		t.Fatalf("ExportMonth error = %v, want wrapped read error", err)
	}
	if len(sheet.rows) != 0 {
		t.Fatalf("nothing must be written when the summary cannot be read, got %v", sheet.rows)
	}
}

func TestExportMonthWithoutData(t *testing.T) {
	sheet := &fakeSheets{}
	svc := NewService(sheet, setupExportTest(t), nil)

	if _, err := svc.ExportMonth(context.Background(), "2025-03"); !errors.Is(err, ledger.ErrNoData) {
		t.Fatalf("ExportMonth error = %v, want ErrNoData", err)
	}
	if len(sheet.rows) != 0 {
		t.Fatalf("nothing must be written for an empty month, got %v", sheet.rows)
	}
}

func TestExportDisabled(t *testing.T) {
	svc := NewService(nil, setupExportTest(t), nil)
	if svc.Enabled() {
		t.Fatal("expected exporter to be disabled")
	}
	if _, err := svc.ExportMonth(context.Background(), "2025-01"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("ExportMonth error = %v, want ErrDisabled", err)
	}
}
