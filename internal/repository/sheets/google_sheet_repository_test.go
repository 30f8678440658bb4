package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) *GoogleSheetRepository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	service, err := sheetsapi.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("create sheets service: %v", err)
	}
	return NewWithService(service, "sheet-123", nil)
}

func TestWriteRowsAppends(t *testing.T) {
	var gotPath, gotQuery string
	var gotBody sheetsapi.ValueRange

	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"spreadsheetId":"sheet-123"}`))
	})

	rows := [][]interface{}{{"2025-01", "2025-01-01", "1"}, {"2025-01", "2025-01-02", "1.5"}}
	if err := repo.WriteRows(context.Background(), "Ledger!A:F", rows); err != nil {
		t.Fatalf("WriteRows returned error: %v", err)
	}

	if !strings.Contains(gotPath, "/spreadsheets/sheet-123/values/Ledger!A:F:append") {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "valueInputOption=USER_ENTERED") {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(gotBody.Values) != 2 {
		t.Fatalf("appended %d rows, want 2", len(gotBody.Values))
	}
}

func TestReadRange(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"range":"Summary!A1:B2","values":[["month","total"],["2025-01","264"]]}`))
	})

	values, err := repo.ReadRange(context.Background(), "Summary!A1:B2")
	if err != nil {
		t.Fatalf("ReadRange returned error: %v", err)
	}
	if len(values) != 2 || values[1][1] != "264" {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestEmptyRangeRejected(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	if err := repo.WriteRow(context.Background(), "", []interface{}{"x"}); !errors.Is(err, ErrEmptyRange) {
		t.Fatalf("WriteRow error = %v, want ErrEmptyRange", err)
	}
	if _, err := repo.ReadRange(context.Background(), ""); !errors.Is(err, ErrEmptyRange) {
		t.Fatalf("ReadRange error = %v, want ErrEmptyRange", err)
	}
}
