package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/milktracker/internal/domain/calendar"
	"github.com/mamadbah2/milktracker/internal/domain/models"
	"github.com/mamadbah2/milktracker/internal/repository/sqlite"
	"github.com/mamadbah2/milktracker/internal/service/autoentry"
	"github.com/mamadbah2/milktracker/internal/service/export"
	"github.com/mamadbah2/milktracker/internal/service/ledger"
	"github.com/mamadbah2/milktracker/internal/service/payments"
	"github.com/mamadbah2/milktracker/internal/service/settings"
)

type envelope struct {
	Error   int             `json:"error"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testServer struct {
	engine *gin.Engine
	repo   *sqlite.Repository
	cron   *CronHandler
}

func setupHandlerTest(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := sqlite.Open(filepath.Join(t.TempDir(), "milk.db"), nil)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close(context.Background()) })

	err = repo.EnsureDefaults(context.Background(), models.Defaults{
		AutoEntryEnabled: true,
		DefaultQuantity:  decimal.NewFromInt(1),
		DefaultRate:      decimal.NewFromInt(48),
	})
	if err != nil {
		t.Fatalf("seed defaults: %v", err)
	}

	normalizer := calendar.NewNormalizer(time.UTC)
	ledgerSvc := ledger.NewService(repo, normalizer, nil)
	milk := NewMilkHandler(ledgerSvc, nil, normalizer, nil)
	pay := NewPaymentHandler(payments.NewService(repo, normalizer, nil), nil)
	set := NewSettingsHandler(settings.NewService(repo, normalizer, nil), nil)
	cron := NewCronHandler(autoentry.NewService(repo, nil), normalizer, nil)
	cron.now = func() time.Time { return time.Date(2025, 1, 12, 6, 0, 0, 0, time.UTC) }

	r := gin.New()
	r.GET("/entries", milk.ListEntries)
	r.POST("/entries", milk.CreateEntry)
	r.GET("/entries/:id", milk.GetEntry)
	r.PUT("/entries/:id", milk.UpdateEntry)
	r.DELETE("/entries/:id", milk.DeleteEntry)
	r.GET("/months/:monthYear/entries", milk.ListMonth)
	r.GET("/months/:monthYear/summary", milk.MonthSummary)
	r.POST("/months/:monthYear/export", milk.ExportMonth)
	r.GET("/payments", pay.List)
	r.POST("/payments", pay.Create)
	r.GET("/payments/:monthYear", pay.GetByMonth)
	r.GET("/defaults", set.GetDefaults)
	r.PUT("/defaults", set.UpdateDefaults)
	r.GET("/vacation", set.GetVacation)
	r.POST("/vacation", set.SetVacation)
	r.POST("/cron", cron.DailyMilkEntry)

	return &testServer{engine: r, repo: repo, cron: cron}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode %s %s response %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, env
}

func TestEntryLifecycle(t *testing.T) {
	s := setupHandlerTest(t)

	code, env := s.do(t, http.MethodPost, "/entries", map[string]any{"date": "2025-01-10", "quantity": 1.5, "rate": "48"})
	if code != http.StatusCreated || env.Error != 0 {
		t.Fatalf("create status = %d, envelope %+v", code, env)
	}
	var created struct {
		ID       string `json:"id"`
		Date     string `json:"date"`
		Epoch    int64  `json:"epoch"`
		Quantity string `json:"quantity"`
		Source   string `json:"source"`
	}
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	wantEpoch := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	if created.Date != "2025-01-10" || created.Epoch != wantEpoch || created.Quantity != "1.5" || created.Source != "manual" {
		t.Fatalf("unexpected entry: %+v", created)
	}

	code, env = s.do(t, http.MethodPost, "/entries", map[string]any{"date": wantEpoch + 3600_000, "quantity": 2, "rate": 48})
	if code != http.StatusConflict || env.Error != 1 {
		t.Fatalf("duplicate status = %d, envelope %+v", code, env)
	}

	code, _ = s.do(t, http.MethodPut, "/entries/"+created.ID, map[string]any{"date": "2025-01-11", "quantity": 2, "rate": 48})
	if code != http.StatusOK {
		t.Fatalf("update status = %d", code)
	}

	code, env = s.do(t, http.MethodGet, "/months/2025-01/entries", nil)
	if code != http.StatusOK {
		t.Fatalf("list month status = %d", code)
	}
	var month []map[string]any
	if err := json.Unmarshal(env.Data, &month); err != nil || len(month) != 1 || month[0]["date"] != "2025-01-11" {
		t.Fatalf("unexpected month listing %s (err %v)", env.Data, err)
	}

	if code, _ = s.do(t, http.MethodDelete, "/entries/"+created.ID, nil); code != http.StatusOK {
		t.Fatalf("delete status = %d", code)
	}
	if code, _ = s.do(t, http.MethodGet, "/entries/"+created.ID, nil); code != http.StatusNotFound {
		t.Fatalf("get deleted status = %d, want 404", code)
	}
}

func TestCreateEntryValidation(t *testing.T) {
	s := setupHandlerTest(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing quantity", body: map[string]any{"date": "2025-01-10", "rate": 48}},
		{name: "bad date", body: map[string]any{"date": "10/01/2025", "quantity": 1, "rate": 48}},
		{name: "negative rate", body: map[string]any{"date": "2025-01-10", "quantity": 1, "rate": -1}},
		{name: "not json", body: "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := s.do(t, http.MethodPost, "/entries", tt.body)
			if code != http.StatusBadRequest || env.Error != 1 {
				t.Fatalf("status = %d, envelope %+v", code, env)
			}
		})
	}
}

func TestMonthSummaryAndPayments(t *testing.T) {
	s := setupHandlerTest(t)

	for date, qty := range map[string]float64{"2025-01-01": 1, "2025-01-02": 1, "2025-01-03": 1.5, "2025-01-04": 2} {
		if code, env := s.do(t, http.MethodPost, "/entries", map[string]any{"date": date, "quantity": qty, "rate": 48}); code != http.StatusCreated {
			t.Fatalf("seed %s: %d %+v", date, code, env)
		}
	}

	code, env := s.do(t, http.MethodGet, "/months/2025-01/summary", nil)
	if code != http.StatusOK {
		t.Fatalf("summary status = %d", code)
	}
	var summary struct {
		TotalQuantity     string            `json:"total_quantity"`
		TotalAmount       string            `json:"total_amount"`
		EntryCount        int               `json:"entry_count"`
		QuantityBreakdown map[string]string `json:"quantity_breakdown"`
		Payment           struct {
			Paid bool `json:"paid"`
		} `json:"payment"`
	}
	if err := json.Unmarshal(env.Data, &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalQuantity != "5.5" || summary.TotalAmount != "264" || summary.EntryCount != 4 || summary.Payment.Paid {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.QuantityBreakdown["1 L"] != "2 days" {
		t.Fatalf("unexpected breakdown: %v", summary.QuantityBreakdown)
	}

	if code, _ = s.do(t, http.MethodGet, "/months/2025-02/summary", nil); code != http.StatusNotFound {
		t.Fatalf("empty month status = %d, want 404", code)
	}
	if code, _ = s.do(t, http.MethodGet, "/months/jan/summary", nil); code != http.StatusBadRequest {
		t.Fatalf("invalid month status = %d, want 400", code)
	}

	payment := map[string]any{"month_year": "2025-01", "amount_paid": "264", "paid_on": "2025-02-01"}
	if code, env = s.do(t, http.MethodPost, "/payments", payment); code != http.StatusCreated {
		t.Fatalf("create payment status = %d, %+v", code, env)
	}
	if code, _ = s.do(t, http.MethodPost, "/payments", payment); code != http.StatusConflict {
		t.Fatalf("duplicate payment status = %d, want 409", code)
	}
	if code, _ = s.do(t, http.MethodGet, "/payments/2025-01", nil); code != http.StatusOK {
		t.Fatalf("get payment status = %d", code)
	}
	if code, _ = s.do(t, http.MethodGet, "/payments/2025-03", nil); code != http.StatusNotFound {
		t.Fatalf("missing payment status = %d, want 404", code)
	}

	_, env = s.do(t, http.MethodGet, "/months/2025-01/summary", nil)
	if err := json.Unmarshal(env.Data, &summary); err != nil || !summary.Payment.Paid {
		t.Fatalf("expected paid month, got %s", env.Data)
	}
}

func TestSettingsRoutes(t *testing.T) {
	s := setupHandlerTest(t)

	code, env := s.do(t, http.MethodPut, "/defaults", map[string]any{"auto_entry_enabled": false, "default_rate": "50"})
	if code != http.StatusOK {
		t.Fatalf("update defaults status = %d, %+v", code, env)
	}
	var d struct {
		AutoEntryEnabled bool   `json:"auto_entry_enabled"`
		DefaultQuantity  string `json:"default_quantity"`
		DefaultRate      string `json:"default_rate"`
	}
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decode defaults: %v", err)
	}
	if d.AutoEntryEnabled || d.DefaultQuantity != "1" || d.DefaultRate != "50" {
		t.Fatalf("unexpected defaults: %+v", d)
	}

	code, env = s.do(t, http.MethodPost, "/vacation", map[string]any{"startDate": "2000-01-01", "endDate": "2999-12-31"})
	if code != http.StatusOK {
		t.Fatalf("set vacation status = %d, %+v", code, env)
	}
	var status struct {
		From   *string `json:"vacationFrom"`
		To     *string `json:"vacationTo"`
		Active bool    `json:"active"`
	}
	if err := json.Unmarshal(env.Data, &status); err != nil || !status.Active || *status.From != "2000-01-01" {
		t.Fatalf("unexpected vacation status %s (err %v)", env.Data, err)
	}

	for _, body := range []map[string]any{
		{"startDate": "2025-01-10"},
		{"startDate": "2025-01-20", "endDate": "2025-01-10"},
		{"startDate": "tomorrow", "endDate": "2025-01-10"},
	} {
		if code, _ := s.do(t, http.MethodPost, "/vacation", body); code != http.StatusBadRequest {
			t.Fatalf("vacation %v status = %d, want 400", body, code)
		}
	}

	code, env = s.do(t, http.MethodPost, "/vacation", map[string]any{"startDate": nil, "endDate": nil})
	if code != http.StatusOK || env.Message != "vacation mode disabled" {
		t.Fatalf("clear vacation status = %d, %+v", code, env)
	}
	_, env = s.do(t, http.MethodGet, "/vacation", nil)
	if err := json.Unmarshal(env.Data, &status); err != nil || status.Active || status.From != nil {
		t.Fatalf("expected cleared window, got %s", env.Data)
	}
}

func TestSetVacationRequiresBothKeys(t *testing.T) {
	s := setupHandlerTest(t)

	code, env := s.do(t, http.MethodPost, "/vacation", map[string]any{"startDate": "2025-01-10", "endDate": "2025-01-15"})
	if code != http.StatusOK {
		t.Fatalf("set vacation status = %d, %+v", code, env)
	}

	for _, body := range []map[string]any{
		{},
		{"startDate": "2025-01-10"},
		{"endDate": nil},
		{"startDate": nil},
	} {
		code, env := s.do(t, http.MethodPost, "/vacation", body)
		if code != http.StatusBadRequest || env.Message != "startDate and endDate are required" {
			t.Fatalf("vacation %v = %d %q, want 400 required", body, code, env.Message)
		}
	}

	_, env = s.do(t, http.MethodGet, "/vacation", nil)
	var status struct {
		From *string `json:"vacationFrom"`
		To   *string `json:"vacationTo"`
	}
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.From == nil || *status.From != "2025-01-10" || status.To == nil || *status.To != "2025-01-15" {
		t.Fatalf("rejected requests must keep the window, got %s", env.Data)
	}
}

func TestDailyMilkEntryIsIdempotent(t *testing.T) {
	s := setupHandlerTest(t)

	code, env := s.do(t, http.MethodPost, "/cron", nil)
	if code != http.StatusCreated || env.Message != "auto entry created" {
		t.Fatalf("first run status = %d, %+v", code, env)
	}

	code, env = s.do(t, http.MethodPost, "/cron", nil)
	if code != http.StatusOK {
		t.Fatalf("second run status = %d", code)
	}
	var result struct {
		Status string `json:"status"`
		Date   string `json:"date"`
	}
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Status != string(autoentry.StatusAlreadyExists) || result.Date != "2025-01-12" {
		t.Fatalf("unexpected result: %+v", result)
	}

	entries, err := s.repo.ListEntries(context.Background())
	if err != nil || len(entries) != 1 || entries[0].Source != models.SourceAuto {
		t.Fatalf("expected one auto entry, got %+v (err %v)", entries, err)
	}
}

func TestExportDisabled(t *testing.T) {
	s := setupHandlerTest(t)

	code, env := s.do(t, http.MethodPost, "/months/2025-01/export", nil)
	if code != http.StatusServiceUnavailable || env.Message != export.ErrDisabled.Error() {
		t.Fatalf("export status = %d, %+v", code, env)
	}
}

func TestGetEntryNotFoundContext(t *testing.T) {
	s := setupHandlerTest(t)
	normalizer := calendar.NewNormalizer(time.UTC)
	h := NewMilkHandler(ledger.NewService(s.repo, normalizer, nil), nil, normalizer, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/entries/42", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	h.GetEntry(c)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if env.Error != 1 || env.Message != ledger.ErrEntryNotFound.Error() {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: 2025-01", export.ErrAlreadyExported), http.StatusConflict},
		{payments.ErrPaymentExists, http.StatusConflict},
		{export.ErrDisabled, http.StatusServiceUnavailable},
		{ledger.ErrNoData, http.StatusNotFound},
		{calendar.ErrInvalidDateFormat, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
