package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 5; i++ {
		if !rl.Allow("key", 5, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("key", 5, time.Minute) {
		t.Error("6th request should be denied")
	}
	if !rl.Allow("other", 5, time.Minute) {
		t.Error("keys must be limited independently")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		rl.Allow("key", 3, time.Minute)
	}
	if rl.Allow("key", 3, time.Minute) {
		t.Fatal("should be blocked inside the window")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.Allow("key", 3, time.Minute) {
		t.Fatal("should be allowed after the window resets")
	}

	now = now.Add(2 * time.Minute)
	rl.Cleanup()
	if len(rl.entries) != 0 {
		t.Fatalf("Cleanup left %d entries", len(rl.entries))
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimit(NewRateLimiter(), 2, time.Minute))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v, want [200 200 429]", codes)
	}
}

func TestRateLimitIgnoresForwardedHeaderFromUntrustedPeer(t *testing.T) {
	r := newEngine(RateLimit(NewRateLimiter(), 2, time.Minute))
	if err := r.SetTrustedProxies(nil); err != nil {
		t.Fatalf("SetTrustedProxies returned error: %v", err)
	}

	allowed := 0
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		}
	}
	if allowed != 2 {
		t.Fatalf("allowed %d of 10 requests with rotated X-Forwarded-For, want 2", allowed)
	}
}

func TestRateLimitHonoursTrustedProxy(t *testing.T) {
	r := newEngine(RateLimit(NewRateLimiter(), 1, time.Minute))
	if err := r.SetTrustedProxies([]string{"10.0.0.0/8"}); err != nil {
		t.Fatalf("SetTrustedProxies returned error: %v", err)
	}

	for _, client := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.0.0.5:443"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("client %s behind trusted proxy got %d, want 200", client, w.Code)
		}
	}
}

func TestRequireSecrets(t *testing.T) {
	tests := []struct {
		name   string
		mw     gin.HandlerFunc
		header string
		value  string
		want   int
	}{
		{name: "pin ok", mw: RequirePIN("1234"), header: PINHeader, value: "1234", want: http.StatusOK},
		{name: "pin wrong", mw: RequirePIN("1234"), header: PINHeader, value: "0000", want: http.StatusUnauthorized},
		{name: "pin missing", mw: RequirePIN("1234"), want: http.StatusUnauthorized},
		{name: "empty configured pin", mw: RequirePIN(""), header: PINHeader, value: "", want: http.StatusUnauthorized},
		{name: "cron ok", mw: RequireCronSecret("s3cret"), header: CronSecretHeader, value: "s3cret", want: http.StatusOK},
		{name: "cron sent as pin", mw: RequireCronSecret("s3cret"), header: PINHeader, value: "s3cret", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(tt.mw)
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID(), ZapLogger(nil))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q, want abc-123", got)
	}
}
