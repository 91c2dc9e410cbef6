package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestMiddleware_LimitsPerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 2)
	t.Cleanup(l.Close)

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(addr string) int {
		r := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		r.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("192.0.2.1:1000"); code != http.StatusNoContent {
			t.Fatalf("request %d: expected pass, got %d", i+1, code)
		}
	}
	if code := call("192.0.2.1:2000"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after the burst, got %d", code)
	}
	if code := call("192.0.2.2:1000"); code != http.StatusNoContent {
		t.Fatalf("other IPs have their own bucket, got %d", code)
	}
}

func TestSweep_DropsIdleLimiters(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 1)
	t.Cleanup(l.Close)

	l.GetLimiter("idle")
	l.GetLimiter("busy").Allow()

	l.sweep(time.Now())

	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.limits["idle"]; ok {
		t.Fatalf("idle limiter should be removed")
	}
	if _, ok := l.limits["busy"]; !ok {
		t.Fatalf("busy limiter should be kept")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:5555"
	if ClientIP(r) != "198.51.100.4" {
		t.Fatalf("unexpected ip %q", ClientIP(r))
	}
	r.RemoteAddr = ""
	if ClientIP(r) != "unknown_ip" {
		t.Fatalf("unexpected ip %q", ClientIP(r))
	}
}
