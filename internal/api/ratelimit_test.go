package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-snooze/internal/auth"
)

func TestClientLimiter_Burst(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := newClientLimiter(60, 2)
	l.now = func() time.Time { return now }

	if !l.allow("10.0.0.1") || !l.allow("10.0.0.1") {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.allow("10.0.0.1") {
		t.Error("third request in the same instant should be limited")
	}
	if !l.allow("10.0.0.2") {
		t.Error("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if !l.allow("10.0.0.1") {
		t.Error("one token per second should refill at 60/min")
	}
}

func TestClientLimiter_Defaults(t *testing.T) {
	l := newClientLimiter(0, 0)
	if l.burst != defaultBurst {
		t.Errorf("burst = %d, want %d", l.burst, defaultBurst)
	}
}

func TestClientLimiter_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := newClientLimiter(60, 2)
	l.now = func() time.Time { return now }

	l.allow("10.0.0.1")
	now = now.Add(limiterIdleTTL / 2)
	l.allow("10.0.0.2")

	now = now.Add(limiterIdleTTL/2 + time.Second)
	l.sweep()

	if l.size() != 1 {
		t.Errorf("size after sweep = %d, want 1", l.size())
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) {
		d.Security.RateLimit.Enabled = true
		d.Security.RateLimit.RequestsPerMinute = 1
		d.Security.RateLimit.Burst = 2
	})

	for i := range 2 {
		if w := env.do(t, http.MethodGet, "/api/v1/snooze", "", auth.RoleViewer); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, w.Code)
		}
	}

	w := env.do(t, http.MethodGet, "/api/v1/snooze", "", auth.RoleViewer)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if e := decodeError(t, w); e.Code != ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", e.Code, ErrCodeRateLimited)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}

	// Health checks are never limited.
	if w := env.do(t, http.MethodGet, "/api/v1/health", "", ""); w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", w.Code)
	}
}

func TestClientAddr(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[2001:db8::1]:80", "2001:db8::1"},
		{"no-port", "no-port"},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if got := clientAddr(r); got != tt.want {
				t.Errorf("clientAddr() = %q, want %q", got, tt.want)
			}
		})
	}
}
