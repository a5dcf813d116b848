package ratelimit

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"middleware-gateway/middleware/ratelimit/domain"
	"middleware-gateway/middleware/ratelimit/infra"
)

var fixedNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func loginRules(t *testing.T, limit int) *domain.RuleSet {
	t.Helper()
	r, err := domain.NewRule("/api/auth/login", domain.MethodPost, limit, 5*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rs, err := domain.NewRuleSet(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rs
}

func TestMiddleware_AllowsThenRejectsSameSubject(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	h := Middleware(Options{
		Limiter:             infra.NewCounterTable(),
		Rules:               loginRules(t, 1),
		Clock:               fixedClock,
		AddRateLimitHeaders: true,
	})(next)

	// 1) primeira passa
	r1 := httptest.NewRequest(http.MethodPost, "http://example/api/auth/login", nil)
	r1.RemoteAddr = "10.0.0.1:1234"
	w1 := httptest.NewRecorder()
	h.ServeHTTP(w1, r1)
	if w1.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w1.Code)
	}
	if got := w1.Header().Get(HeaderRemaining); got != "0" {
		t.Fatalf("expected %s=0, got %q", HeaderRemaining, got)
	}
	if got := w1.Header().Get(HeaderLimit); got != "1" {
		t.Fatalf("expected %s=1, got %q", HeaderLimit, got)
	}
	if got := w1.Header().Get(HeaderStatus); got != string(domain.ClassExceeded) {
		t.Fatalf("expected %s=exceeded, got %q", HeaderStatus, got)
	}
	wantReset := formatUnix(fixedNow.Add(5 * time.Minute))
	if got := w1.Header().Get(HeaderReset); got != wantReset {
		t.Fatalf("expected %s=%s, got %q", HeaderReset, wantReset, got)
	}

	// 2) segunda deve bloquear (limit=1 na janela)
	r2 := httptest.NewRequest(http.MethodPost, "http://example/api/auth/login", nil)
	r2.RemoteAddr = "10.0.0.1:1234"
	w2 := httptest.NewRecorder()
	h.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w2.Code)
	}
	if got := strings.TrimSpace(w2.Header().Get("Retry-After")); got != "300" {
		t.Fatalf("expected Retry-After=300, got %q", got)
	}

	if calls != 1 {
		t.Fatalf("expected next handler to be called once, got %d", calls)
	}
}

func TestMiddleware_UnmatchedRoutesPassThrough(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Limiter: infra.NewCounterTable(), Rules: loginRules(t, 1)})(next)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodGet, "http://example/api/auth/login", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for unmatched method, got %d", w.Code)
		}
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestMiddleware_SubjectByHeader(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	h := Middleware(Options{
		Limiter:   infra.NewCounterTable(),
		Rules:     loginRules(t, 1),
		KeyHeader: "X-Api-Key",
	})(next)

	// duas chaves diferentes => ambas passam (cada sujeito tem o seu contador)
	for _, key := range []string{"k1", "k2"} {
		r := httptest.NewRequest(http.MethodPost, "http://example/api/auth/login", nil)
		r.Header.Set("X-Api-Key", key)
		r.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 for key %s, got %d", key, w.Code)
		}
	}
}

func TestMiddleware_MissingSubjectIsUnauthorized(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{
		Limiter:   infra.NewCounterTable(),
		Rules:     loginRules(t, 1),
		SubjectFn: func(*http.Request) string { return "" },
	})(next)

	r := httptest.NewRequest(http.MethodPost, "http://example/api/auth/login", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMiddleware_AnonymousSubjectSharesQuota(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{
		Limiter:          infra.NewCounterTable(),
		Rules:            loginRules(t, 1),
		SubjectFn:        func(*http.Request) string { return "" },
		AnonymousSubject: "anonymous",
	})(next)

	codes := []int{}
	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "http://example/api/auth/login", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected [200 429], got %v", codes)
	}
}

type failingLimiter struct{}

func (failingLimiter) CheckAndConsume(context.Context, string, *domain.Rule, time.Time) (domain.Result, error) {
	return domain.Result{}, errors.New("backend down")
}

func (failingLimiter) Status(context.Context, string, *domain.Rule, time.Time) (domain.Status, error) {
	return domain.Status{}, errors.New("backend down")
}

func (failingLimiter) Reset(context.Context, string, *domain.Rule, time.Time) error {
	return errors.New("backend down")
}

func TestMiddleware_BackendErrorIsServiceUnavailable(t *testing.T) {
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})
	h := Middleware(Options{Limiter: failingLimiter{}, Rules: loginRules(t, 1)})(next)

	r := httptest.NewRequest(http.MethodPost, "http://example/api/auth/login", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if calls != 0 {
		t.Fatalf("next handler must not run when the limiter fails")
	}
}

func TestMiddleware_RecordsStats(t *testing.T) {
	stats := infra.NewMemoryStatsStore(infra.WithTrackSubjects(true))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{
		Limiter: infra.NewCounterTable(),
		Rules:   loginRules(t, 1),
		Stats:   stats,
	})(next)

	for i := 0; i < 3; i++ {
		r := httptest.NewRequest(http.MethodPost, "http://example/api/auth/login", nil)
		r.RemoteAddr = "10.0.0.7:1234"
		h.ServeHTTP(httptest.NewRecorder(), r)
	}

	got := stats.ByRule()["POST /api/auth/login"]
	if got.Allowed != 1 || got.Denied != 2 {
		t.Fatalf("unexpected stats %+v", got)
	}
	if s := stats.BySubject()["10.0.0.7"]; s.Denied != 2 {
		t.Fatalf("unexpected subject stats %+v", s)
	}
}
