package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"middleware-gateway/middleware/ratelimit/domain"
)

var now = time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)

type fakeLimiter struct {
	res     domain.Result
	err     error
	gotNow  time.Time
	resets  int
	lastSub string
}

func (f *fakeLimiter) CheckAndConsume(_ context.Context, subject string, _ *domain.Rule, at time.Time) (domain.Result, error) {
	f.gotNow = at
	f.lastSub = subject
	return f.res, f.err
}

func (f *fakeLimiter) Status(_ context.Context, _ string, _ *domain.Rule, _ time.Time) (domain.Status, error) {
	return f.res.Status, f.err
}

func (f *fakeLimiter) Reset(_ context.Context, _ string, _ *domain.Rule, _ time.Time) error {
	f.resets++
	return f.err
}

func testRule(t *testing.T) *domain.Rule {
	t.Helper()
	r, err := domain.NewRule("/api/auth/login", domain.MethodPost, 5, 5*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func clock() time.Time { return now }

func TestService_Decide_AllowsWhenNoLimiter(t *testing.T) {
	svc := Service{}
	dec, err := svc.Decide(context.Background(), "u1", testRule(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Allowed {
		t.Fatalf("expected allowed")
	}
	if dec.RetryAfter != 0 {
		t.Fatalf("expected RetryAfter=0 when allowed, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_PassesClockAndSubject(t *testing.T) {
	lim := &fakeLimiter{res: domain.Result{Allowed: true}}
	svc := Service{Limiter: lim, Clock: clock}

	dec, err := svc.Decide(context.Background(), "u1", testRule(t))
	if err != nil || !dec.Allowed {
		t.Fatalf("expected allowed, got %+v err=%v", dec, err)
	}
	if !lim.gotNow.Equal(now) || lim.lastSub != "u1" {
		t.Fatalf("limiter got now=%s subject=%q", lim.gotNow, lim.lastSub)
	}
}

func TestService_Decide_RejectsEmptySubject(t *testing.T) {
	svc := Service{Limiter: &fakeLimiter{}, Clock: clock}
	_, err := svc.Decide(context.Background(), "", testRule(t))
	if !domain.IsInvalidSubject(err) {
		t.Fatalf("expected ErrInvalidSubject, got %v", err)
	}
}

func TestService_Decide_BlocksWithRetryAfterRoundedUp(t *testing.T) {
	lim := &fakeLimiter{res: domain.Result{
		Allowed: false,
		Status:  domain.Status{ResetAt: now.Add(2500 * time.Millisecond)},
	}}
	svc := Service{Limiter: lim, Clock: clock}

	dec, err := svc.Decide(context.Background(), "u1", testRule(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dec.Allowed {
		t.Fatalf("expected blocked")
	}
	if dec.RetryAfter != 3*time.Second {
		t.Fatalf("expected RetryAfter=3s, got %s", dec.RetryAfter)
	}
}

func TestService_Decide_PropagatesBackendError(t *testing.T) {
	boom := errors.New("redis down")
	svc := Service{Limiter: &fakeLimiter{err: boom}, Clock: clock}

	_, err := svc.Decide(context.Background(), "u1", testRule(t))
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestRetryAfter_MinimumOneSecond(t *testing.T) {
	if got := RetryAfter(domain.Status{ResetAt: now.Add(-time.Minute)}, now); got != time.Second {
		t.Fatalf("expected 1s minimum, got %s", got)
	}
}

func TestService_ResetDelegates(t *testing.T) {
	lim := &fakeLimiter{}
	svc := Service{Limiter: lim, Clock: clock}
	if err := svc.Reset(context.Background(), "u1", testRule(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lim.resets != 1 {
		t.Fatalf("expected one reset, got %d", lim.resets)
	}
}
