package domain

import (
	"testing"
	"time"
)

func TestComputeStatus_ClassificationBoundaries(t *testing.T) {
	rule, err := NewRuleMS("/api/jobs/create", MethodPost, 10, 60_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		requests int
		pct      int
		class    Classification
	}{
		{0, 0, ClassSafe},
		{6, 60, ClassSafe},
		{7, 70, ClassWarning},
		{8, 80, ClassWarning},
		{9, 90, ClassCritical},
		{10, 100, ClassExceeded},
	}
	for _, tc := range cases {
		st := ComputeStatus(rule, Counter{Subject: "u", Requests: tc.requests, WindowStartedAt: start}, DefaultThresholds)
		if st.Percentage != tc.pct {
			t.Fatalf("requests=%d: expected percentage %d, got %d", tc.requests, tc.pct, st.Percentage)
		}
		if st.Classification != tc.class {
			t.Fatalf("requests=%d: expected %s, got %s", tc.requests, tc.class, st.Classification)
		}
		if st.Remaining+st.Requests != rule.Limit() {
			t.Fatalf("requests=%d: remaining+requests must equal limit, got %d+%d", tc.requests, st.Remaining, st.Requests)
		}
	}
}

func TestComputeStatus_ClampsAboveLimit(t *testing.T) {
	rule, _ := NewRule("/x", MethodGet, 3, time.Minute)
	st := ComputeStatus(rule, Counter{Requests: 5}, DefaultThresholds)
	if st.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", st.Remaining)
	}
	if st.Percentage != 100 {
		t.Fatalf("expected percentage capped at 100, got %d", st.Percentage)
	}
}

func TestComputeStatus_ResetAtIsWindowEnd(t *testing.T) {
	rule, _ := NewRule("/x", MethodGet, 3, 5*time.Minute)
	start := time.Unix(1_000, 0)
	st := ComputeStatus(rule, Counter{WindowStartedAt: start}, DefaultThresholds)
	if !st.ResetAt.Equal(start.Add(5 * time.Minute)) {
		t.Fatalf("unexpected resetAt %s", st.ResetAt)
	}
}

func TestTimeRemaining_NeverNegative(t *testing.T) {
	st := Status{ResetAt: time.Unix(100, 0)}
	if got := TimeRemaining(st, time.Unix(90, 0)); got != 10*time.Second {
		t.Fatalf("expected 10s, got %s", got)
	}
	if got := st.TimeRemaining(time.Unix(200, 0)); got != 0 {
		t.Fatalf("expected 0 after reset, got %s", got)
	}
}

func TestThresholds_CustomAndValidate(t *testing.T) {
	th := Thresholds{Warning: 50, Critical: 75}
	if err := th.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := th.Classify(60); got != ClassWarning {
		t.Fatalf("expected warning, got %s", got)
	}
	if err := (Thresholds{Warning: 90, Critical: 70}).Validate(); err == nil {
		t.Fatalf("expected error for inverted thresholds")
	}
}

func TestFormatRemaining(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{400 * time.Millisecond, "1s"},
		{12 * time.Second, "12s"},
		{4*time.Minute + 32*time.Second, "4m 32s"},
		{time.Hour + 5*time.Minute + 10*time.Second, "1h 5m"},
	}
	for _, tc := range cases {
		if got := FormatRemaining(tc.d); got != tc.want {
			t.Fatalf("FormatRemaining(%s): expected %q, got %q", tc.d, tc.want, got)
		}
	}
}
