package domain

import (
	"fmt"
	"math"
	"time"
)

type Classification string

const (
	ClassSafe     Classification = "safe"
	ClassWarning  Classification = "warning"
	ClassCritical Classification = "critical"
	ClassExceeded Classification = "exceeded"
)

// Thresholds define os percentuais a partir dos quais o uso vira warning e critical.
// "exceeded" é sempre percentage >= 100.
type Thresholds struct {
	Warning  int `json:"warning" yaml:"warning"`
	Critical int `json:"critical" yaml:"critical"`
}

// DefaultThresholds: safe < 70 <= warning < 90 <= critical < 100 <= exceeded.
var DefaultThresholds = Thresholds{Warning: 70, Critical: 90}

func (t Thresholds) Validate() error {
	if t.Warning <= 0 || t.Critical <= t.Warning || t.Critical > 100 {
		return fmt.Errorf("%w: want 0 < warning < critical <= 100, got warning=%d critical=%d",
			ErrInvalidThresholds, t.Warning, t.Critical)
	}
	return nil
}

// Classify converte um percentual em classificação.
func (t Thresholds) Classify(percentage int) Classification {
	switch {
	case percentage >= 100:
		return ClassExceeded
	case percentage >= t.Critical:
		return ClassCritical
	case percentage >= t.Warning:
		return ClassWarning
	default:
		return ClassSafe
	}
}

// Status é a visão derivada (somente leitura) de um Counter + Rule.
type Status struct {
	Subject         string         `json:"subject"`
	RuleID          string         `json:"rule"`
	Limit           int            `json:"limit"`
	Requests        int            `json:"requests"`
	Remaining       int            `json:"remaining"`
	Percentage      int            `json:"percentage"`
	WindowStartedAt time.Time      `json:"window_started_at"`
	ResetAt         time.Time      `json:"reset_at"`
	Classification  Classification `json:"classification"`
}

// ComputeStatus aplica as fórmulas de remaining/percentage/resetAt sobre o contador.
func ComputeStatus(rule *Rule, c Counter, t Thresholds) Status {
	limit := rule.Limit()
	remaining := limit - c.Requests
	if remaining < 0 {
		remaining = 0
	}
	pct := int(math.Round(float64(c.Requests) / float64(limit) * 100))
	if pct > 100 {
		pct = 100
	}
	return Status{
		Subject:         c.Subject,
		RuleID:          rule.ID(),
		Limit:           limit,
		Requests:        c.Requests,
		Remaining:       remaining,
		Percentage:      pct,
		WindowStartedAt: c.WindowStartedAt,
		ResetAt:         c.WindowStartedAt.Add(rule.Window()),
		Classification:  t.Classify(pct),
	}
}

// TimeRemaining é max(0, ResetAt - now). Zero significa que a próxima
// requisição já abre uma janela nova.
func TimeRemaining(s Status, now time.Time) time.Duration {
	d := s.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (s Status) TimeRemaining(now time.Time) time.Duration {
	return TimeRemaining(s, now)
}

// FormatRemaining formata a duração para exibição ("4m 32s", "1h 5m", "12s").
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	if d == 0 {
		// sub-segundo arredonda para cima, nunca "0s" com janela ainda aberta
		return "1s"
	}
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	sec := int((d % time.Minute) / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}
