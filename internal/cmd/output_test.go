package cmd

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"middleware-gateway/internal/config"
	"middleware-gateway/internal/server"
	"middleware-gateway/middleware/ratelimit/domain"
)

func defaultRuleSet(t *testing.T) *domain.RuleSet {
	t.Helper()
	cfg := &config.Config{Limiter: config.LimiterConfig{Rules: config.DefaultRules()}}
	rs, err := cfg.BuildRuleSet()
	require.NoError(t, err)
	return rs
}

func TestParseFormat(t *testing.T) {
	f, err := parseFormat("")
	require.NoError(t, err)
	require.Equal(t, formatTable, f)

	f, err = parseFormat("JSON")
	require.NoError(t, err)
	require.Equal(t, formatJSON, f)

	_, err = parseFormat("xml")
	require.Error(t, err)
}

func TestRenderRules_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, renderRules(&buf, defaultRuleSet(t).Rules(), formatTable))

	out := buf.String()
	require.Contains(t, out, "/api/auth/login")
	require.Contains(t, out, "5m0s")
	require.Contains(t, out, "7 rules")
}

func TestRenderRules_JSONAndYAML(t *testing.T) {
	rules := defaultRuleSet(t).Rules()

	var jbuf bytes.Buffer
	require.NoError(t, renderRules(&jbuf, rules, formatJSON))
	var jout struct {
		Rules []ruleRow `json:"rules"`
	}
	require.NoError(t, json.Unmarshal(jbuf.Bytes(), &jout))
	require.Len(t, jout.Rules, 7)

	var ybuf bytes.Buffer
	require.NoError(t, renderRules(&ybuf, rules, formatYAML))
	var yout struct {
		Rules []ruleRow `yaml:"rules"`
	}
	require.NoError(t, yaml.Unmarshal(ybuf.Bytes(), &yout))
	require.Equal(t, jout.Rules, yout.Rules)
}

func TestRenderStatus_Table(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := server.StatusView{
		Status: domain.Status{
			Subject:        "user-1",
			RuleID:         "POST /api/auth/login",
			Limit:          5,
			Requests:       4,
			Remaining:      1,
			Percentage:     80,
			ResetAt:        now.Add(272 * time.Second),
			Classification: domain.ClassWarning,
		},
		ResetIn: "4m 32s",
	}

	var buf bytes.Buffer
	require.NoError(t, renderStatus(&buf, st, formatTable))
	out := buf.String()
	require.Contains(t, out, "4/5 (80%)")
	require.Contains(t, out, "warning")
	require.Contains(t, out, "4m 32s")
}
