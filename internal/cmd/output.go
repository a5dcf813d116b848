package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"middleware-gateway/internal/server"
	"middleware-gateway/middleware/ratelimit/domain"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func parseFormat(s string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(s)); f {
	case "", formatTable:
		return formatTable, nil
	case formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", s)
	}
}

type ruleRow struct {
	Path     string `json:"path" yaml:"path"`
	Method   string `json:"method" yaml:"method"`
	Limit    int    `json:"limit" yaml:"limit"`
	Window   string `json:"window" yaml:"window"`
	WindowMS int64  `json:"window_ms" yaml:"window_ms"`
}

func renderRules(w io.Writer, rules []*domain.Rule, format string) error {
	rows := make([]ruleRow, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, ruleRow{
			Path:     r.Path(),
			Method:   string(r.Method()),
			Limit:    r.Limit(),
			Window:   r.Window().String(),
			WindowMS: r.WindowMS(),
		})
	}

	switch format {
	case formatJSON:
		return writeJSON(w, map[string]any{"rules": rows})
	case formatYAML:
		return writeYAML(w, map[string]any{"rules": rows})
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Method", "Path", "Limit", "Window"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Method, r.Path, r.Limit, r.Window})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d rules", len(rows)), "", ""})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func renderStatus(w io.Writer, st server.StatusView, format string) error {
	switch format {
	case formatJSON:
		return writeJSON(w, st)
	case formatYAML:
		return writeYAML(w, map[string]any{
			"subject":        st.Subject,
			"rule":           st.RuleID,
			"limit":          st.Limit,
			"requests":       st.Requests,
			"remaining":      st.Remaining,
			"percentage":     st.Percentage,
			"classification": string(st.Classification),
			"reset_at":       st.ResetAt,
			"reset_in":       st.ResetIn,
		})
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Subject", "Rule", "Used", "Remaining", "Status", "Resets In"})
	t.AppendRow(table.Row{
		st.Subject,
		st.RuleID,
		fmt.Sprintf("%d/%d (%d%%)", st.Requests, st.Limit, st.Percentage),
		st.Remaining,
		string(st.Classification),
		st.ResetIn,
	})
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
