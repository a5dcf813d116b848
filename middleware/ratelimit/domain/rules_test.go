package domain

import (
	"errors"
	"testing"
	"time"
)

func mustRule(t *testing.T, path string, m Method, limit int, window time.Duration) *Rule {
	t.Helper()
	r, err := NewRule(path, m, limit, window)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return r
}

func TestRuleSet_MatchExactAndMethod(t *testing.T) {
	login := mustRule(t, "/api/auth/login", MethodPost, 5, 5*time.Minute)
	rs, err := NewRuleSet(login)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r, ok := rs.Match("post", "/api/auth/login/"); !ok || r != login {
		t.Fatalf("expected login rule match")
	}
	if _, ok := rs.Match(string(MethodGet), "/api/auth/login"); ok {
		t.Fatalf("GET must not match a POST rule")
	}
}

func TestRuleSet_MatchTemplate(t *testing.T) {
	job := mustRule(t, "/api/jobs/{id}/apply", MethodPost, 10, time.Hour)
	files := mustRule(t, "/static/*", MethodGet, 1000, time.Minute)
	rs, err := NewRuleSet(job, files)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r, ok := rs.Match("POST", "/api/jobs/42/apply"); !ok || r != job {
		t.Fatalf("expected template match")
	}
	if _, ok := rs.Match("POST", "/api/jobs/42/apply/extra"); ok {
		t.Fatalf("extra segment must not match")
	}
	if r, ok := rs.Match("GET", "/static/css/app.css"); !ok || r != files {
		t.Fatalf("expected wildcard match")
	}
}

func TestRuleSet_RejectsDuplicates(t *testing.T) {
	a := mustRule(t, "/a", MethodGet, 1, time.Second)
	b := mustRule(t, "/a", MethodGet, 2, time.Second)
	if _, err := NewRuleSet(a, b); !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("expected ErrDuplicateRule, got %v", err)
	}
}

func TestRuleSet_RulesSorted(t *testing.T) {
	rs, _ := NewRuleSet(
		mustRule(t, "/b", MethodGet, 1, time.Second),
		mustRule(t, "/a", MethodPost, 1, time.Second),
		mustRule(t, "/a", MethodGet, 1, time.Second),
	)
	got := rs.Rules()
	want := []string{"GET /a", "POST /a", "GET /b"}
	for i := range want {
		if got[i].ID() != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i].ID())
		}
	}
	if rs.Len() != 3 {
		t.Fatalf("expected 3 rules, got %d", rs.Len())
	}
}

func TestRuleSet_TrailingSlashRuleMatches(t *testing.T) {
	login := mustRule(t, "/api/auth/login/", MethodPost, 5, 5*time.Minute)
	if login.Path() != "/api/auth/login" || login.ID() != "POST /api/auth/login" {
		t.Fatalf("expected canonical path, got %q (%q)", login.Path(), login.ID())
	}
	rs, err := NewRuleSet(login)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range []string{"/api/auth/login", "/api/auth/login/"} {
		if r, ok := rs.Match("POST", p); !ok || r != login {
			t.Fatalf("expected match for %q", p)
		}
	}
}

func TestRuleSet_TrailingSlashIsDuplicate(t *testing.T) {
	a := mustRule(t, "/api/x", MethodGet, 1, time.Second)
	b := mustRule(t, "/api/x/", MethodGet, 2, time.Second)
	if _, err := NewRuleSet(a, b); !errors.Is(err, ErrDuplicateRule) {
		t.Fatalf("expected ErrDuplicateRule, got %v", err)
	}
}

func TestNewRule_RootPathKept(t *testing.T) {
	for _, p := range []string{"/", "///"} {
		if r := mustRule(t, p, MethodGet, 1, time.Second); r.Path() != "/" {
			t.Fatalf("expected %q to normalize to /, got %q", p, r.Path())
		}
	}
}
