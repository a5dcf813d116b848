package domain

import (
	"fmt"
	"strings"
	"time"
)

// Method é o subconjunto de métodos HTTP aceitos em uma regra.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// ParseMethod normaliza (trim + upper) e valida o método.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("%w: unsupported method %q", ErrInvalidRule, s)
}

// Rule é a configuração estática de limite para um endpoint + método.
//
// Os campos são privados: uma Rule só nasce via NewRule e não muda depois
// de carregada. Contadores referenciam a regra (ponteiro compartilhado).
type Rule struct {
	path   string
	method Method
	limit  int
	window time.Duration
}

// NewRule valida e cria uma regra. limit e window precisam ser > 0.
// O path é normalizado como no Match (sem "/" final).
func NewRule(path string, method Method, limit int, window time.Duration) (*Rule, error) {
	path = normalizePath(path)
	if path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidRule)
	}
	m, err := ParseMethod(string(method))
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0 (got %d) for %s %s", ErrInvalidRule, limit, m, path)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be > 0 (got %s) for %s %s", ErrInvalidRule, window, m, path)
	}
	return &Rule{path: path, method: m, limit: limit, window: window}, nil
}

// NewRuleMS é um atalho para janelas expressas em milissegundos.
func NewRuleMS(path string, method Method, limit int, windowMS int64) (*Rule, error) {
	return NewRule(path, method, limit, time.Duration(windowMS)*time.Millisecond)
}

func (r *Rule) Path() string          { return r.path }
func (r *Rule) Method() Method        { return r.method }
func (r *Rule) Limit() int            { return r.limit }
func (r *Rule) Window() time.Duration { return r.window }
func (r *Rule) WindowMS() int64       { return r.window.Milliseconds() }

// ID identifica a regra de forma estável ("POST /api/auth/login").
func (r *Rule) ID() string { return string(r.method) + " " + r.path }

func (r *Rule) String() string {
	return fmt.Sprintf("%s limit=%d window=%s", r.ID(), r.limit, r.window)
}
