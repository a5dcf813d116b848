package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"middleware-gateway/internal/config"
	"middleware-gateway/middleware/ratelimit/application"
	"middleware-gateway/middleware/ratelimit/domain"
	"middleware-gateway/middleware/ratelimit/infra"
)

type adminAPI struct {
	svc       application.Service
	rules     *domain.RuleSet
	events    EventSource
	statsView StatsSnapshotter
	logger    *zap.Logger
}

func (a *adminAPI) mount(r chi.Router, cfg config.AdminConfig, throttle *infra.BucketStore) {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	if throttle != nil {
		r.Use(adminThrottle(throttle, a.logger))
	}
	r.Use(adminAuth(cfg.Token, cfg.TokenHash, a.logger))

	r.Get("/rules", a.listRules)
	r.Get("/status", a.status)
	r.Post("/reset", a.reset)
	r.Get("/stats", a.stats)
	r.Get("/events", a.streamEvents)
}

// adminAuth aceita "Authorization: Bearer <token>". Com hash configurado o token
// é comparado via bcrypt; senão em tempo constante contra o texto puro.
func adminAuth(token, tokenHash string, logger *zap.Logger) func(http.Handler) http.Handler {
	check := func(got string) bool {
		if tokenHash != "" {
			return bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(got)) == nil
		}
		return token != "" && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			got, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || !check(strings.TrimSpace(got)) {
				logger.Warn("admin auth failed",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminThrottle aplica um token bucket por IP de origem na API administrativa.
func adminThrottle(store *infra.BucketStore, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			if !store.Allow(key) {
				wait := store.Reserve(key)
				secs := int(wait.Round(time.Second) / time.Second)
				if secs < 1 {
					secs = 1
				}
				logger.Info("admin api throttled", zap.String("client", key))
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many admin requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type ruleView struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Method   string `json:"method"`
	Limit    int    `json:"limit"`
	Window   string `json:"window"`
	WindowMS int64  `json:"window_ms"`
}

func newRuleView(r *domain.Rule) ruleView {
	return ruleView{
		ID:       r.ID(),
		Path:     r.Path(),
		Method:   string(r.Method()),
		Limit:    r.Limit(),
		Window:   r.Window().String(),
		WindowMS: r.WindowMS(),
	}
}

// StatusView é a resposta de /admin/status e /admin/reset.
type StatusView struct {
	domain.Status
	ResetIn   string `json:"reset_in"`
	ResetInMS int64  `json:"reset_in_ms"`
}

func newStatusView(st domain.Status, now time.Time) StatusView {
	left := st.TimeRemaining(now)
	return StatusView{
		Status:    st,
		ResetIn:   domain.FormatRemaining(left),
		ResetInMS: left.Milliseconds(),
	}
}

func (a *adminAPI) listRules(w http.ResponseWriter, r *http.Request) {
	rules := a.rules.Rules()
	out := make([]ruleView, 0, len(rules))
	for _, rule := range rules {
		out = append(out, newRuleView(rule))
	}
	writeJSON(w, http.StatusOK, map[string]any{"rules": out})
}

// target identifica um contador: sujeito + regra (method/path).
type target struct {
	Subject string `json:"subject"`
	Method  string `json:"method"`
	Path    string `json:"path"`
}

func (a *adminAPI) resolve(w http.ResponseWriter, t target) (*domain.Rule, bool) {
	if strings.TrimSpace(t.Subject) == "" {
		writeError(w, http.StatusBadRequest, "invalid_subject", "subject is required")
		return nil, false
	}
	rule, ok := a.rules.Match(strings.ToUpper(t.Method), t.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "rule_not_found",
			fmt.Sprintf("no rule for %s %s", strings.ToUpper(t.Method), t.Path))
		return nil, false
	}
	return rule, true
}

func (a *adminAPI) status(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	t := target{Subject: q.Get("subject"), Method: q.Get("method"), Path: q.Get("path")}
	rule, ok := a.resolve(w, t)
	if !ok {
		return
	}

	st, err := a.svc.Status(r.Context(), t.Subject, rule)
	if err != nil {
		a.backendError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusView(st, a.svc.Now()))
}

func (a *adminAPI) reset(w http.ResponseWriter, r *http.Request) {
	var t target
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "expected json {subject, method, path}")
		return
	}
	rule, ok := a.resolve(w, t)
	if !ok {
		return
	}

	if err := a.svc.Reset(r.Context(), t.Subject, rule); err != nil {
		a.backendError(w, "reset", err)
		return
	}
	a.logger.Info("rate limit counter reset",
		zap.String("rule", rule.ID()),
		zap.String("subject", t.Subject))

	st, err := a.svc.Status(r.Context(), t.Subject, rule)
	if err != nil {
		a.backendError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, newStatusView(st, a.svc.Now()))
}

func (a *adminAPI) stats(w http.ResponseWriter, r *http.Request) {
	if a.statsView == nil {
		writeError(w, http.StatusNotFound, "stats_unavailable", "stats are only served by the memory stats backend")
		return
	}
	writeJSON(w, http.StatusOK, a.statsView.Snapshot())
}

func (a *adminAPI) backendError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, domain.ErrInvalidSubject) {
		writeError(w, http.StatusBadRequest, "invalid_subject", err.Error())
		return
	}
	a.logger.Error("rate limit backend error", zap.String("op", op), zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "backend_unavailable", "rate limit backend unavailable")
}
