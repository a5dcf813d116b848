package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"middleware-gateway/middleware/ratelimit/application"
	"middleware-gateway/middleware/ratelimit/domain"

	"go.uber.org/zap"
)

const (
	HeaderLimit     = "X-RateLimit-Limit"
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderStatus    = "X-RateLimit-Status"
	HeaderRule      = "X-RateLimit-Rule"
)

type Options struct {
	Limiter domain.Limiter
	Rules   *domain.RuleSet
	Stats   domain.StatsStore

	SubjectFn          SubjectFunc
	KeyHeader          string
	TrustXForwardedFor bool
	JWTSecret          []byte
	// AnonymousSubject é usado quando nenhum sujeito é identificado.
	// Vazio: a request é rejeitada com 401.
	AnonymousSubject string

	RejectStatus        int
	AddRateLimitHeaders bool
	Clock               func() time.Time
	Logger              *zap.Logger
}

// Middleware aplica a regra que casa com método + path. Requests sem regra passam direto.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusTooManyRequests
	}
	if opts.SubjectFn == nil {
		fns := []SubjectFunc{}
		if len(opts.JWTSecret) > 0 {
			fns = append(fns, JWTSubject(opts.JWTSecret))
		}
		fns = append(fns, DefaultSubjectFunc(opts.KeyHeader, opts.TrustXForwardedFor))
		opts.SubjectFn = ChainSubjects(fns...)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	svc := application.Service{
		Limiter: opts.Limiter,
		Clock:   opts.Clock,
	}
	log := opts.Logger

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := opts.Rules.Match(r.Method, r.URL.Path)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			subject := opts.SubjectFn(r)
			if subject == "" {
				subject = opts.AnonymousSubject
			}

			dec, err := svc.Decide(r.Context(), subject, rule)
			if err != nil {
				if errors.Is(err, domain.ErrInvalidSubject) {
					http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
					return
				}
				// nada de inventar uma decisão: backend fora, request falha
				log.Error("rate limit backend error",
					zap.String("rule", rule.ID()),
					zap.String("subject", subject),
					zap.Error(err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}

			if opts.AddRateLimitHeaders {
				h := w.Header()
				h.Set(HeaderRule, rule.ID())
				h.Set(HeaderLimit, formatInt(dec.Status.Limit))
				h.Set(HeaderRemaining, formatInt(dec.Status.Remaining))
				h.Set(HeaderReset, formatUnix(dec.Status.ResetAt))
				h.Set(HeaderStatus, string(dec.Status.Classification))
			}

			if opts.Stats != nil {
				if err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Subject:        subject,
					RuleID:         rule.ID(),
					Allowed:        dec.Allowed,
					Classification: dec.Status.Classification,
					Method:         r.Method,
					Path:           r.URL.Path,
					At:             svc.Now(),
				}); err != nil {
					log.Debug("rate limit stats not recorded", zap.Error(err))
				}
			}

			if !dec.Allowed {
				log.Info("rate limit exceeded",
					zap.String("rule", rule.ID()),
					zap.String("subject", subject),
					zap.Duration("retry_after", dec.RetryAfter))
				w.Header().Set("Retry-After", formatSeconds(dec.RetryAfter))
				http.Error(w, http.StatusText(opts.RejectStatus), opts.RejectStatus)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
