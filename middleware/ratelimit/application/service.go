package application

import (
	"context"
	"time"

	"middleware-gateway/middleware/ratelimit/domain"
)

// Service concentra a regra de aplicação do rate limit.
//
// Ele não sabe nada sobre HTTP (headers/status), apenas retorna uma decisão.
// Clock é injetável para testes; nil usa time.Now.
type Service struct {
	Limiter domain.Limiter
	Clock   func() time.Time
}

// Decide consome uma unidade da cota do sujeito na regra.
//
// Rejeição não é erro: volta Allowed=false com RetryAfter arredondado para cima
// em segundos (mínimo 1s). Erros são de validação ou do backend.
func (s Service) Decide(ctx context.Context, subject string, rule *domain.Rule) (domain.Decision, error) {
	if s.Limiter == nil {
		return domain.Decision{Allowed: true}, nil
	}
	if err := domain.ValidateSubject(subject); err != nil {
		return domain.Decision{}, err
	}

	now := s.now()
	res, err := s.Limiter.CheckAndConsume(ctx, subject, rule, now)
	if err != nil {
		return domain.Decision{}, err
	}
	if res.Allowed {
		return domain.Decision{Allowed: true, Status: res.Status}, nil
	}
	return domain.Decision{
		Allowed:    false,
		Status:     res.Status,
		RetryAfter: RetryAfter(res.Status, now),
	}, nil
}

func (s Service) Status(ctx context.Context, subject string, rule *domain.Rule) (domain.Status, error) {
	if s.Limiter == nil {
		return domain.Status{}, nil
	}
	return s.Limiter.Status(ctx, subject, rule, s.now())
}

func (s Service) Reset(ctx context.Context, subject string, rule *domain.Rule) error {
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Reset(ctx, subject, rule, s.now())
}

// Now expõe o relógio do serviço para quem formata tempo restante.
func (s Service) Now() time.Time { return s.now() }

func (s Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// RetryAfter converte o tempo até o reset em segundos inteiros, arredondando
// para cima, nunca menos que 1s.
func RetryAfter(st domain.Status, now time.Time) time.Duration {
	d := domain.TimeRemaining(st, now)
	secs := (d + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}
