package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"context"
	"strings"
	"time"
)

// Key identifica um contador: regra + sujeito.
type Key string

// NewKey compõe a chave do contador a partir do sujeito e da identidade da regra.
func NewKey(subject string, rule *Rule) Key {
	return Key(rule.ID() + "|" + subject)
}

// ValidateSubject rejeita sujeitos vazios (ou só espaços).
func ValidateSubject(subject string) error {
	if strings.TrimSpace(subject) == "" {
		return ErrInvalidSubject
	}
	return nil
}

// Counter é o estado mutável por (sujeito, regra).
//
// Requests conta apenas requisições aceitas: tentativas rejeitadas não consomem cota.
type Counter struct {
	Subject         string
	RuleID          string
	Requests        int
	WindowStartedAt time.Time
}

// Expired indica se a janela do contador já terminou em now.
func (c Counter) Expired(rule *Rule, now time.Time) bool {
	return now.Sub(c.WindowStartedAt) >= rule.Window()
}

// Result é o retorno de CheckAndConsume.
type Result struct {
	Allowed bool
	Status  Status
}

// Limiter decide se uma nova requisição é permitida e expõe o status da cota.
//
// Implementações: contador em memória com lock por chave (infra.CounterTable)
// ou Redis com script Lua atômico (infra.RedisCounterStore).
type Limiter interface {
	CheckAndConsume(ctx context.Context, subject string, rule *Rule, now time.Time) (Result, error)
	Status(ctx context.Context, subject string, rule *Rule, now time.Time) (Status, error)
	Reset(ctx context.Context, subject string, rule *Rule, now time.Time) error
}

type Decision struct {
	Allowed bool
	Status  Status
	// RetryAfter é o valor a ser retornado em Retry-After quando bloquear.
	// Se 0, não há recomendação.
	RetryAfter time.Duration
}
