package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"middleware-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript executa ler-comparar-incrementar atomicamente no Redis.
//
// ARGV: limit, window(ms), now(ms), mode (0=status, 1=consume, 2=reset), ttl(ms).
// Retorna {allowed, count, start(ms)}. mode=0 nunca escreve.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local mode = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local count = 0
local start = now
local v = redis.call('HMGET', key, 'count', 'start')
if v[1] and v[2] then
  count = tonumber(v[1])
  start = tonumber(v[2])
end

if mode == 2 or now - start >= window then
  count = 0
  start = now
end

local allowed = 0
if mode == 1 and count < limit then
  count = count + 1
  allowed = 1
end

if mode ~= 0 then
  redis.call('HSET', key, 'count', count, 'start', start)
  redis.call('PEXPIRE', key, ttl)
end

return {allowed, count, start}
`)

const (
	modeStatus  = 0
	modeConsume = 1
	modeReset   = 2
)

// RedisCounterStore implementa domain.Limiter sobre Redis, para várias instâncias
// do gateway compartilharem as mesmas cotas.
//
// A retenção vira TTL da chave: contadores inativos somem sozinhos.
type RedisCounterStore struct {
	rdb *redis.Client

	prefix     string
	retention  time.Duration
	thresholds domain.Thresholds
}

var _ domain.Limiter = (*RedisCounterStore)(nil)

type RedisCounterOption func(*RedisCounterStore)

func WithCounterPrefix(prefix string) RedisCounterOption {
	return func(s *RedisCounterStore) { s.prefix = strings.Trim(prefix, ":") }
}

func WithCounterRetention(d time.Duration) RedisCounterOption {
	return func(s *RedisCounterStore) { s.retention = d }
}

func WithCounterThresholds(th domain.Thresholds) RedisCounterOption {
	return func(s *RedisCounterStore) { s.thresholds = th }
}

func NewRedisCounterStore(rdb *redis.Client, opts ...RedisCounterOption) *RedisCounterStore {
	s := &RedisCounterStore{
		rdb:        rdb,
		prefix:     "ratelimit:counter",
		retention:  15 * time.Minute,
		thresholds: domain.DefaultThresholds,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisCounterStore) CheckAndConsume(ctx context.Context, subject string, rule *domain.Rule, now time.Time) (domain.Result, error) {
	allowed, c, err := s.eval(ctx, subject, rule, now, modeConsume)
	if err != nil {
		return domain.Result{}, fmt.Errorf("redis check and consume: %w", err)
	}
	return domain.Result{Allowed: allowed, Status: domain.ComputeStatus(rule, c, s.thresholds)}, nil
}

func (s *RedisCounterStore) Status(ctx context.Context, subject string, rule *domain.Rule, now time.Time) (domain.Status, error) {
	_, c, err := s.eval(ctx, subject, rule, now, modeStatus)
	if err != nil {
		return domain.Status{}, fmt.Errorf("redis status: %w", err)
	}
	return domain.ComputeStatus(rule, c, s.thresholds), nil
}

func (s *RedisCounterStore) Reset(ctx context.Context, subject string, rule *domain.Rule, now time.Time) error {
	if _, _, err := s.eval(ctx, subject, rule, now, modeReset); err != nil {
		return fmt.Errorf("redis reset: %w", err)
	}
	return nil
}

func (s *RedisCounterStore) key(subject string, rule *domain.Rule) string {
	return s.prefix + ":" + string(domain.NewKey(subject, rule))
}

func (s *RedisCounterStore) eval(ctx context.Context, subject string, rule *domain.Rule, now time.Time, mode int) (bool, domain.Counter, error) {
	if err := validateCall(subject, rule); err != nil {
		return false, domain.Counter{}, err
	}

	ttl := rule.Window() + s.retention
	vals, err := fixedWindowScript.Run(ctx, s.rdb, []string{s.key(subject, rule)},
		rule.Limit(),
		rule.WindowMS(),
		now.UnixMilli(),
		mode,
		ttl.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, domain.Counter{}, err
	}
	if len(vals) != 3 {
		return false, domain.Counter{}, fmt.Errorf("unexpected script reply length %d", len(vals))
	}

	return vals[0] == 1, domain.Counter{
		Subject:         subject,
		RuleID:          rule.ID(),
		Requests:        int(vals[1]),
		WindowStartedAt: time.UnixMilli(vals[2]),
	}, nil
}
