package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"middleware-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl aplica apenas em chaves de série temporal / por sujeito.
	// total e por regra são cumulativos e não expiram.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackSubjects bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackSubjects(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackSubjects = track }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "ratelimit:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if rule := strings.TrimSpace(ev.RuleID); rule != "" {
		pipe.HIncrBy(ctx, s.prefix+":rule", rule+":"+field, 1)
	}
	if ev.Classification != "" {
		pipe.HIncrBy(ctx, s.prefix+":classification", string(ev.Classification), 1)
	}

	if s.trackSubjects {
		if subj := strings.TrimSpace(ev.Subject); subj != "" {
			subjKey := s.prefix + ":subject:" + subj
			pipe.HIncrBy(ctx, subjKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, subjKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
