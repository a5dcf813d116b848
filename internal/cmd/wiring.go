package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"middleware-gateway/internal/config"
	"middleware-gateway/middleware/ratelimit/domain"
	"middleware-gateway/middleware/ratelimit/infra"
)

// backends reúne o que o serve monta a partir da config.
type backends struct {
	limiter domain.Limiter
	// table só existe com backend memory (janitor e eventos)
	table     *infra.CounterTable
	stats     domain.StatsStore
	statsView *infra.MemoryStatsStore

	closers []io.Closer
}

func (b *backends) Close() error {
	var first error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func buildBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	var rdb *redis.Client
	redisClient := func() (*redis.Client, error) {
		if rdb != nil {
			return rdb, nil
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b.closers = append(b.closers, rdb)

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Redis.PingTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return rdb, nil
	}

	switch cfg.Limiter.Backend {
	case "redis":
		c, err := redisClient()
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.limiter = infra.NewRedisCounterStore(c,
			infra.WithCounterPrefix(cfg.Redis.CounterPrefix),
			infra.WithCounterRetention(cfg.Limiter.Retention),
			infra.WithCounterThresholds(cfg.Limiter.Thresholds),
		)
	default:
		b.table = infra.NewCounterTable(
			infra.WithRetention(cfg.Limiter.Retention),
			infra.WithCleanupEvery(cfg.Limiter.CleanupEvery),
			infra.WithShards(cfg.Limiter.Shards),
			infra.WithThresholds(cfg.Limiter.Thresholds),
			infra.WithLogger(log),
		)
		b.limiter = b.table
	}

	switch cfg.Stats.Backend {
	case "memory":
		b.statsView = infra.NewMemoryStatsStore(infra.WithTrackSubjects(cfg.Stats.TrackSubjects))
		b.stats = b.statsView
	case "redis":
		c, err := redisClient()
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.stats = infra.NewRedisStatsStore(c,
			infra.WithStatsPrefix(cfg.Stats.Prefix),
			infra.WithStatsTTL(cfg.Stats.TTL),
			infra.WithStatsBucket(cfg.Stats.Bucket),
			infra.WithStatsTrackSubjects(cfg.Stats.TrackSubjects),
		)
	case "kafka":
		w := infra.NewKafkaWriter(cfg.Stats.Kafka.Brokers, cfg.Stats.Kafka.Topic, log)
		ks := infra.NewKafkaStatsStore(w, log)
		b.closers = append(b.closers, ks)
		b.stats = ks
	}

	log.Info("rate limit backends ready",
		zap.String("limiter", cfg.Limiter.Backend),
		zap.String("stats", cfg.Stats.Backend))
	return b, nil
}
