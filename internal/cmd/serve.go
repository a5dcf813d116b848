package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"middleware-gateway/internal/server"
	"middleware-gateway/middleware/ratelimit/infra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the rate limiting gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Upstream.URL == "" {
			return errors.New("upstream.url is required (QUOTAGATE_UPSTREAM_URL)")
		}
		target, err := url.Parse(cfg.Upstream.URL)
		if err != nil {
			return fmt.Errorf("invalid upstream.url: %w", err)
		}

		log, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer func() { _ = log.Sync() }()
		zap.ReplaceGlobals(log)

		rules, err := cfg.BuildRuleSet()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		be, err := buildBackends(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = be.Close() }()

		if be.table != nil {
			be.table.StartJanitor(ctx)
		}
		var throttle *infra.BucketStore
		if cfg.Admin.Enabled {
			throttle = infra.NewBucketStore(cfg.Admin.RPS, cfg.Admin.Burst)
			throttle.StartJanitor(ctx)
		}

		deps := server.Deps{
			Config:        cfg,
			Rules:         rules,
			Limiter:       be.limiter,
			Stats:         be.stats,
			Upstream:      server.NewReverseProxy(target, log),
			AdminThrottle: throttle,
			Logger:        log,
		}
		// interfaces com nil tipado nunca são nil: só atribui quando existe
		if be.table != nil {
			deps.Events = be.table
		}
		if be.statsView != nil {
			deps.StatsView = be.statsView
		}
		srv := server.New(deps)

		log.Info("gateway configured",
			zap.Int("rules", rules.Len()),
			zap.Bool("rate_limit", cfg.Limiter.Enabled),
			zap.String("key_header", cfg.Limiter.KeyHeader),
			zap.Bool("trust_xff", cfg.Limiter.TrustXFF),
			zap.Int("concurrency_max", cfg.Concurrency.Max),
			zap.Bool("admin", cfg.Admin.Enabled))

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
