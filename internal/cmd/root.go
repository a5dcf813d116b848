// Package cmd implementa a CLI quotagate.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"middleware-gateway/internal/config"
	"middleware-gateway/internal/logger"
)

var (
	cfgFile string
	verbose bool

	// preenchido pelo main via SetVersionInfo
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var rootCmd = &cobra.Command{
	Use:   "quotagate",
	Short: "Per-endpoint fixed-window rate limiting gateway",
	Long: `quotagate puts a per-subject, per-endpoint fixed-window rate limiter in
front of an upstream HTTP service.

Use the subcommands to run the gateway or inspect a running one.`,
	SilenceUsage: true,
}

// Execute é chamado pelo main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./quotagate.yaml or ./config/quotagate.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Logging.Env, cfg.Logging.Level, cfg.Logging.Format)
}
