package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"middleware-gateway/internal/config"
)

// flags compartilhadas por status e reset
type counterFlags struct {
	subject string
	method  string
	path    string
	url     string
	token   string
	output  string
}

func (f *counterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.subject, "subject", "", "subject id (user id, api key or ip)")
	cmd.Flags().StringVar(&f.method, "method", "GET", "http method of the rule")
	cmd.Flags().StringVar(&f.path, "path", "", "request path matched against the rules")
	cmd.Flags().StringVar(&f.url, "url", "", "gateway base url (default admin.url)")
	cmd.Flags().StringVar(&f.token, "token", "", "admin token (default admin.token)")
	cmd.Flags().StringVarP(&f.output, "output", "o", formatTable, "output format: table, json or yaml")
}

func (f *counterFlags) client(cfg *config.Config) (*adminClient, error) {
	if f.subject == "" || f.path == "" {
		return nil, errors.New("--subject and --path are required")
	}
	base := f.url
	if base == "" {
		base = cfg.Admin.URL
	}
	token := f.token
	if token == "" {
		token = cfg.Admin.Token
	}
	return newAdminClient(base, token), nil
}

var statusFlags counterFlags

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the quota status of a subject on a rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(statusFlags.output)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := statusFlags.client(cfg)
		if err != nil {
			return err
		}
		st, err := c.Status(cmd.Context(), statusFlags.subject, statusFlags.method, statusFlags.path)
		if err != nil {
			return err
		}
		return renderStatus(cmd.OutOrStdout(), st, format)
	},
}

func init() {
	statusFlags.register(statusCmd)
	rootCmd.AddCommand(statusCmd)
}
