package cmd

import (
	"github.com/spf13/cobra"
)

var resetFlags counterFlags

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the counter of a subject on a rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(resetFlags.output)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		c, err := resetFlags.client(cfg)
		if err != nil {
			return err
		}
		st, err := c.Reset(cmd.Context(), resetFlags.subject, resetFlags.method, resetFlags.path)
		if err != nil {
			return err
		}
		return renderStatus(cmd.OutOrStdout(), st, format)
	},
}

func init() {
	resetFlags.register(resetCmd)
	rootCmd.AddCommand(resetCmd)
}
