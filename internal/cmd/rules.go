package cmd

import (
	"github.com/spf13/cobra"
)

var rulesOutput string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the configured rate limit rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(rulesOutput)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		rs, err := cfg.BuildRuleSet()
		if err != nil {
			return err
		}
		return renderRules(cmd.OutOrStdout(), rs.Rules(), format)
	},
}

func init() {
	rulesCmd.Flags().StringVarP(&rulesOutput, "output", "o", formatTable, "output format: table, json or yaml")
	rootCmd.AddCommand(rulesCmd)
}
