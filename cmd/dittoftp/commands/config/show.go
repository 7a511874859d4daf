package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/internal/cli/output"
	"github.com/marmos91/dittoftp/pkg/config"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration after defaults and DITTOFTP_* environment
overrides are applied. The admin password hash and database password are
redacted.`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringP("output", "o", "yaml", "Output format: yaml, json")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	redact(cfg)

	raw, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(raw)
	if err != nil {
		return err
	}
	if format == output.FormatJSON {
		return output.PrintJSON(cmd.OutOrStdout(), cfg)
	}
	return output.PrintYAML(cmd.OutOrStdout(), cfg)
}

func redact(cfg *config.Config) {
	if cfg.Admin.PasswordHash != "" {
		cfg.Admin.PasswordHash = "<redacted>"
	}
	if cfg.Database.Postgres.Password != "" {
		cfg.Database.Postgres.Password = "<redacted>"
	}
}
