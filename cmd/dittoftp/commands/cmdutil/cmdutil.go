// Package cmdutil holds helpers shared by the dittoftp subcommands.
package cmdutil

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/internal/cli/output"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/config"
	"github.com/marmos91/dittoftp/pkg/controlplane/store"
)

// ConfigPath returns the inherited --config flag.
func ConfigPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// OpenStore loads the configuration named by --config and opens the user
// store it points to. The caller closes the store.
func OpenStore(cmd *cobra.Command) (*store.GORMStore, *config.Config, error) {
	cfg, err := config.MustLoad(ConfigPath(cmd))
	if err != nil {
		return nil, nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, nil, err
	}

	s, err := store.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open user store: %w", err)
	}
	return s, cfg, nil
}

// Printer returns a printer for the --output flag of cmd, writing to stdout.
func Printer(cmd *cobra.Command) (*output.Printer, error) {
	raw, _ := cmd.Flags().GetString("output")
	format, err := output.ParseFormat(raw)
	if err != nil {
		return nil, err
	}
	if cmd.OutOrStdout() == os.Stdout {
		return output.NewTerminalPrinter(os.Stdout, format), nil
	}
	return output.NewPrinter(cmd.OutOrStdout(), format, false), nil
}

// AddOutputFlag registers -o/--output on cmd.
func AddOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "Output format: table, json, yaml")
}
