package config

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the dittoftp configuration file.

Checks for syntax errors, missing required fields and invalid values, then
prints a short summary and warnings for settings that are valid but likely
unintended.

Examples:
  dittoftp config validate
  dittoftp config validate --config /etc/dittoftp/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Database type:   %s\n", cfg.Database.Type)
	_, _ = fmt.Fprintf(out, "  FTP port:        %d\n", cfg.FTP.Port)
	_, _ = fmt.Fprintf(out, "  Passive ports:   %d-%d\n", cfg.FTP.PassivePorts.Low, cfg.FTP.PassivePorts.High)
	_, _ = fmt.Fprintf(out, "  Storage root:    %s\n", cfg.FTP.StorageRoot)
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	return nil
}

func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if info, err := os.Stat(cfg.FTP.StorageRoot); err != nil {
		warnings = append(warnings, fmt.Sprintf("storage root %s does not exist", cfg.FTP.StorageRoot))
	} else if !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("storage root %s is not a directory", cfg.FTP.StorageRoot))
	}

	if cfg.FTP.AdvertisedHost == "" && (cfg.FTP.BindAddress == "" || cfg.FTP.BindAddress == "0.0.0.0") {
		warnings = append(warnings, "ftp.advertised_host is not set: passive replies use the address the client connected to")
	}

	if cfg.FTP.PassivePorts.High-cfg.FTP.PassivePorts.Low+1 < cfg.FTP.MaxConnections {
		warnings = append(warnings, "passive port range is smaller than ftp.max_connections")
	}

	if !cfg.Metrics.Enabled {
		warnings = append(warnings, "metrics are disabled: 'dittoftp status' can only report the process state")
	}
	return warnings
}
