// Package backup implements 'dittoftp backup', which snapshots the user store.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/cmdutil"
	"github.com/marmos91/dittoftp/pkg/controlplane/store"
)

var (
	backupOutput string
	backupFormat string
)

// Cmd backs up the user database.
var Cmd = &cobra.Command{
	Use:   "backup",
	Short: "Backup the user database",
	Long: `Backup the user database.

Formats:
  native  SQLite: VACUUM INTO (no external tools needed).
          PostgreSQL: pg_dump when installed, JSON otherwise.
  json    Portable JSON export of every user, password hashes included.

The backup holds password hashes: store it accordingly.

Examples:
  dittoftp backup --output /var/backups/dittoftp-users.db
  dittoftp backup --format json --output /var/backups/dittoftp-users.json`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

func init() {
	Cmd.Flags().StringVarP(&backupOutput, "output", "o", "", "Output file path (required)")
	Cmd.Flags().StringVar(&backupFormat, "format", "native", "Backup format: native or json")
	_ = Cmd.MarkFlagRequired("output")
}

func runBackup(cmd *cobra.Command, args []string) error {
	switch backupFormat {
	case "native", "json":
	default:
		return fmt.Errorf("invalid format: %s (valid: native, json)", backupFormat)
	}

	s, cfg, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := os.MkdirAll(filepath.Dir(backupOutput), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx := context.Background()
	start := time.Now()
	actualFormat := backupFormat

	if backupFormat == "native" {
		err = s.BackupTo(ctx, backupOutput)
		switch {
		case err == nil:
			actualFormat = "sqlite"
		case errors.Is(err, store.ErrBackupUnsupported):
			if _, lookErr := exec.LookPath("pg_dump"); lookErr == nil {
				err = backupPostgresCLI(ctx, &cfg.Database.Postgres, backupOutput)
				actualFormat = "pg_dump"
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Note: pg_dump not found, using JSON export")
				err = backupJSON(ctx, s, backupOutput)
				actualFormat = "json"
			}
		}
	} else {
		err = backupJSON(ctx, s, backupOutput)
	}
	if err != nil {
		return err
	}

	stat, err := os.Stat(backupOutput)
	if err != nil {
		return fmt.Errorf("failed to stat output file: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, "Backup completed successfully")
	_, _ = fmt.Fprintf(out, "  Output:   %s\n", backupOutput)
	_, _ = fmt.Fprintf(out, "  Type:     %s\n", cfg.Database.Type)
	_, _ = fmt.Fprintf(out, "  Format:   %s\n", actualFormat)
	_, _ = fmt.Fprintf(out, "  Size:     %s\n", humanize.IBytes(uint64(stat.Size())))
	_, _ = fmt.Fprintf(out, "  Duration: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

// backupPostgresCLI runs pg_dump with the configured credentials.
func backupPostgresCLI(ctx context.Context, cfg *store.PostgresConfig, outputPath string) error {
	args := []string{
		"-h", cfg.Host,
		"-p", strconv.Itoa(cfg.Port),
		"-U", cfg.User,
		"-d", cfg.Database,
		"-t", "users",
		"-f", outputPath,
		"--no-password",
	}

	cmd := exec.CommandContext(ctx, "pg_dump", args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.Password)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("pg_dump failed: %w\nOutput: %s", err, string(output))
	}
	return nil
}

func backupJSON(ctx context.Context, s *store.GORMStore, outputPath string) error {
	export, err := s.ExportUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}

	file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
