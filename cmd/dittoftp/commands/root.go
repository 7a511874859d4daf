// Package commands implements the dittoftp command line.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/backup"
	configcmd "github.com/marmos91/dittoftp/cmd/dittoftp/commands/config"
	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/user"
)

// Build information, set by main.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dittoftp",
	Short: "dittoftp - a sandboxed FTP server",
	Long: `dittoftp is an FTP server that confines every user to a home directory
under a single storage root.

Users are kept in a SQLite or PostgreSQL database and managed with
'dittoftp user'. A running server picks up user changes without restarting.

Get started:
  dittoftp init
  dittoftp user add alice --perms read,write
  dittoftp start --foreground`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/dittoftp/config.yaml)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(user.Cmd)
	rootCmd.AddCommand(backup.Cmd)
}

// GetConfigFile returns the value of --config.
func GetConfigFile() string {
	return cfgFile
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
