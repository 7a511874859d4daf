// Package config implements the 'dittoftp config' subcommands.
package config

import "github.com/spf13/cobra"

// Cmd is the parent of the configuration subcommands.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the configuration file",
}

func init() {
	Cmd.AddCommand(schemaCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(editCmd)
	Cmd.AddCommand(showCmd)
}
