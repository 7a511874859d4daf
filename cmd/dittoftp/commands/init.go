package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Write a commented configuration file with default values.

The file is written to --config, or to $XDG_CONFIG_HOME/dittoftp/config.yaml.

Examples:
  dittoftp init
  dittoftp init --config /etc/dittoftp/config.yaml --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

var initNextSteps = []string{
	"Set ftp.storage_root to the directory holding user homes",
	"Add users with 'dittoftp user add <name>'",
	"Start the server with 'dittoftp start'",
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	var err error
	if path == "" {
		path, err = config.InitConfig(initForce)
	} else {
		err = config.InitConfigToPath(path, initForce)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration written to %s\n\nNext steps:\n", path)
	for i, step := range initNextSteps {
		fmt.Fprintf(out, "  %d. %s\n", i+1, step)
	}
	return nil
}
