package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/cmdutil"
	"github.com/marmos91/dittoftp/pkg/identity"
)

var updateCmd = &cobra.Command{
	Use:   "update <username>",
	Short: "Change a user's home, permissions or enabled state",
	Long: `Change a user's home, permissions or enabled state. Only the given
flags are changed. Sessions already logged in keep their previous settings.

Examples:
  dittoftp user update alice --perms all
  dittoftp user update bob --disable`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().String("home", "", "Home directory name under the storage root")
	updateCmd.Flags().String("perms", "", "Permissions: read,write,delete,mkdir,rename, all or none")
	updateCmd.Flags().Bool("enable", false, "Enable the user")
	updateCmd.Flags().Bool("disable", false, "Disable the user")
	updateCmd.MarkFlagsMutuallyExclusive("enable", "disable")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	if !flags.Changed("home") && !flags.Changed("perms") && !flags.Changed("enable") && !flags.Changed("disable") {
		return errors.New("nothing to update: pass --home, --perms, --enable or --disable")
	}

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	u, err := s.GetUser(ctx, args[0])
	if err != nil {
		return err
	}

	if flags.Changed("home") {
		u.Home, _ = flags.GetString("home")
	}
	if flags.Changed("perms") {
		raw, _ := flags.GetString("perms")
		perms, err := identity.ParsePermission(raw)
		if err != nil {
			return err
		}
		u.Perms = uint8(perms)
	}
	if flags.Changed("enable") {
		u.Enabled = true
	}
	if flags.Changed("disable") {
		u.Enabled = false
	}

	if err := s.UpdateUser(ctx, u); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %s updated (home %s, perms %s, enabled %t)\n",
		u.Username, u.HomeName(), u.Permission(), u.Enabled)
	return nil
}
