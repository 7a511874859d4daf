package user

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/cmdutil"
	"github.com/marmos91/dittoftp/pkg/controlplane/models"
	"github.com/marmos91/dittoftp/pkg/identity"
)

var addCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Create a user",
	Long: `Create an FTP user.

The home directory is a single directory name under ftp.storage_root and
defaults to the username. Permissions are a comma separated list of
read, write, delete, mkdir and rename, or "all" / "none".

Examples:
  dittoftp user add alice --perms read,write
  dittoftp user add bob --home shared --perms all
  echo "$PASSWORD" | dittoftp user add carol --password-stdin`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().String("home", "", "Home directory name under the storage root (default: username)")
	addCmd.Flags().String("perms", "read", "Permissions: read,write,delete,mkdir,rename, all or none")
	addCmd.Flags().Bool("disabled", false, "Create the user disabled")
	addPasswordFlags(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	home, _ := cmd.Flags().GetString("home")
	rawPerms, _ := cmd.Flags().GetString("perms")
	disabled, _ := cmd.Flags().GetBool("disabled")

	perms, err := identity.ParsePermission(rawPerms)
	if err != nil {
		return err
	}

	user := &models.User{
		Username: args[0],
		Home:     home,
		Perms:    uint8(perms),
		Enabled:  true,
	}
	if err := user.Validate(); err != nil {
		return err
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	if user.PasswordHash, err = identity.HashPassword(password); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	if _, err := s.CreateUser(ctx, user); err != nil {
		return err
	}
	// Enabled defaults to true on insert, so disabling is a second write.
	if disabled {
		user.Enabled = false
		if err := s.UpdateUser(ctx, user); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %s created (home %s, perms %s)\n", user.Username, user.HomeName(), perms)
	return nil
}
