package user

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/pkg/identity"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print the bcrypt hash of a password",
	Long: `Print the bcrypt hash of a password, for admin.password_hash in the
configuration file.

Examples:
  dittoftp user hash-password
  echo "$PASSWORD" | dittoftp user hash-password --password-stdin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd)
		if err != nil {
			return err
		}
		hash, err := identity.HashPassword(password)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	addPasswordFlags(hashPasswordCmd)
}
