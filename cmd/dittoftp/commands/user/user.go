// Package user implements the 'dittoftp user' subcommands, which manage the
// accounts stored in the user database. A running server picks up changes
// through its user watcher.
package user

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/internal/cli/prompt"
	"github.com/marmos91/dittoftp/pkg/controlplane/models"
	"github.com/marmos91/dittoftp/pkg/identity"
)

// Cmd is the parent of the user subcommands.
var Cmd = &cobra.Command{
	Use:     "user",
	Aliases: []string{"users"},
	Short:   "Manage FTP users",
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(passwdCmd)
	Cmd.AddCommand(removeCmd)
	Cmd.AddCommand(hashPasswordCmd)
}

// addPasswordFlags registers --password and --password-stdin.
func addPasswordFlags(cmd *cobra.Command) {
	cmd.Flags().String("password", "", "Password (visible in shell history, prefer --password-stdin)")
	cmd.Flags().Bool("password-stdin", false, "Read the password from the first line of stdin")
}

// readPassword returns the password from the flags, stdin or an interactive
// prompt, in that order, and validates its length.
func readPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")

	switch {
	case password != "":
	case fromStdin:
		var err error
		if password, err = readLine(cmd.InOrStdin()); err != nil {
			return "", fmt.Errorf("failed to read password from stdin: %w", err)
		}
	default:
		var err error
		if password, err = prompt.NewPassword(); err != nil {
			return "", err
		}
	}

	if err := identity.ValidatePassword(password); err != nil {
		return "", err
	}
	return password, nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// userView is the printable form of a stored user.
type userView struct {
	Username  string `json:"username" yaml:"username"`
	Home      string `json:"home" yaml:"home"`
	Perms     string `json:"perms" yaml:"perms"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	LastLogin string `json:"last_login" yaml:"last_login"`
}

func newUserView(u *models.User, lastLogin func(*models.User) string) userView {
	return userView{
		Username:  u.Username,
		Home:      u.HomeName(),
		Perms:     u.Permission().String(),
		Enabled:   u.Enabled,
		LastLogin: lastLogin(u),
	}
}
