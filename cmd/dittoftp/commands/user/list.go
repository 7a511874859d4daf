package user

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/cmdutil"
	"github.com/marmos91/dittoftp/internal/cli/timeutil"
	"github.com/marmos91/dittoftp/pkg/controlplane/models"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	cmdutil.AddOutputFlag(listCmd)
}

// userList renders as a table.
type userList []userView

func (l userList) Headers() []string {
	return []string{"Username", "Home", "Perms", "Enabled", "Last Login"}
}

func (l userList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		rows = append(rows, []string{u.Username, u.Home, u.Perms, strconv.FormatBool(u.Enabled), u.LastLogin})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	users, err := s.ListUsers(context.Background())
	if err != nil {
		return err
	}

	list := make(userList, 0, len(users))
	for _, u := range users {
		list = append(list, newUserView(u, relativeLastLogin))
	}
	return printer.Print(list)
}

func relativeLastLogin(u *models.User) string {
	return timeutil.FormatLastLogin(u.LastLogin)
}
