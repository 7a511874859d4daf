package user

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/cmdutil"
	"github.com/marmos91/dittoftp/internal/cli/output"
	"github.com/marmos91/dittoftp/internal/cli/timeutil"
	"github.com/marmos91/dittoftp/pkg/controlplane/models"
)

var showCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show one user",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	cmdutil.AddOutputFlag(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	s, _, err := cmdutil.OpenStore(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	u, err := s.GetUser(context.Background(), args[0])
	if err != nil {
		return err
	}

	view := newUserView(u, absoluteLastLogin)
	if printer.Format() != output.FormatTable {
		return printer.Print(view)
	}
	return output.KeyValueTable(printer.Writer(), [][2]string{
		{"Username", view.Username},
		{"Home", view.Home},
		{"Perms", view.Perms},
		{"Enabled", strconv.FormatBool(view.Enabled)},
		{"Created", timeutil.FormatTime(u.CreatedAt)},
		{"Last login", view.LastLogin},
	})
}

func absoluteLastLogin(u *models.User) string {
	if u.LastLogin == nil {
		return "never"
	}
	return timeutil.FormatTime(*u.LastLogin)
}
