package ftp

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittoftp/internal/adapter/ftp/reply"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/session"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/vfs"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/identity"
)

// handleUSER records the requested account. Unknown names are rejected here;
// the password is checked by PASS against the registry as it is then.
// A logged-in session keeps its user and home until it closes.
func (c *Connection) handleUSER(ctx context.Context, arg string) (reply.Reply, error) {
	if c.authenticated() != nil {
		return reply.Reply{}, reply.NewError(reply.BadSequence, "Already logged in", reply.ErrBadSequence)
	}
	if c.adapter.users.Lookup(arg) == nil {
		if _, waiting := c.state.(session.AwaitingPassword); waiting {
			c.state = session.Unauthenticated{}
		}
		logger.InfoCtx(ctx, "FTP unknown user", logger.Username(arg))
		return reply.New(reply.NotLoggedIn, "Unknown user"), nil
	}

	c.state = session.AwaitingPassword{Username: arg}
	return reply.New(reply.NeedPassword, "User OK. Need password"), nil
}

// handlePASS authenticates the pending USER, creates the home directory and
// moves the session to the virtual root.
func (c *Connection) handlePASS(ctx context.Context, arg string) (reply.Reply, error) {
	pending, ok := c.state.(session.AwaitingPassword)
	if !ok {
		return reply.Reply{}, reply.NewError(reply.BadSequence, "Login with USER first", reply.ErrBadSequence)
	}

	// The registry may have been reloaded since USER.
	u := c.adapter.users.Lookup(pending.Username)
	if err := identity.Authenticate(u, arg); err != nil {
		c.state = session.Unauthenticated{}
		if m := c.adapter.metrics; m != nil {
			m.RecordLogin(false)
		}
		logger.WarnCtx(ctx, "FTP login failed", logger.Username(pending.Username))
		return reply.New(reply.NotLoggedIn, "Login incorrect"), nil
	}

	home := filepath.Join(c.adapter.config.StorageRoot, u.HomeName())
	if err := c.adapter.fs.MkdirAll(home, 0o755); err != nil {
		c.state = session.Unauthenticated{}
		return reply.Reply{}, err
	}

	c.state = session.NewAuthenticated(u, home)
	c.fs = vfs.NewJail(c.adapter.fs, home)
	c.lc = c.lc.WithUser(u.Username)
	if m := c.adapter.metrics; m != nil {
		m.RecordLogin(true)
	}
	if c.adapter.rehash != nil && identity.NeedsRehash(u.PasswordHash) {
		c.adapter.rehash(u.Username, arg)
	}
	logger.InfoCtx(ctx, "FTP login", logger.Username(u.Username), logger.RealPath(home))
	c.adapter.observer.SessionEvent(SessionEventLogin, u.Username, c.remote)
	return reply.New(reply.LoggedIn, "Login successful"), nil
}

func (c *Connection) handleSYST(context.Context, string) (reply.Reply, error) {
	return reply.New(reply.SystemType, "UNIX Type: L8"), nil
}

func (c *Connection) handlePWD(context.Context, string) (reply.Reply, error) {
	cwd := vfs.Root
	if a := c.authenticated(); a != nil {
		cwd = a.Cwd
	}
	return reply.New(reply.PathCreated, reply.Quote(cwd)+" is current directory"), nil
}

// handleCWD moves the virtual cwd. The target must be an existing directory;
// on failure the cwd is unchanged.
func (c *Connection) handleCWD(ctx context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	target := a.Resolve(arg)

	fi, err := c.fs.Stat(target)
	if err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Failed to change directory", err)
	}
	if !fi.IsDir() {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Not a directory", reply.ErrNotDirectory)
	}

	a.Chdir(target)
	logger.DebugCtx(ctx, "FTP cwd changed", logger.Path(a.Cwd))
	return reply.New(reply.FileActionOK, "Directory changed to "+a.Cwd), nil
}

// handleTYPE records the representation type. Transfers are always byte
// streams, so the flag is informational.
func (c *Connection) handleTYPE(_ context.Context, arg string) (reply.Reply, error) {
	t := "I"
	if fields := strings.Fields(strings.ToUpper(arg)); len(fields) > 0 {
		t = fields[0]
	}
	switch t {
	case "A", "I":
	case "L":
		t = "I"
	default:
		return reply.New(reply.ParamNotSupported, "Type not supported: "+t), nil
	}
	c.transferType = t
	return reply.New(reply.CommandOK, "Type set to "+t), nil
}

func (c *Connection) handleQUIT(context.Context, string) (reply.Reply, error) {
	c.closing = true
	return reply.New(reply.Goodbye, "Goodbye"), nil
}

func (c *Connection) handleNOOP(context.Context, string) (reply.Reply, error) {
	return reply.New(reply.CommandOK, "OK"), nil
}

// handleABOR acknowledges an abort. The transfer itself was cancelled (and
// answered with 426) while it ran; see runTransfer.
func (c *Connection) handleABOR(context.Context, string) (reply.Reply, error) {
	if c.aborted {
		c.aborted = false
		return reply.New(reply.TransferComplete, "ABOR command successful; transfer aborted"), nil
	}
	c.closeChannel()
	return reply.New(reply.TransferComplete, "No transfer to abort"), nil
}
