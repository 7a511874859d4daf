package ftp

import (
	"context"
	"strconv"

	"github.com/marmos91/dittoftp/internal/adapter/ftp/reply"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/vfs"
	"github.com/marmos91/dittoftp/internal/logger"
)

var errHomeProtected = reply.NewError(reply.FileUnavailable, "Permission denied", reply.ErrPermissionDenied)

func (c *Connection) handleSIZE(_ context.Context, arg string) (reply.Reply, error) {
	target := c.authenticated().Resolve(arg)

	fi, err := c.fs.Stat(target)
	if err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "File not found", err)
	}
	if !fi.Mode().IsRegular() {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Not a file", reply.ErrNotFile)
	}
	return reply.New(reply.FileStatus, strconv.FormatInt(fi.Size(), 10)), nil
}

// handleMKD creates a directory and any missing parents.
func (c *Connection) handleMKD(ctx context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	target := a.Resolve(arg)

	if _, err := c.fs.Stat(target); err == nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Directory already exists", nil)
	}
	if err := c.fs.MkdirAll(target, 0o755); err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Failed to create directory", err)
	}

	virt := vfs.Virtual(a.Home, target)
	logger.InfoCtx(ctx, "FTP directory created", logger.Path(virt))
	return reply.New(reply.PathCreated, reply.Quote(virt)+" Directory created"), nil
}

// handleRMD removes a directory with its content. The home itself cannot be removed.
func (c *Connection) handleRMD(ctx context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	target := a.Resolve(arg)
	if target == a.Home {
		return reply.Reply{}, errHomeProtected
	}

	fi, err := c.fs.Stat(target)
	if err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Directory not found", err)
	}
	if !fi.IsDir() {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Not a directory", reply.ErrNotDirectory)
	}
	if err := c.fs.RemoveAll(target); err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Failed to remove directory", err)
	}

	logger.InfoCtx(ctx, "FTP directory removed", logger.Path(vfs.Virtual(a.Home, target)))
	return reply.New(reply.FileActionOK, "Directory removed"), nil
}

func (c *Connection) handleDELE(ctx context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	target := a.Resolve(arg)

	fi, err := c.fs.Stat(target)
	if err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "File not found", err)
	}
	if fi.IsDir() {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Not a file", reply.ErrNotFile)
	}
	if err := c.fs.Remove(target); err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Failed to delete file", err)
	}

	logger.InfoCtx(ctx, "FTP file deleted", logger.Path(vfs.Virtual(a.Home, target)))
	return reply.New(reply.FileActionOK, "File deleted"), nil
}

// handleRNFR records the sandboxed source of a rename.
func (c *Connection) handleRNFR(_ context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	source := a.Resolve(arg)
	if source == a.Home {
		return reply.Reply{}, errHomeProtected
	}
	if _, err := c.fs.Stat(source); err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "File not found", err)
	}

	a.RenameFrom = source
	return reply.New(reply.PendingFurtherInfo, "RNFR accepted, ready for RNTO"), nil
}

// handleRNTO completes a rename. The pending source is cleared whatever the outcome.
func (c *Connection) handleRNTO(ctx context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	from, _ := a.TakeRename()
	to := a.Resolve(arg)
	if to == a.Home {
		return reply.Reply{}, errHomeProtected
	}

	if err := c.fs.Rename(from, to); err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Rename failed", err)
	}

	logger.InfoCtx(ctx, "FTP rename",
		logger.KeyOldPath, vfs.Virtual(a.Home, from),
		logger.KeyNewPath, vfs.Virtual(a.Home, to))
	return reply.New(reply.FileActionOK, "Rename successful"), nil
}
