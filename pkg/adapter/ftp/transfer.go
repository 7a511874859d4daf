package ftp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/marmos91/dittoftp/internal/adapter/ftp/listing"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/pasv"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/reply"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/vfs"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/internal/telemetry"
)

// Transfer directions, used in logs and metrics.
const (
	directionDownload = "download"
	directionUpload   = "upload"
	directionListing  = "listing"
)

var errNoPassive = reply.NewError(reply.CannotOpenData, "Use PASV first", reply.ErrNoDataConn)

// transferFunc moves data over an attached data connection. It returns the
// final reply and the number of bytes moved.
type transferFunc func(ctx context.Context, conn net.Conn) (reply.Reply, int64, error)

// handlePASV opens a passive data channel, replacing any previous one.
func (c *Connection) handlePASV(ctx context.Context, _ string) (reply.Reply, error) {
	c.closeChannel()

	ch, err := pasv.Open(ctx, c.adapter.ports, pasv.Options{
		BindHost: c.adapter.config.BindAddress,
		OnAccept: func(port int, remote net.Addr) {
			logger.DebugCtx(ctx, "FTP data connection accepted", logger.Port(port), logger.ClientAddr(remote.String()))
			c.adapter.observer.DataEvent(c.remote, DataEventConnection, port)
		},
		OnClose: func(port int) {
			c.adapter.observer.DataEvent(c.remote, DataEventClosed, port)
			c.adapter.reportPorts()
		},
	})
	if err != nil {
		if errors.Is(err, pasv.ErrPoolExhausted) {
			logger.WarnCtx(ctx, "FTP passive port pool exhausted", logger.Err(err))
			return reply.Reply{}, err
		}
		return reply.Reply{}, reply.NewError(reply.CannotOpenData, "Can't open passive connection", err)
	}
	c.channel = ch
	c.adapter.reportPorts()

	ip := pasv.HostIPv4(c.adapter.config.AdvertisedHost, c.conn.LocalAddr())
	logger.DebugCtx(ctx, "FTP passive channel open", logger.Port(ch.Port()), "host", ip.String())
	c.adapter.observer.DataEvent(c.remote, DataEventOpen, ch.Port())
	return reply.New(reply.EnteringPassive, "Entering Passive Mode ("+pasv.FormatAddress(ip, ch.Port())+")"), nil
}

// handleLIST sends a directory listing. Leading "-flags" in the argument are
// ignored. Listing a file yields that single entry.
func (c *Connection) handleLIST(ctx context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	target := a.ResolveOrCwd(stripListFlags(arg))

	fi, err := c.fs.Stat(target)
	if err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "File not found", err)
	}
	if c.channel == nil {
		return reply.Reply{}, errNoPassive
	}

	return c.runTransfer(ctx, directionListing, vfs.Virtual(a.Home, target), func(ctx context.Context, conn net.Conn) (reply.Reply, int64, error) {
		entries := []os.FileInfo{fi}
		if fi.IsDir() {
			var err error
			if entries, err = listing.ReadDir(c.fs, target); err != nil {
				return reply.Reply{}, 0, reply.NewError(reply.FileUnavailable, "Failed to read directory", err)
			}
		}
		lines := listing.Format(entries, c.adapter.now())

		if err := c.reply(reply.New(reply.OpeningData, "Opening ASCII mode data connection for file list")); err != nil {
			return reply.Reply{}, 0, err
		}
		buf := c.adapter.buffers.Get()
		defer c.adapter.buffers.Put(buf)
		n, err := pasv.Send(ctx, conn, bytes.NewReader(listing.Encode(lines)), buf)
		if err != nil {
			return reply.Reply{}, n, err
		}
		telemetry.SetAttributes(ctx, telemetry.Entries(len(lines)))
		return reply.New(reply.TransferComplete, "Transfer complete"), n, nil
	})
}

// handleRETR streams a regular file to the client.
func (c *Connection) handleRETR(ctx context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	target := a.Resolve(arg)

	fi, err := c.fs.Stat(target)
	if err != nil {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "File not found", err)
	}
	if !fi.Mode().IsRegular() {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Not a file", reply.ErrNotFile)
	}
	if c.channel == nil {
		return reply.Reply{}, errNoPassive
	}

	virt := vfs.Virtual(a.Home, target)
	return c.runTransfer(ctx, directionDownload, virt, func(ctx context.Context, conn net.Conn) (reply.Reply, int64, error) {
		f, err := c.fs.Open(target)
		if err != nil {
			return reply.Reply{}, 0, reply.NewError(reply.FileUnavailable, "File not found", err)
		}
		defer func() { _ = f.Close() }()

		opening := reply.Newf(reply.OpeningData, "Opening BINARY mode data connection for %s (%d bytes)", path.Base(virt), fi.Size())
		if err := c.reply(opening); err != nil {
			return reply.Reply{}, 0, err
		}
		buf := c.adapter.buffers.Get()
		defer c.adapter.buffers.Put(buf)
		n, err := pasv.Send(ctx, conn, f, buf)
		if err != nil {
			return reply.Reply{}, n, err
		}
		return reply.New(reply.TransferComplete, "Transfer complete"), n, nil
	})
}

// handleSTOR writes the data connection into a created or truncated file.
// The file is synced before 226; a failed upload removes the partial file.
func (c *Connection) handleSTOR(ctx context.Context, arg string) (reply.Reply, error) {
	a := c.authenticated()
	target := a.Resolve(arg)

	if fi, err := c.fs.Stat(target); err == nil && fi.IsDir() {
		return reply.Reply{}, reply.NewError(reply.FileUnavailable, "Not a file", reply.ErrNotFile)
	}
	if c.channel == nil {
		return reply.Reply{}, errNoPassive
	}

	virt := vfs.Virtual(a.Home, target)
	return c.runTransfer(ctx, directionUpload, virt, func(ctx context.Context, conn net.Conn) (reply.Reply, int64, error) {
		f, err := c.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return reply.Reply{}, 0, reply.NewError(reply.FileUnavailable, "Cannot create file", err)
		}

		if err := c.reply(reply.New(reply.OpeningData, "Opening BINARY mode data connection for "+path.Base(virt))); err != nil {
			_ = f.Close()
			_ = c.fs.Remove(target)
			return reply.Reply{}, 0, err
		}

		buf := c.adapter.buffers.Get()
		defer c.adapter.buffers.Put(buf)
		n, err := pasv.Receive(ctx, f, conn, buf)
		if err == nil {
			if serr := f.Sync(); serr != nil {
				err = fmt.Errorf("%w: sync: %w", pasv.ErrLocalIO, serr)
			}
		}
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("%w: close: %w", pasv.ErrLocalIO, cerr)
		}
		if err != nil {
			if rerr := c.fs.Remove(target); rerr != nil {
				logger.WarnCtx(ctx, "FTP partial upload not removed", logger.Path(virt), logger.Err(rerr))
			}
			return reply.Reply{}, n, err
		}
		return reply.New(reply.TransferComplete, "Transfer complete"), n, nil
	})
}

// runTransfer consumes the session's passive channel: it waits for the data
// connection and runs fn, while still reading the control connection. ABOR
// cancels the transfer; other commands are queued until it finished. The
// channel is closed (and its port released) when runTransfer returns.
func (c *Connection) runTransfer(ctx context.Context, direction, virt string, fn transferFunc) (reply.Reply, error) {
	ch := c.channel
	c.channel = nil
	defer ch.Close()

	ctx, span := telemetry.StartTransferSpan(ctx, direction,
		telemetry.Path(virt), telemetry.FTPPassivePort(ch.Port()))
	defer span.End()

	tctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		r   reply.Reply
		n   int64
		err error
	}
	done := make(chan result, 1)
	start := time.Now()

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- result{err: fmt.Errorf("%w: transfer panic: %v", reply.ErrInternal, p)}
			}
		}()
		conn, err := ch.Wait(tctx, c.adapter.config.DataConnTimeout)
		if err != nil {
			done <- result{err: err}
			return
		}
		r, n, err := fn(tctx, conn)
		done <- result{r, n, err}
	}()

	cmds := c.cmds
	abortRequested := false
	var res result
wait:
	for {
		select {
		case res = <-done:
			break wait
		case cmd, ok := <-cmds:
			if !ok {
				// Control connection gone: nobody is left to read the reply.
				cmds = nil
				cancel()
				c.pending = append(c.pending, command{err: errors.New("control connection closed")})
				continue
			}
			if len(c.pending) >= maxPendingCommands {
				logger.WarnCtx(ctx, "FTP command queue full, closing session", "limit", maxPendingCommands)
				cmds = nil
				cancel()
				c.pending = []command{{err: errTooManyPending}}
				continue
			}
			c.pending = append(c.pending, cmd)
			if verb, _ := parseCommand(cmd.line); cmd.err == nil && verb == "ABOR" {
				logger.InfoCtx(ctx, "FTP transfer abort requested", logger.KeyDirection, direction)
				abortRequested = true
				cancel()
			} else if cmd.err != nil {
				cmds = nil
				cancel()
			}
		}
	}

	err := res.err
	if err != nil && tctx.Err() != nil && !errors.Is(err, pasv.ErrAborted) {
		err = fmt.Errorf("%w: %w", reply.ErrTransferAborted, err)
	}
	c.aborted = abortRequested && err != nil
	c.finishTransfer(ctx, direction, virt, res.n, time.Since(start), err)
	return res.r, err
}

func (c *Connection) finishTransfer(ctx context.Context, direction, virt string, n int64, elapsed time.Duration, err error) {
	if m := c.adapter.metrics; m != nil {
		m.RecordTransfer(direction, n, elapsed, err == nil)
	}
	telemetry.SetAttributes(ctx, telemetry.Bytes(n))

	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "FTP transfer failed",
			logger.KeyDirection, direction, logger.Path(virt), logger.Bytes(n), logger.Err(err))
		return
	}
	logger.InfoCtx(ctx, "FTP transfer complete",
		logger.KeyDirection, direction,
		logger.Path(virt),
		logger.Bytes(n),
		"size", humanize.IBytes(uint64(n)),
		logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0)
}

// stripListFlags drops leading "-la" style options some clients send with LIST.
func stripListFlags(arg string) string {
	for {
		arg = strings.TrimLeft(arg, " \t")
		if !strings.HasPrefix(arg, "-") {
			return arg
		}
		i := strings.IndexAny(arg, " \t")
		if i < 0 {
			return ""
		}
		arg = arg[i:]
	}
}

// reportPorts publishes the passive pool usage.
func (a *Adapter) reportPorts() {
	if a.metrics != nil {
		a.metrics.SetPassivePortsLeased(a.ports.Leased())
	}
}
