package ftp

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/marmos91/dittoftp/internal/adapter/ftp/pasv"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/reply"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/session"
	"github.com/marmos91/dittoftp/internal/logger"
)

var (
	errLineTooLong    = errors.New("command line too long")
	errTooManyPending = errors.New("too many commands queued")
)

// maxPendingCommands bounds the commands queued behind a running transfer.
const maxPendingCommands = 32

// command is one line read from the control connection, or the read error
// that ended the stream.
type command struct {
	line string
	err  error
}

// Connection serves one FTP control connection.
//
// Concurrency model:
//
//  1. A reader goroutine reads lines from the socket and sends them on cmds.
//  2. Serve is the only goroutine touching session state. It takes commands
//     one at a time and writes each command's full reply sequence before
//     taking the next.
//  3. LIST, RETR and STOR run their data transfer in a helper goroutine while
//     Serve keeps draining cmds: ABOR cancels the transfer, anything else is
//     queued and handled once the transfer finished. Replies stay ordered.
type Connection struct {
	adapter *Adapter
	conn    net.Conn

	remote    string
	sessionID string
	lc        *logger.LogContext

	writeMu sync.Mutex

	cmds    <-chan command
	pending []command

	state        session.State
	fs           afero.Fs // confined to the home once logged in
	transferType string
	channel      *pasv.Channel

	// aborted is set when ABOR interrupted a transfer and cleared by the ABOR handler.
	aborted bool
	closing bool
}

func newConnection(a *Adapter, conn net.Conn) *Connection {
	remote := conn.RemoteAddr().String()
	clientIP := remote
	if host, _, err := net.SplitHostPort(remote); err == nil {
		clientIP = host
	}
	id := uuid.NewString()

	return &Connection{
		adapter:      a,
		conn:         conn,
		remote:       remote,
		sessionID:    id,
		lc:           logger.NewLogContext(id, clientIP),
		state:        session.Unauthenticated{},
		transferType: "I",
	}
}

// Serve runs the session until QUIT, a read error, the idle timeout or ctx
// cancellation. The caller closes the socket afterwards.
func (c *Connection) Serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	ctx = logger.WithContext(ctx, c.lc)

	logger.InfoCtx(ctx, "FTP session opened", logger.ClientAddr(c.remote))
	c.adapter.observer.Log("info", "conn open "+c.remote, map[string]any{"session_id": c.sessionID})
	defer func() {
		c.closeChannel()
		logger.InfoCtx(ctx, "FTP session closed", logger.ClientAddr(c.remote), logger.DurationMs(c.lc.StartTime))
		c.adapter.observer.Log("info", "conn closed "+c.remote, map[string]any{"session_id": c.sessionID})
	}()

	done := make(chan struct{})
	defer close(done)
	c.cmds = c.startReader(done)

	if err := c.reply(reply.New(reply.ServiceReady, c.adapter.config.WelcomeMessage)); err != nil {
		return
	}

	for !c.closing {
		cmd, err := c.next(ctx)
		if err != nil {
			c.farewell(ctx, err)
			return
		}
		if cmd.err != nil {
			if errors.Is(cmd.err, errLineTooLong) {
				_ = c.reply(reply.New(reply.SyntaxError, "Command line too long"))
			} else if errors.Is(cmd.err, errTooManyPending) {
				_ = c.reply(reply.New(reply.ServiceUnavailable, "Too many commands queued, closing control connection"))
			} else if !errors.Is(cmd.err, io.EOF) && !errors.Is(cmd.err, net.ErrClosed) {
				logger.DebugCtx(ctx, "FTP control read failed", logger.Err(cmd.err))
			}
			return
		}
		if cmd.line == "" {
			continue
		}
		if err := c.handle(ctx, cmd.line); err != nil {
			logger.DebugCtx(ctx, "FTP reply write failed", logger.Err(err))
			return
		}
	}
}

// next returns the next command: queued ones first, then the socket. It
// fails when the session is idle for longer than Timeouts.Idle or ctx ends.
func (c *Connection) next(ctx context.Context) (command, error) {
	if len(c.pending) > 0 {
		cmd := c.pending[0]
		c.pending = c.pending[1:]
		return cmd, nil
	}

	var idle <-chan time.Time
	if d := c.adapter.config.Timeouts.Idle; d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		idle = timer.C
	}

	select {
	case cmd, ok := <-c.cmds:
		if !ok {
			return command{err: io.EOF}, nil
		}
		return cmd, nil
	case <-idle:
		return command{}, errIdleTimeout
	case <-ctx.Done():
		return command{}, ctx.Err()
	}
}

var errIdleTimeout = errors.New("idle timeout")

// farewell sends the 421 that precedes a server-initiated close.
func (c *Connection) farewell(ctx context.Context, cause error) {
	text := "Service shutting down"
	if errors.Is(cause, errIdleTimeout) {
		text = "Idle timeout, closing control connection"
	}
	logger.InfoCtx(ctx, "FTP session terminated by server", "reason", cause.Error())
	_ = c.reply(reply.New(reply.ServiceUnavailable, text))
}

// startReader reads control lines until the socket fails. It exits when done
// is closed.
func (c *Connection) startReader(done <-chan struct{}) <-chan command {
	out := make(chan command, 16)
	go func() {
		defer close(out)
		r := bufio.NewReader(c.conn)
		for {
			line, err := readLine(r, MaxLineLength)
			select {
			case out <- command{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return out
}

// readLine reads one line terminated by LF, with an optional CR before it.
// A final unterminated line is returned as is; the next call reports io.EOF.
func readLine(r *bufio.Reader, limit int) (string, error) {
	var sb strings.Builder
	for {
		frag, err := r.ReadSlice('\n')
		if sb.Len()+len(frag) > limit+2 {
			return "", errLineTooLong
		}
		sb.Write(frag)
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if sb.Len() > 0 && errors.Is(err, io.EOF) {
			break
		}
		return "", err
	}

	line := strings.TrimRight(sb.String(), "\r\n")
	if len(line) > limit {
		return "", errLineTooLong
	}
	return line, nil
}

// reply writes one reply line and mirrors it to the observer.
func (c *Connection) reply(r reply.Reply) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if d := c.adapter.config.Timeouts.Write; d > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(d))
	}
	_, err := c.conn.Write(r.Wire())
	c.adapter.observer.ControlLine(c.remote, "<< "+r.String())
	return err
}

// closeChannel tears down the session's passive channel, if any.
func (c *Connection) closeChannel() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
}

// authenticated returns the login state, or nil before login.
func (c *Connection) authenticated() *session.Authenticated {
	a, _ := c.state.(*session.Authenticated)
	return a
}
