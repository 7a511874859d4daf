package pasv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"
)

// DefaultAcceptTimeout is how long a transfer waits for the client to
// connect to the passive port.
const DefaultAcceptTimeout = 5 * time.Second

var (
	// ErrAcceptTimeout is returned when no data connection arrived in time.
	ErrAcceptTimeout = errors.New("timed out waiting for data connection")

	// ErrClosed is returned by Wait after the channel was closed.
	ErrClosed = errors.New("data channel closed")
)

// ListenFunc opens the passive listener. It matches net.ListenConfig.Listen.
type ListenFunc func(ctx context.Context, network, address string) (net.Listener, error)

// Channel is one passive data endpoint: a leased port, its listener and at
// most one accepted data connection. A session owns at most one Channel.
//
// Close may be called any number of times from any goroutine; the port is
// returned to the allocator exactly once.
type Channel struct {
	alloc *Allocator
	port  int
	ln    net.Listener

	ready chan struct{} // closed once Accept returned
	conn  net.Conn
	err   error

	closeOnce sync.Once
	done      chan struct{}
	onClose   func(port int)
}

// Options tunes Open.
type Options struct {
	// BindHost is the local address the listener binds to. Empty binds all interfaces.
	BindHost string

	// Listen overrides the listener constructor. Nil uses net.ListenConfig.
	Listen ListenFunc

	// OnAccept is called with the remote address once a data connection is attached.
	OnAccept func(port int, remote net.Addr)

	// OnClose is called once when the channel is torn down.
	OnClose func(port int)
}

// Open leases a port from alloc, starts listening on it and begins accepting
// a single data connection in the background. Ports the OS refuses to bind
// are skipped. ErrPoolExhausted is returned when no port could be used.
func Open(ctx context.Context, alloc *Allocator, opts Options) (*Channel, error) {
	listen := opts.Listen
	if listen == nil {
		var lc net.ListenConfig
		listen = lc.Listen
	}

	var (
		skipped []int
		lastErr error
	)
	defer func() {
		for _, p := range skipped {
			alloc.Release(p)
		}
	}()

	for {
		port, ok := alloc.Allocate()
		if !ok {
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrPoolExhausted, lastErr)
			}
			return nil, ErrPoolExhausted
		}

		ln, err := listen(ctx, "tcp", net.JoinHostPort(opts.BindHost, strconv.Itoa(port)))
		if err != nil {
			skipped = append(skipped, port)
			lastErr = err
			continue
		}

		c := &Channel{
			alloc:   alloc,
			port:    port,
			ln:      ln,
			ready:   make(chan struct{}),
			done:    make(chan struct{}),
			onClose: opts.OnClose,
		}
		go c.accept(opts.OnAccept)
		return c, nil
	}
}

func (c *Channel) accept(onAccept func(int, net.Addr)) {
	conn, err := c.ln.Accept()
	// One PASV serves one data connection.
	_ = c.ln.Close()

	select {
	case <-c.done:
		if conn != nil {
			_ = conn.Close()
		}
		c.err = ErrClosed
		close(c.ready)
		return
	default:
	}

	c.conn, c.err = conn, err
	close(c.ready)
	if err == nil && onAccept != nil {
		onAccept(c.port, conn.RemoteAddr())
	}
}

// Port returns the leased port.
func (c *Channel) Port() int {
	return c.port
}

// Addr returns the listener address.
func (c *Channel) Addr() net.Addr {
	return c.ln.Addr()
}

// Wait blocks until the data connection is attached, timeout elapses, ctx is
// cancelled or the channel is closed. On timeout or cancellation the channel
// is closed. The returned connection is owned by the channel and is closed by
// Close.
func (c *Channel) Wait(ctx context.Context, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		timeout = DefaultAcceptTimeout
	}
	select {
	case <-c.done:
		return nil, ErrClosed
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.ready:
		if c.err == nil {
			return c.conn, nil
		}
		select {
		case <-c.done:
			return nil, ErrClosed
		default:
		}
		err := c.err
		c.Close()
		return nil, err
	case <-c.done:
		return nil, ErrClosed
	case <-timer.C:
		c.Close()
		return nil, ErrAcceptTimeout
	case <-ctx.Done():
		c.Close()
		return nil, ctx.Err()
	}
}

// connected reports whether a data connection has been attached.
func (c *Channel) connected() bool {
	select {
	case <-c.ready:
		return c.err == nil && c.conn != nil
	default:
		return false
	}
}

// Close tears the channel down: listener, data connection and port lease.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ln.Close()

		// Accept has returned (or is about to, now that the listener is closed).
		<-c.ready
		if c.conn != nil {
			_ = c.conn.Close()
		}

		c.alloc.Release(c.port)
		if c.onClose != nil {
			c.onClose(c.port)
		}
	})
}
