package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittoftp/internal/logger"
)

// ConnectionHandler serves one accepted control connection. Serve blocks until
// the connection is closed or ctx is cancelled.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory creates protocol-specific handlers for accepted connections.
type ConnectionFactory interface {
	NewConnection(conn net.Conn) ConnectionHandler
}

// ConnectionRejecter is implemented by factories that want to tell a client
// why it was turned away (FTP sends "421 Too many users") before the close.
type ConnectionRejecter interface {
	RejectConnection(conn net.Conn)
}

// BaseConfig holds the listener settings common to protocol adapters.
type BaseConfig struct {
	// BindAddress is the IP address to bind to. Empty binds all interfaces.
	BindAddress string

	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// MaxConnections limits concurrent client connections. 0 means unlimited.
	MaxConnections int

	// ShutdownTimeout bounds how long Stop waits for sessions before
	// force-closing them.
	ShutdownTimeout time.Duration

	// MetricsLogInterval is the interval at which to log connection counts.
	// 0 disables periodic logging.
	MetricsLogInterval time.Duration
}

// ConnectionMetrics records connection lifecycle events. Nil disables metrics.
type ConnectionMetrics interface {
	RecordConnectionAccepted()
	RecordConnectionRejected()
	RecordConnectionClosed()
	RecordConnectionForceClosed()
	SetActiveConnections(count int32)
}

// BaseAdapter provides the TCP lifecycle shared by protocol adapters:
// listening, the accept loop, the connection limit, connection tracking and
// shutdown. Protocol behavior is injected through a ConnectionFactory.
//
// All exported methods are safe for concurrent use. Shutdown is guarded by
// sync.Once, so Stop may be called any number of times.
type BaseAdapter struct {
	Config BaseConfig

	protocolName string

	// Metrics is optional.
	Metrics ConnectionMetrics

	listenerMu sync.RWMutex
	listener   net.Listener

	// ListenerReady is closed once Listen succeeded.
	ListenerReady chan struct{}

	activeConns  sync.WaitGroup
	shutdownOnce sync.Once

	// Shutdown is closed when shutdown begins.
	Shutdown chan struct{}

	// ConnCount is the number of active connections.
	ConnCount atomic.Int32

	connSemaphore chan struct{}

	// ShutdownCtx is passed to every ConnectionHandler and cancelled on shutdown.
	ShutdownCtx    context.Context
	CancelRequests context.CancelFunc

	// ActiveConnections maps remote address to net.Conn for forced closure.
	ActiveConnections sync.Map
}

// NewBaseAdapter creates a BaseAdapter in the stopped state.
func NewBaseAdapter(config BaseConfig, protocol string) *BaseAdapter {
	var sem chan struct{}
	if config.MaxConnections > 0 {
		sem = make(chan struct{}, config.MaxConnections)
	}
	logger.Debug(protocol+" connection limit", "max_connections", config.MaxConnections)

	shutdownCtx, cancel := context.WithCancel(context.Background())

	return &BaseAdapter{
		Config:         config,
		protocolName:   protocol,
		Shutdown:       make(chan struct{}),
		connSemaphore:  sem,
		ShutdownCtx:    shutdownCtx,
		CancelRequests: cancel,
		ListenerReady:  make(chan struct{}),
	}
}

// Listen binds the listening socket.
func (b *BaseAdapter) Listen() error {
	b.listenerMu.Lock()
	defer b.listenerMu.Unlock()

	if b.listener != nil {
		return nil
	}

	select {
	case <-b.Shutdown:
		return fmt.Errorf("%s adapter already stopped", b.protocolName)
	default:
	}

	addr := net.JoinHostPort(b.Config.BindAddress, strconv.Itoa(b.Config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create %s listener on %s: %w", b.protocolName, addr, err)
	}

	b.listener = ln
	close(b.ListenerReady)
	logger.Info(b.protocolName+" server listening", "address", ln.Addr().String())
	return nil
}

// ServeWithFactory runs the accept loop, creating a handler per connection
// through factory. When MaxConnections is reached, new connections are
// rejected (through ConnectionRejecter when the factory implements it).
//
// Returns nil on shutdown.
func (b *BaseAdapter) ServeWithFactory(ctx context.Context, factory ConnectionFactory) error {
	if err := b.Listen(); err != nil {
		return err
	}

	b.listenerMu.RLock()
	ln := b.listener
	b.listenerMu.RUnlock()

	stopWatch := context.AfterFunc(ctx, func() {
		logger.Info(b.protocolName+" shutdown signal received", logger.KeyError, ctx.Err())
		b.initiateShutdown()
	})
	defer stopWatch()

	if b.Config.MetricsLogInterval > 0 {
		go b.logMetrics(b.ShutdownCtx)
	}

	rejecter, _ := factory.(ConnectionRejecter)

	for {
		tcpConn, err := ln.Accept()
		if err != nil {
			select {
			case <-b.Shutdown:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Debug("Error accepting "+b.protocolName+" connection", logger.KeyError, err)
			time.Sleep(10 * time.Millisecond)
			continue
		}

		select {
		case <-b.Shutdown:
			_ = tcpConn.Close()
			return nil
		default:
		}

		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}

		if !b.tryAcquire() {
			logger.Warn(b.protocolName+" connection limit reached, rejecting",
				logger.KeyClientAddr, tcpConn.RemoteAddr().String(),
				"max_connections", b.Config.MaxConnections)
			if b.Metrics != nil {
				b.Metrics.RecordConnectionRejected()
			}
			if rejecter != nil {
				rejecter.RejectConnection(tcpConn)
			}
			_ = tcpConn.Close()
			continue
		}

		b.track(factory, tcpConn)
	}
}

func (b *BaseAdapter) tryAcquire() bool {
	if b.connSemaphore == nil {
		return true
	}
	select {
	case b.connSemaphore <- struct{}{}:
		return true
	default:
		return false
	}
}

func (b *BaseAdapter) release() {
	if b.connSemaphore != nil {
		<-b.connSemaphore
	}
}

func (b *BaseAdapter) track(factory ConnectionFactory, tcpConn net.Conn) {
	b.activeConns.Add(1)
	active := b.ConnCount.Add(1)

	addr := tcpConn.RemoteAddr().String()
	b.ActiveConnections.Store(addr, tcpConn)

	if b.Metrics != nil {
		b.Metrics.RecordConnectionAccepted()
		b.Metrics.SetActiveConnections(active)
	}
	logger.Debug(b.protocolName+" connection accepted", logger.KeyClientAddr, addr, logger.KeyActive, active)

	handler := factory.NewConnection(tcpConn)

	go func() {
		defer func() {
			b.ActiveConnections.Delete(addr)
			_ = tcpConn.Close()

			remaining := b.ConnCount.Add(-1)
			b.release()
			if b.Metrics != nil {
				b.Metrics.RecordConnectionClosed()
				b.Metrics.SetActiveConnections(remaining)
			}
			logger.Debug(b.protocolName+" connection closed", logger.KeyClientAddr, addr, logger.KeyActive, remaining)
			b.activeConns.Done()
		}()

		handler.Serve(b.ShutdownCtx)
	}()
}

// initiateShutdown closes the listener, interrupts blocked reads and cancels
// ShutdownCtx. Safe to call many times.
func (b *BaseAdapter) initiateShutdown() {
	b.shutdownOnce.Do(func() {
		logger.Debug(b.protocolName + " shutdown initiated")
		close(b.Shutdown)

		b.listenerMu.Lock()
		if b.listener != nil {
			if err := b.listener.Close(); err != nil {
				logger.Debug("Error closing "+b.protocolName+" listener", logger.KeyError, err)
			}
		}
		b.listenerMu.Unlock()

		b.interruptBlockingReads()
		b.CancelRequests()
	})
}

func (b *BaseAdapter) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	b.ActiveConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			_ = conn.SetReadDeadline(deadline)
		}
		return true
	})
}

func (b *BaseAdapter) forceCloseConnections() int {
	closed := 0
	b.ActiveConnections.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err == nil {
			closed++
			if b.Metrics != nil {
				b.Metrics.RecordConnectionForceClosed()
			}
		}
		return true
	})
	if closed > 0 {
		logger.Info("Force-closed "+b.protocolName+" connections", "count", closed)
	}
	return closed
}

// Stop initiates shutdown and waits for every connection goroutine to exit.
// Connections still open after ShutdownTimeout (or when ctx is done, whichever
// comes first) are force-closed. Stop returns once all sessions are gone.
func (b *BaseAdapter) Stop(ctx context.Context) error {
	b.initiateShutdown()
	if ctx == nil {
		ctx = context.Background()
	}

	done := make(chan struct{})
	go func() {
		b.activeConns.Wait()
		close(done)
	}()

	timeout := b.Config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case <-done:
		logger.Info(b.protocolName + " shutdown complete: all connections closed")
		return nil
	case <-timer.C:
		err = fmt.Errorf("%s shutdown timeout: %d connections force-closed", b.protocolName, b.ConnCount.Load())
	case <-ctx.Done():
		err = ctx.Err()
	}

	logger.Warn(b.protocolName+" shutdown deadline reached, forcing closure", logger.KeyActive, b.ConnCount.Load())
	b.forceCloseConnections()
	<-done
	return err
}

func (b *BaseAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(b.Config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info(b.protocolName+" metrics", logger.KeyActive, b.ConnCount.Load())
		}
	}
}

// GetActiveConnections returns the current number of active connections.
func (b *BaseAdapter) GetActiveConnections() int32 {
	return b.ConnCount.Load()
}

// GetListenerAddr returns the bound address. It blocks until Listen succeeded.
func (b *BaseAdapter) GetListenerAddr() string {
	<-b.ListenerReady

	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Port returns the bound port once listening, otherwise the configured one.
func (b *BaseAdapter) Port() int {
	b.listenerMu.RLock()
	defer b.listenerMu.RUnlock()
	if b.listener != nil {
		if tcp, ok := b.listener.Addr().(*net.TCPAddr); ok {
			return tcp.Port
		}
	}
	return b.Config.Port
}

// Protocol returns the protocol name.
func (b *BaseAdapter) Protocol() string {
	return b.protocolName
}

// MapError is the default: no protocol mapping.
func (b *BaseAdapter) MapError(_ error) ProtocolError {
	return nil
}
