// Package server runs the FTP engine as a supervised worker.
//
// The Supervisor owns the user registry and the passive port allocator,
// starts and stops the FTP adapter, and republishes everything the engine
// reports (control lines, data channel and session transitions, log lines)
// as a single Event stream for a host process or UI.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/marmos91/dittoftp/internal/adapter/ftp/pasv"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/adapter/ftp"
	"github.com/marmos91/dittoftp/pkg/identity"
	"github.com/marmos91/dittoftp/pkg/metrics"
)

// DefaultEventBuffer is the capacity of the event channel.
const DefaultEventBuffer = 1024

// ErrAlreadyRunning is returned by Start while a server is running.
var ErrAlreadyRunning = errors.New("ftp server already running")

// LoginRecorder is called after a successful login, off the session goroutine.
type LoginRecorder func(ctx context.Context, username string, at time.Time) error

// PasswordUpdater stores a new password hash for username.
type PasswordUpdater func(ctx context.Context, username, passwordHash string) error

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithEventBuffer sets the event channel capacity.
func WithEventBuffer(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithMetrics enables engine metrics.
func WithMetrics(m metrics.FTPMetrics) Option {
	return func(s *Supervisor) { s.metrics = m }
}

// WithFs serves homes from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(s *Supervisor) { s.fs = fs }
}

// WithLoginRecorder registers a hook run after each successful login.
func WithLoginRecorder(fn LoginRecorder) Option {
	return func(s *Supervisor) { s.recordLogin = fn }
}

// WithPasswordUpgrade re-hashes a password stored with a weak bcrypt cost on
// its next successful login and saves the result through fn.
func WithPasswordUpgrade(fn PasswordUpdater) Option {
	return func(s *Supervisor) { s.updatePassword = fn }
}

// Supervisor starts, stops and reconfigures one FTP server.
//
// Start, Stop and ReloadUsers are safe for concurrent use. The Events channel
// is never closed; events are dropped (and counted) when it is full, so a slow
// consumer never stalls a session.
type Supervisor struct {
	bufferSize     int
	metrics        metrics.FTPMetrics
	fs             afero.Fs
	recordLogin    LoginRecorder
	updatePassword PasswordUpdater

	events chan Event
	users  *identity.Registry

	mu      sync.Mutex
	adapter *ftp.Adapter
	cancel  context.CancelFunc
	served  chan struct{}
	hooks   sync.WaitGroup
}

// New creates a stopped Supervisor.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{bufferSize: DefaultEventBuffer}
	for _, opt := range opts {
		opt(s)
	}
	s.events = make(chan Event, s.bufferSize)
	s.users, _ = identity.NewRegistry(nil)
	return s
}

// Events returns the event stream.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// Start binds the control listener and begins serving. It returns once the
// listener is bound; failures are also emitted as an EventError. ctx bounds
// startup only: the server runs until Stop.
func (s *Supervisor) Start(ctx context.Context, cfg ftp.Config, users []identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adapter != nil {
		return ErrAlreadyRunning
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.start(cfg, users); err != nil {
		s.emit(Event{Type: EventError, Message: err.Error()})
		logger.Error("FTP server failed to start", logger.Err(err))
		return err
	}
	return nil
}

func (s *Supervisor) start(cfg ftp.Config, users []identity.User) error {
	if err := s.users.Replace(users); err != nil {
		return fmt.Errorf("invalid users: %w", err)
	}

	cfg.ApplyDefaults()
	ports, err := pasv.NewAllocator(cfg.PassivePorts.Low, cfg.PassivePorts.High)
	if err != nil {
		return fmt.Errorf("invalid passive port range: %w", err)
	}

	var rehash func(username, password string)
	if s.updatePassword != nil {
		rehash = s.rehash
	}
	a, err := ftp.New(cfg, ftp.Options{
		Users:    s.users,
		Ports:    ports,
		Fs:       s.fs,
		Metrics:  s.metrics,
		Observer: s,
		Rehash:   rehash,
	})
	if err != nil {
		return err
	}
	if err := a.Listen(); err != nil {
		return err
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		defer close(served)
		if err := a.Serve(serveCtx); err != nil {
			logger.Error("FTP server stopped unexpectedly", logger.Err(err))
			s.emit(Event{Type: EventError, Message: err.Error()})
		}
	}()

	s.adapter, s.cancel, s.served = a, cancel, served

	port := a.Port()
	logger.Info("FTP server started", logger.Port(port), "users", s.users.Len())
	s.emit(Event{Type: EventStarted, Port: port})
	return nil
}

// Stop closes the listener and every session, waiting up to the configured
// shutdown timeout (or ctx) before force-closing. Stopping a stopped
// Supervisor is a no-op.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adapter == nil {
		return nil
	}

	s.cancel()
	err := s.adapter.Stop(ctx)
	<-s.served
	s.hooks.Wait()
	s.adapter, s.cancel, s.served = nil, nil, nil

	logger.Info("FTP server stopped")
	s.emit(Event{Type: EventStopped})
	return err
}

// ReloadUsers replaces the user set. Sessions that already logged in keep
// their user; logins after the call see the new set. On error the previous
// set stays in effect.
func (s *Supervisor) ReloadUsers(users []identity.User) error {
	if err := s.users.Replace(users); err != nil {
		s.Log("warn", "users reload rejected: "+err.Error(), nil)
		return err
	}
	logger.Info("FTP users reloaded", "count", len(users))
	s.Log("info", "users reloaded", map[string]any{"count": len(users)})
	return nil
}

// Running reports whether a server is running.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapter != nil
}

// Port returns the bound control port, or 0 when stopped.
func (s *Supervisor) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.adapter == nil {
		return 0
	}
	return s.adapter.Port()
}

// Status is a point-in-time view of the running server.
type Status struct {
	Running           bool `json:"running"`
	Port              int  `json:"port,omitempty"`
	ActiveConnections int  `json:"active_connections"`
	PassivePortsInUse int  `json:"passive_ports_in_use"`
	PassivePortsTotal int  `json:"passive_ports_total"`
	Users             int  `json:"users"`
}

// Status returns the current server status.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{Users: s.users.Len()}
	if s.adapter == nil {
		return st
	}
	st.Running = true
	st.Port = s.adapter.Port()
	st.ActiveConnections = int(s.adapter.GetActiveConnections())
	st.PassivePortsInUse = s.adapter.Ports().Leased()
	st.PassivePortsTotal = s.adapter.Ports().Size()
	return st
}

// ControlLine implements ftp.Observer.
func (s *Supervisor) ControlLine(remote, line string) {
	s.emit(Event{Type: EventCtl, Remote: remote, Line: line})
}

// DataEvent implements ftp.Observer.
func (s *Supervisor) DataEvent(remote, event string, port int) {
	s.emit(Event{Type: EventData, Remote: remote, Name: event, Port: port})
}

// SessionEvent implements ftp.Observer.
func (s *Supervisor) SessionEvent(event, username, remote string) {
	s.emit(Event{Type: EventSession, Name: event, User: username, Remote: remote})

	if event != ftp.SessionEventLogin || s.recordLogin == nil {
		return
	}
	at := time.Now()
	s.hooks.Add(1)
	go func() {
		defer s.hooks.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.recordLogin(ctx, username, at); err != nil {
			logger.Warn("Failed to record last login", logger.Username(username), logger.Err(err))
		}
	}()
}

// rehash hashes password at the default cost off the session goroutine. The
// user watcher picks the stored hash up on its next poll.
func (s *Supervisor) rehash(username, password string) {
	s.hooks.Add(1)
	go func() {
		defer s.hooks.Done()
		hash, err := identity.HashPassword(password)
		if err != nil {
			logger.Debug("Password hash not upgraded", logger.Username(username), logger.Err(err))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.updatePassword(ctx, username, hash); err != nil {
			logger.Warn("Failed to upgrade password hash", logger.Username(username), logger.Err(err))
			return
		}
		logger.Info("Password hash upgraded", logger.Username(username))
	}()
}

// Log implements ftp.Observer.
func (s *Supervisor) Log(level, message string, meta map[string]any) {
	s.emit(Event{Type: EventLog, Level: level, Message: message, Meta: meta})
}

func (s *Supervisor) emit(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	select {
	case s.events <- ev:
	default:
		if s.metrics != nil {
			s.metrics.RecordEventDropped(string(ev.Type))
		}
	}
}

var _ ftp.Observer = (*Supervisor)(nil)
