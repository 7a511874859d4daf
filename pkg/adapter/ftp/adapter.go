package ftp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/afero"

	"github.com/marmos91/dittoftp/internal/adapter/ftp/pasv"
	"github.com/marmos91/dittoftp/internal/adapter/ftp/reply"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/adapter"
	"github.com/marmos91/dittoftp/pkg/bufpool"
	"github.com/marmos91/dittoftp/pkg/identity"
	"github.com/marmos91/dittoftp/pkg/metrics"
)

// Adapter implements the adapter.Adapter interface for the FTP control protocol.
//
// Architecture:
// Adapter embeds BaseAdapter for the TCP lifecycle (listener, accept loop,
// connection limit, shutdown, force-close). Protocol behavior lives in
// Connection, created per control socket through NewConnection.
//
// Shared state is limited to the user registry and the passive port
// allocator; both are owned by the caller (the supervisor) and passed in, so
// several adapters or tests never share ambient globals.
//
// Shutdown flow:
//  1. Context cancelled or Stop() called
//  2. Listener closed (no new connections) [BaseAdapter]
//  3. ShutdownCtx cancelled: sessions reply 421, abort transfers and close
//     their passive channels [Connection]
//  4. Wait for sessions up to Timeouts.Shutdown, then force-close [BaseAdapter]
type Adapter struct {
	*adapter.BaseAdapter

	config Config

	users    *identity.Registry
	ports    *pasv.Allocator
	fs       afero.Fs
	buffers  *bufpool.Pool
	metrics  metrics.FTPMetrics
	observer Observer
	rehash   func(username, password string)
	now      func() time.Time
}

// Options carries the adapter's collaborators.
type Options struct {
	// Users is consulted by USER and PASS. Required.
	Users *identity.Registry

	// Ports leases passive data ports. Nil creates an allocator over
	// Config.PassivePorts.
	Ports *pasv.Allocator

	// Fs is the filesystem homes live on. Nil uses the OS filesystem.
	Fs afero.Fs

	// Metrics is optional.
	Metrics metrics.FTPMetrics

	// Observer receives control, data and session events. Optional.
	Observer Observer

	// Rehash is called after a login whose stored hash uses a bcrypt cost
	// below identity.DefaultBcryptCost. It runs on the session goroutine and
	// must not block. Optional.
	Rehash func(username, password string)
}

// New creates an Adapter. Zero values in config are replaced with defaults;
// an invalid configuration is returned as an error.
func New(config Config, opts Options) (*Adapter, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if opts.Users == nil {
		return nil, errors.New("ftp adapter requires a user registry")
	}

	ports := opts.Ports
	if ports == nil {
		var err error
		ports, err = pasv.NewAllocator(config.PassivePorts.Low, config.PassivePorts.High)
		if err != nil {
			return nil, fmt.Errorf("invalid FTP config: %w", err)
		}
	}

	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	low, high := ports.Range()
	logger.Debug("FTP configuration",
		"storage_root", config.StorageRoot,
		"passive_low", low,
		"passive_high", high,
		"advertised_host", config.AdvertisedHost,
		"data_conn_timeout", config.DataConnTimeout,
		"idle_timeout", config.Timeouts.Idle,
		"transfer_buffer_size", config.TransferBufferSize.String())

	base := adapter.NewBaseAdapter(adapter.BaseConfig{
		BindAddress:        config.BindAddress,
		Port:               config.Port,
		MaxConnections:     config.MaxConnections,
		ShutdownTimeout:    config.Timeouts.Shutdown,
		MetricsLogInterval: config.MetricsLogInterval,
	}, "FTP")
	if opts.Metrics != nil {
		base.Metrics = opts.Metrics
	}

	return &Adapter{
		BaseAdapter: base,
		config:      config,
		users:       opts.Users,
		ports:       ports,
		fs:          fs,
		buffers:     bufpool.New(config.TransferBufferSize.Int()),
		metrics:     opts.Metrics,
		observer:    observer,
		rehash:      opts.Rehash,
		now:         time.Now,
	}, nil
}

// Serve accepts control connections until ctx is cancelled or Stop is called.
func (a *Adapter) Serve(ctx context.Context) error {
	return a.ServeWithFactory(ctx, a)
}

// NewConnection implements adapter.ConnectionFactory.
func (a *Adapter) NewConnection(conn net.Conn) adapter.ConnectionHandler {
	return newConnection(a, conn)
}

// RejectConnection implements adapter.ConnectionRejecter: clients over the
// connection limit are told why before the socket closes.
func (a *Adapter) RejectConnection(conn net.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, _ = conn.Write(reply.New(reply.ServiceUnavailable, "Too many users, try again later").Wire())
}

// MapError translates an engine error into its FTP reply.
func (a *Adapter) MapError(err error) adapter.ProtocolError {
	if err == nil {
		return nil
	}
	return reply.FromError(err)
}

// FTPConfig returns the effective configuration (defaults applied).
func (a *Adapter) FTPConfig() Config {
	return a.config
}

// Ports returns the passive port allocator.
func (a *Adapter) Ports() *pasv.Allocator {
	return a.ports
}

var _ adapter.Adapter = (*Adapter)(nil)
