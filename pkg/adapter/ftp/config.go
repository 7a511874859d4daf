package ftp

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/dittoftp/internal/bytesize"
	"github.com/marmos91/dittoftp/pkg/bufpool"
)

// DefaultWelcomeMessage is the text of the 220 banner.
const DefaultWelcomeMessage = "Welcome FTP"

// DefaultPort is the control port used by DefaultConfig.
const DefaultPort = 2121

// MaxLineLength bounds one control line. Longer lines get 500 and the
// connection is closed.
const MaxLineLength = 4096

// Config holds the FTP server configuration.
//
// Zero values are replaced by applyDefaults; the documented defaults below are
// what an empty config section produces.
type Config struct {
	// BindAddress is the IP address the control and passive listeners bind to.
	// Empty binds all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address" validate:"omitempty,ip"`

	// Port is the control connection port. 0 picks a free port.
	// Default: 2121 (DefaultConfig and the config loader)
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// PassivePorts is the inclusive range PASV leases data ports from.
	// Default: 30000-30100
	PassivePorts PassivePortRange `mapstructure:"passive_ports" yaml:"passive_ports"`

	// StorageRoot is the directory user homes are created under.
	StorageRoot string `mapstructure:"storage_root" yaml:"storage_root" validate:"required"`

	// AdvertisedHost is the IPv4 address (or resolvable name) sent in 227
	// replies. Empty derives it from the control connection.
	AdvertisedHost string `mapstructure:"advertised_host" yaml:"advertised_host,omitempty"`

	// MaxConnections limits concurrent control connections.
	// Default: 50
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// DataConnTimeout bounds the wait for the client to connect to the
	// passive port.
	// Default: 5s
	DataConnTimeout time.Duration `mapstructure:"data_conn_timeout" yaml:"data_conn_timeout" validate:"min=0"`

	// Timeouts configures control connection timeouts.
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts"`

	// TransferBufferSize is the copy buffer used per transfer.
	// Default: 256Ki
	TransferBufferSize bytesize.ByteSize `mapstructure:"transfer_buffer_size" yaml:"transfer_buffer_size"`

	// WelcomeMessage is the 220 banner text.
	WelcomeMessage string `mapstructure:"welcome_message" yaml:"welcome_message"`

	// MetricsLogInterval is the interval at which connection counts are logged.
	// 0 disables it.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" yaml:"metrics_log_interval" validate:"min=0"`
}

// PassivePortRange is an inclusive port range.
type PassivePortRange struct {
	Low  int `mapstructure:"low" yaml:"low" validate:"min=0,max=65535"`
	High int `mapstructure:"high" yaml:"high" validate:"min=0,max=65535"`
}

// TimeoutsConfig groups control connection timeouts.
type TimeoutsConfig struct {
	// Idle closes a control connection that sent nothing for this long.
	// Not applied while a transfer is running.
	// Default: 5m
	Idle time.Duration `mapstructure:"idle" yaml:"idle" validate:"min=0"`

	// Write bounds a single reply write.
	// Default: 30s
	Write time.Duration `mapstructure:"write" yaml:"write" validate:"min=0"`

	// Shutdown is how long Stop waits for sessions before force-closing them.
	// Default: 30s
	Shutdown time.Duration `mapstructure:"shutdown" yaml:"shutdown" validate:"min=0"`
}

// DefaultConfig returns the configuration an empty section resolves to.
func DefaultConfig() Config {
	c := Config{Port: DefaultPort}
	c.applyDefaults()
	return c
}

// ApplyDefaults fills in zero values. It is exported for the config loader.
func (c *Config) ApplyDefaults() {
	c.applyDefaults()
}

// applyDefaults fills in zero values with sensible defaults.
func (c *Config) applyDefaults() {
	if c.PassivePorts.Low == 0 && c.PassivePorts.High == 0 {
		c.PassivePorts = PassivePortRange{Low: 30000, High: 30100}
	}
	if c.StorageRoot == "" {
		c.StorageRoot = "/srv/dittoftp"
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = 50
	}
	if c.DataConnTimeout == 0 {
		c.DataConnTimeout = 5 * time.Second
	}
	if c.Timeouts.Idle == 0 {
		c.Timeouts.Idle = 5 * time.Minute
	}
	if c.Timeouts.Write == 0 {
		c.Timeouts.Write = 30 * time.Second
	}
	if c.Timeouts.Shutdown == 0 {
		c.Timeouts.Shutdown = 30 * time.Second
	}
	if c.TransferBufferSize == 0 {
		c.TransferBufferSize = bytesize.ByteSize(bufpool.DefaultSize)
	}
	if c.WelcomeMessage == "" {
		c.WelcomeMessage = DefaultWelcomeMessage
	}
}

var validate = validator.New()

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid FTP config: %w", err)
	}
	if c.PassivePorts.Low < 1 || c.PassivePorts.Low > c.PassivePorts.High {
		return fmt.Errorf("invalid passive port range %d-%d", c.PassivePorts.Low, c.PassivePorts.High)
	}
	if !filepath.IsAbs(c.StorageRoot) {
		return fmt.Errorf("storage_root %q must be an absolute path", c.StorageRoot)
	}
	if c.TransferBufferSize < bufpool.MinSize || c.TransferBufferSize > bufpool.MaxSize {
		return fmt.Errorf("transfer_buffer_size %s out of range [%s, %s]",
			c.TransferBufferSize, bytesize.ByteSize(bufpool.MinSize), bytesize.ByteSize(bufpool.MaxSize))
	}
	return nil
}
