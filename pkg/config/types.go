// Package config loads the dittoftp server configuration.
//
// Values come from, highest precedence first, DITTOFTP_* environment
// variables, the YAML config file, and built-in defaults. Accounts are not
// part of the file; they live in the user store.
package config

import (
	"time"

	"github.com/marmos91/dittoftp/pkg/adapter/ftp"
	"github.com/marmos91/dittoftp/pkg/controlplane/store"
)

// Config is the complete server configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout bounds how long stop waits for sessions to drain.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	Database store.Config  `mapstructure:"database" yaml:"database"`
	Metrics  MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	FTP      ftp.Config    `mapstructure:"ftp" yaml:"ftp"`
	Admin    AdminConfig   `mapstructure:"admin" yaml:"admin"`
}

type LoggingConfig struct {
	// Level is DEBUG, INFO, WARN or ERROR; stored uppercase.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig enables OTLP trace export, one span per FTP command.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the collector's gRPC host:port.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure bool   `mapstructure:"insecure" yaml:"insecure"`

	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig enables continuous profiling through Pyroscope.
type ProfilingConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes accepts cpu, alloc_objects, alloc_space, inuse_objects,
	// inuse_space, goroutines, mutex_count, mutex_duration, block_count
	// and block_duration.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig controls the HTTP server for /metrics and /health. Disabled
// means no collectors are registered and nothing listens.
type MetricsConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	BindAddress string `mapstructure:"bind_address" validate:"omitempty,ip" yaml:"bind_address,omitempty"`
	Port        int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// AdminConfig describes the account created on first start when the store
// has no user by that name.
type AdminConfig struct {
	Username string `mapstructure:"username" validate:"required" yaml:"username"`

	// PasswordHash is a bcrypt hash from `dittoftp user hash-password`.
	// Empty means a random password is generated and printed once.
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash,omitempty"`
}
