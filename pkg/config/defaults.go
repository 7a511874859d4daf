package config

import (
	"strings"
	"time"

	"github.com/marmos91/dittoftp/pkg/adapter/ftp"
	"github.com/marmos91/dittoftp/pkg/controlplane/models"
	"github.com/marmos91/dittoftp/pkg/controlplane/store"
)

const (
	defaultShutdownTimeout   = 30 * time.Second
	defaultMetricsPort       = 9090
	defaultOTLPEndpoint      = "localhost:4317"
	defaultPyroscopeEndpoint = "http://localhost:4040"
)

// defaultProfileTypes are the Pyroscope profiles collected when none are listed.
var defaultProfileTypes = []string{
	"cpu",
	"alloc_objects",
	"alloc_space",
	"inuse_objects",
	"inuse_space",
	"goroutines",
}

// ApplyDefaults fills every zero-valued field. Explicit values win, so a
// loaded file only overrides what it mentions.
func ApplyDefaults(cfg *Config) {
	cfg.Logging.Level = strings.ToUpper(orDefault(cfg.Logging.Level, "INFO"))
	cfg.Logging.Format = orDefault(cfg.Logging.Format, "text")
	cfg.Logging.Output = orDefault(cfg.Logging.Output, "stdout")

	tel := &cfg.Telemetry
	tel.Endpoint = orDefault(tel.Endpoint, defaultOTLPEndpoint)
	if tel.SampleRate == 0 {
		tel.SampleRate = 1.0
	}
	tel.Profiling.Endpoint = orDefault(tel.Profiling.Endpoint, defaultPyroscopeEndpoint)
	if len(tel.Profiling.ProfileTypes) == 0 {
		tel.Profiling.ProfileTypes = append([]string(nil), defaultProfileTypes...)
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	cfg.Database.ApplyDefaults()

	// The HTTP port only matters when something will listen on it.
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = defaultMetricsPort
	}

	// Port 0 means "unset" in a file; random control ports are for tests.
	if cfg.FTP.Port == 0 {
		cfg.FTP.Port = ftp.DefaultPort
	}
	cfg.FTP.ApplyDefaults()

	cfg.Admin.Username = orDefault(cfg.Admin.Username, models.AdminUsername)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// GetDefaultConfig returns a fully defaulted configuration, the basis of
// `dittoftp init` and of tests.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: store.Config{Type: store.DatabaseTypeSQLite},
		FTP:      ftp.DefaultConfig(),
	}
	ApplyDefaults(cfg)
	return cfg
}
