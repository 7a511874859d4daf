package config

import (
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/pkg/metrics"
	"github.com/marmos91/dittoftp/pkg/metrics/prometheus"
)

// MetricsResult holds what InitializeMetrics created.
type MetricsResult struct {
	// FTP is nil when metrics are disabled.
	FTP metrics.FTPMetrics
}

// InitializeMetrics creates the process-wide registry and the FTP collectors
// when metrics are enabled. With metrics disabled it returns an empty result
// and nothing is registered.
func InitializeMetrics(cfg *Config) MetricsResult {
	if !cfg.Metrics.Enabled {
		return MetricsResult{}
	}

	metrics.InitRegistry()
	logger.Debug("Metrics registry initialized", "port", cfg.Metrics.Port)

	return MetricsResult{FTP: prometheus.NewFTPMetrics()}
}
