package config

import (
	"testing"
	"time"

	"github.com/marmos91/dittoftp/pkg/adapter/ftp"
)

func TestApplyDefaults_Logging(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
}

func TestApplyDefaults_ShutdownTimeout(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestApplyDefaults_FTP(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.FTP.Port != ftp.DefaultPort {
		t.Errorf("Expected default FTP port %d, got %d", ftp.DefaultPort, cfg.FTP.Port)
	}
	if cfg.FTP.PassivePorts.Low != 30000 || cfg.FTP.PassivePorts.High != 30100 {
		t.Errorf("Expected passive range 30000-30100, got %+v", cfg.FTP.PassivePorts)
	}
	if cfg.FTP.Timeouts.Idle != 5*time.Minute {
		t.Errorf("Expected idle timeout 5m, got %v", cfg.FTP.Timeouts.Idle)
	}
	if cfg.FTP.DataConnTimeout != 5*time.Second {
		t.Errorf("Expected data connection timeout 5s, got %v", cfg.FTP.DataConnTimeout)
	}
}

func TestApplyDefaults_Metrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Expected no metrics port while disabled, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestApplyDefaults_Admin(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Admin.Username != "admin" {
		t.Errorf("Expected default admin username 'admin', got %q", cfg.Admin.Username)
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  "debug",
			Format: "json",
			Output: "stderr",
		},
		ShutdownTimeout: 5 * time.Second,
		Metrics:         MetricsConfig{Enabled: true, Port: 9100},
		FTP: ftp.Config{
			Port:           21,
			MaxConnections: 3,
			WelcomeMessage: "hello",
		},
		Admin: AdminConfig{Username: "root"},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Output != "stderr" {
		t.Errorf("Explicit logging values overwritten: %+v", cfg.Logging)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Metrics.Port != 9100 {
		t.Errorf("Expected metrics port 9100, got %d", cfg.Metrics.Port)
	}
	if cfg.FTP.Port != 21 || cfg.FTP.MaxConnections != 3 || cfg.FTP.WelcomeMessage != "hello" {
		t.Errorf("Explicit FTP values overwritten: port=%d max=%d welcome=%q",
			cfg.FTP.Port, cfg.FTP.MaxConnections, cfg.FTP.WelcomeMessage)
	}
	if cfg.Admin.Username != "root" {
		t.Errorf("Expected admin username 'root', got %q", cfg.Admin.Username)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Default config should be valid, got error: %v", err)
	}
}
