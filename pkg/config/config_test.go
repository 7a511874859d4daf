package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittoftp/internal/bytesize"
	"github.com/marmos91/dittoftp/pkg/adapter/ftp"
	"github.com/marmos91/dittoftp/pkg/controlplane/store"
)

// yamlSafePath converts a path so it can be embedded in YAML on every OS.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: debug
  format: json

database:
  type: sqlite
  sqlite:
    path: "`+yamlSafePath(root)+`/users.db"

ftp:
  port: 2221
  storage_root: "`+yamlSafePath(root)+`"
  passive_ports:
    low: 40000
    high: 40010
  data_conn_timeout: 2s
  transfer_buffer_size: 64Ki
  timeouts:
    idle: 1m
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.FTP.Port != 2221 {
		t.Errorf("Expected ftp port 2221, got %d", cfg.FTP.Port)
	}
	if cfg.FTP.PassivePorts != (ftp.PassivePortRange{Low: 40000, High: 40010}) {
		t.Errorf("Unexpected passive range %+v", cfg.FTP.PassivePorts)
	}
	if cfg.FTP.DataConnTimeout != 2*time.Second {
		t.Errorf("Expected data_conn_timeout 2s, got %v", cfg.FTP.DataConnTimeout)
	}
	if cfg.FTP.TransferBufferSize != 64*bytesize.KiB {
		t.Errorf("Expected transfer_buffer_size 64KiB, got %v", cfg.FTP.TransferBufferSize)
	}
	if cfg.FTP.Timeouts.Idle != time.Minute {
		t.Errorf("Expected idle timeout 1m, got %v", cfg.FTP.Timeouts.Idle)
	}
	// Unset values fall back to defaults
	if cfg.FTP.MaxConnections != 50 {
		t.Errorf("Expected default max_connections 50, got %d", cfg.FTP.MaxConnections)
	}
	if cfg.FTP.WelcomeMessage != ftp.DefaultWelcomeMessage {
		t.Errorf("Expected default welcome message, got %q", cfg.FTP.WelcomeMessage)
	}
	if cfg.Database.SQLite.Path != yamlSafePath(root)+"/users.db" {
		t.Errorf("Unexpected sqlite path %q", cfg.Database.SQLite.Path)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// A missing file yields the defaults so the server can run without one.
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.FTP.Port != ftp.DefaultPort {
		t.Errorf("Expected default FTP port %d, got %d", ftp.DefaultPort, cfg.FTP.Port)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid.yaml", `
logging:
  level: INFO
  invalid yaml here [[[
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, "config.yaml", `
ftp:
  storage_root: relative/dir
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for relative storage_root")
	}
	if !strings.Contains(err.Error(), "storage_root") {
		t.Errorf("Expected storage_root in error, got: %v", err)
	}
}

func TestLoad_TOML(t *testing.T) {
	root := t.TempDir()
	configPath := writeConfig(t, "config.toml", `
[logging]
level = "WARN"
format = "json"

[database]
type = "sqlite"

[ftp]
storage_root = "`+yamlSafePath(root)+`"
max_connections = 5
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.FTP.MaxConnections != 5 {
		t.Errorf("Expected max_connections 5, got %d", cfg.FTP.MaxConnections)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default log output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Database.Type != store.DatabaseTypeSQLite {
		t.Errorf("Expected sqlite database, got %q", cfg.Database.Type)
	}
	if cfg.Admin.Username != "admin" {
		t.Errorf("Expected default admin username 'admin', got %q", cfg.Admin.Username)
	}
	if cfg.Metrics.Enabled {
		t.Error("Expected metrics disabled by default")
	}
}

func TestDefaultConfigExists(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if DefaultConfigExists() {
		t.Fatal("Expected no config in an empty XDG_CONFIG_HOME")
	}
	if _, err := InitConfig(false); err != nil {
		t.Fatalf("InitConfig failed: %v", err)
	}
	if !DefaultConfigExists() {
		t.Error("Expected config to exist after InitConfig")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "dittoftp" {
		t.Errorf("Expected directory name 'dittoftp', got %q", filepath.Base(dir))
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := MustLoad(missing)
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "dittoftp init --config") {
		t.Errorf("Expected init instructions in error, got: %v", err)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("DITTOFTP_LOGGING_LEVEL", "ERROR")
	t.Setenv("DITTOFTP_FTP_PORT", "2400")

	root := t.TempDir()
	configPath := writeConfig(t, "config.yaml", `
logging:
  level: "INFO"

ftp:
  port: 2121
  storage_root: "`+yamlSafePath(root)+`"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.FTP.Port != 2400 {
		t.Errorf("Expected port 2400 from env var, got %d", cfg.FTP.Port)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.FTP.StorageRoot = yamlSafePath(t.TempDir())
	cfg.FTP.MaxConnections = 7
	cfg.Logging.Format = "json"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Config file not written: %v", err)
	}
	if info.Mode().Perm()&0077 != 0 && os.PathSeparator == '/' {
		t.Errorf("Expected owner-only permissions, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.FTP.MaxConnections != 7 {
		t.Errorf("Expected max_connections 7, got %d", loaded.FTP.MaxConnections)
	}
	if loaded.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", loaded.Logging.Format)
	}
	if loaded.FTP.TransferBufferSize != cfg.FTP.TransferBufferSize {
		t.Errorf("Expected transfer buffer %v, got %v", cfg.FTP.TransferBufferSize, loaded.FTP.TransferBufferSize)
	}
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatalf("Schema failed: %v", err)
	}

	schema := string(data)
	for _, key := range []string{`"ftp"`, `"passive_ports"`, `"storage_root"`, `"database"`, `"logging"`} {
		if !strings.Contains(schema, key) {
			t.Errorf("Schema missing property %s", key)
		}
	}
}
