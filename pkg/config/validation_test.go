package config

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-password"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"lowercase level", func(c *Config) { c.Logging.Level = "warn" }, ""},
		{"invalid level", func(c *Config) { c.Logging.Level = "INVALID" }, "oneof"},
		{"invalid format", func(c *Config) { c.Logging.Format = "xml" }, "oneof"},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, "ShutdownTimeout"},
		{"sample rate above one", func(c *Config) { c.Telemetry.SampleRate = 1.5 }, "SampleRate"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "telemetry.endpoint"},
		{"unknown profile type", func(c *Config) {
			c.Telemetry.Profiling.Enabled = true
			c.Telemetry.Profiling.ProfileTypes = []string{"heap"}
		}, "unknown profile type"},
		{"metrics port out of range", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = 70000
		}, "Port"},
		{"metrics port clashes with ftp", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Port = c.FTP.Port
		}, "conflicts"},
		{"unknown database", func(c *Config) { c.Database.Type = "mysql" }, "oneof"},
		{"postgres without host", func(c *Config) {
			c.Database.Type = "postgres"
			c.Database.Postgres.Database = "ftp"
			c.Database.Postgres.User = "ftp"
		}, "postgres host"},
		{"relative storage root", func(c *Config) { c.FTP.StorageRoot = "data" }, "storage_root"},
		{"inverted passive range", func(c *Config) {
			c.FTP.PassivePorts.Low = 40010
			c.FTP.PassivePorts.High = 40000
		}, "passive port range"},
		{"bad bind address", func(c *Config) { c.FTP.BindAddress = "not-an-ip" }, "BindAddress"},
		{"empty admin", func(c *Config) { c.Admin.Username = "" }, "Username"},
		{"admin hash", func(c *Config) { c.Admin.PasswordHash = string(hash) }, ""},
		{"admin hash not bcrypt", func(c *Config) { c.Admin.PasswordHash = "plaintext" }, "bcrypt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid config, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}
