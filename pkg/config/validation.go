package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/marmos91/dittoftp/internal/telemetry"
)

var validate = validator.New()

// Validate checks the struct tags of the whole configuration tree, then the
// cross-field rules the tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}
	if cfg.Telemetry.Profiling.Enabled {
		if cfg.Telemetry.Profiling.Endpoint == "" {
			return fmt.Errorf("telemetry.profiling.endpoint is required when profiling is enabled")
		}
		if err := telemetry.ValidateProfileTypes(cfg.Telemetry.Profiling.ProfileTypes); err != nil {
			return fmt.Errorf("telemetry.profiling: %w", err)
		}
	}

	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := cfg.FTP.Validate(); err != nil {
		return err
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port == cfg.FTP.Port {
		return fmt.Errorf("metrics.port %d conflicts with ftp.port", cfg.Metrics.Port)
	}

	if cfg.Admin.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.Admin.PasswordHash)); err != nil {
			return fmt.Errorf("admin.password_hash is not a bcrypt hash: %w", err)
		}
	}

	return nil
}
