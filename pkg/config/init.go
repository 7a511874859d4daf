package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// configTemplate renders a commented default configuration. Values come from
// GetDefaultConfig so the file always matches what an empty config produces.
var configTemplate = template.Must(template.New("config").Parse(`# dittoftp Configuration File
#
# Every value below is the default. Environment variables override the file:
#   DITTOFTP_LOGGING_LEVEL=DEBUG dittoftp start
#
# Users are stored in the database, manage them with 'dittoftp user'.

logging:
  # DEBUG, INFO, WARN or ERROR
  level: {{ .Logging.Level }}
  # text or json
  format: {{ .Logging.Format }}
  # stdout, stderr or a file path
  output: {{ .Logging.Output }}

telemetry:
  enabled: false
  endpoint: {{ .Telemetry.Endpoint }}
  insecure: true
  sample_rate: {{ .Telemetry.SampleRate }}
  profiling:
    enabled: false
    endpoint: {{ .Telemetry.Profiling.Endpoint }}

shutdown_timeout: {{ .ShutdownTimeout }}

database:
  # sqlite or postgres
  type: {{ .Database.Type }}
  sqlite:
    path: {{ printf "%q" .Database.SQLite.Path }}

metrics:
  # Serves /metrics and /health
  enabled: false
  port: 9090

ftp:
  bind_address: ""
  port: {{ .FTP.Port }}
  passive_ports:
    low: {{ .FTP.PassivePorts.Low }}
    high: {{ .FTP.PassivePorts.High }}
  # User homes are created below this directory
  storage_root: {{ printf "%q" .FTP.StorageRoot }}
  # Address sent in PASV replies, empty derives it from the control connection
  advertised_host: ""
  max_connections: {{ .FTP.MaxConnections }}
  data_conn_timeout: {{ .FTP.DataConnTimeout }}
  transfer_buffer_size: {{ .FTP.TransferBufferSize }}
  welcome_message: {{ printf "%q" .FTP.WelcomeMessage }}
  timeouts:
    idle: {{ .FTP.Timeouts.Idle }}
    write: {{ .FTP.Timeouts.Write }}
    shutdown: {{ .FTP.Timeouts.Shutdown }}

admin:
  username: {{ .Admin.Username }}
  # bcrypt hash; when empty a random password is printed on first start
  password_hash: ""
`))

// RenderDefaultConfig returns the commented default configuration file.
func RenderDefaultConfig() ([]byte, error) {
	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, GetDefaultConfig()); err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return buf.Bytes(), nil
}

// InitConfig writes the default configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists: %s\n\nUse --force to overwrite", path)
		}
	}

	data, err := RenderDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
