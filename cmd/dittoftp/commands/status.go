package commands

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/cmdutil"
	"github.com/marmos91/dittoftp/internal/cli/health"
	"github.com/marmos91/dittoftp/internal/cli/output"
	"github.com/marmos91/dittoftp/pkg/config"
)

var (
	statusPidFile string
	statusAddr    string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server status",
	Long: `Show whether the server process is running and, when the metrics
endpoint is enabled, its live state: active connections, passive ports in
use, loaded users and user store health.

Examples:
  dittoftp status
  dittoftp status -o json
  dittoftp status --addr 10.0.0.5:9090`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/dittoftp/dittoftp.pid)")
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "Metrics endpoint host:port (default: from config)")
	cmdutil.AddOutputFlag(statusCmd)
}

// statusReport is what 'dittoftp status' prints.
type statusReport struct {
	ProcessRunning bool                   `json:"process_running" yaml:"process_running"`
	PID            int                    `json:"pid,omitempty" yaml:"pid,omitempty"`
	Endpoint       string                 `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Health         *health.StatusResponse `json:"health,omitempty" yaml:"health,omitempty"`
	HealthError    string                 `json:"health_error,omitempty" yaml:"health_error,omitempty"`
}

func (r *statusReport) pairs() [][2]string {
	process := "stopped"
	if r.ProcessRunning {
		process = fmt.Sprintf("running (PID %d)", r.PID)
	}
	pairs := [][2]string{{"Process", process}}

	switch {
	case r.Health != nil:
		srv := r.Health.Data.Server
		pairs = append(pairs,
			[2]string{"Status", r.Health.Status},
			[2]string{"FTP port", strconv.Itoa(srv.Port)},
			[2]string{"Connections", strconv.Itoa(srv.ActiveConnections)},
			[2]string{"Passive ports", fmt.Sprintf("%d/%d in use", srv.PassivePortsInUse, srv.PassivePortsTotal)},
			[2]string{"Users", strconv.Itoa(srv.Users)},
			[2]string{"User store", r.Health.Data.Store.Status},
		)
		if r.Health.Error != "" {
			pairs = append(pairs, [2]string{"Error", r.Health.Error})
		}
	case r.HealthError != "":
		pairs = append(pairs, [2]string{"Health", r.HealthError})
	}
	return pairs
}

func runStatus(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.Printer(cmd)
	if err != nil {
		return err
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	report := &statusReport{}
	report.PID, report.ProcessRunning = isProcessRunning(pidPath)

	report.Endpoint = statusAddr
	if report.Endpoint == "" {
		cfg, err := config.Load(GetConfigFile())
		if err != nil {
			return err
		}
		if cfg.Metrics.Enabled {
			host := cfg.Metrics.BindAddress
			if host == "" || host == "0.0.0.0" || host == "::" {
				host = "127.0.0.1"
			}
			report.Endpoint = net.JoinHostPort(host, strconv.Itoa(cfg.Metrics.Port))
		}
	}

	if report.Endpoint != "" {
		resp, err := fetchStatus(report.Endpoint)
		if err != nil {
			report.HealthError = err.Error()
		} else {
			report.Health = resp
		}
	}

	if printer.Format() != output.FormatTable {
		return printer.Print(report)
	}
	return output.KeyValueTable(printer.Writer(), report.pairs())
}

func fetchStatus(endpoint string) (*health.StatusResponse, error) {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + endpoint + "/health/status")
	if err != nil {
		return nil, fmt.Errorf("health endpoint unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var status health.StatusResponse
	// 503 still carries the full report.
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("invalid health response (HTTP %d): %w", resp.StatusCode, err)
	}
	return &status, nil
}
