package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/dittoftp/cmd/dittoftp/commands/cmdutil"
	"github.com/marmos91/dittoftp/internal/logger"
	"github.com/marmos91/dittoftp/internal/telemetry"
	"github.com/marmos91/dittoftp/pkg/api"
	"github.com/marmos91/dittoftp/pkg/config"
	"github.com/marmos91/dittoftp/pkg/controlplane/store"
	"github.com/marmos91/dittoftp/pkg/server"
)

var (
	foreground bool
	pidFile    string
	logFile    string
	printEvent bool
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the FTP server",
	Long: `Start the FTP server with the specified configuration.

By default, the server runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Users are loaded from the database at startup and reloaded whenever they
change. Send SIGHUP to force a reload.

Examples:
  # Start in background (default)
  dittoftp start

  # Start in foreground, printing every control line as JSON
  dittoftp start --foreground --events

  # Start with environment variable overrides
  DITTOFTP_LOGGING_LEVEL=DEBUG DITTOFTP_FTP_PORT=2221 dittoftp start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/dittoftp/dittoftp.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/dittoftp/dittoftp.log)")
	startCmd.Flags().BoolVar(&printEvent, "events", false, "Print server events (control lines, data channels, sessions) to stdout as JSON")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := cmdutil.InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "dittoftp",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(context.Background()); err != nil {
			logger.Error("telemetry shutdown error", logger.Err(err))
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "dittoftp",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", logger.Err(err))
		}
	}()

	logger.Info("Configuration loaded", "source", getConfigSource(GetConfigFile()))
	logger.Info("Log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	if telemetry.IsEnabled() {
		logger.Info("Telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("Profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint)
	}

	// Must run before the API server builds its /metrics handler.
	metricsResult := config.InitializeMetrics(cfg)

	userStore, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize user store: %w", err)
	}
	defer func() { _ = userStore.Close() }()

	adminPassword, err := userStore.EnsureAdminUser(ctx, cfg.Admin.Username, cfg.Admin.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to ensure admin user: %w", err)
	}
	if adminPassword != "" {
		logger.Info("Admin user created", "username", cfg.Admin.Username)
		fmt.Printf("\n*** IMPORTANT: Admin user %q created with password: %s ***\n", cfg.Admin.Username, adminPassword)
		fmt.Println("Please save this password. It will not be shown again.")
		fmt.Println()
	}

	users, err := userStore.LoadUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load users: %w", err)
	}

	supervisor := server.New(
		server.WithMetrics(metricsResult.FTP),
		server.WithLoginRecorder(userStore.UpdateLastLogin),
		server.WithPasswordUpgrade(userStore.UpdatePassword),
	)

	var sink io.Writer
	if printEvent {
		sink = os.Stdout
	}
	serveErr := make(chan error, 1)
	go forwardEvents(supervisor.Events(), sink, serveErr)

	if err := supervisor.Start(ctx, cfg.FTP, users); err != nil {
		return fmt.Errorf("failed to start FTP server: %w", err)
	}

	watcher := server.NewUserWatcher(userStore, supervisor, server.WatcherConfig{Path: userStore.Path()})
	watcher.Start(ctx)
	defer watcher.Stop()

	apiDone := make(chan error, 1)
	if cfg.Metrics.Enabled {
		apiServer := api.NewServer(api.APIConfig{
			BindAddress: cfg.Metrics.BindAddress,
			Port:        cfg.Metrics.Port,
		}, supervisor, userStore)
		go func() { apiDone <- apiServer.Start(ctx) }()
	}

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			_ = supervisor.Stop(context.Background())
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	logger.Info("Server is running. Press Ctrl+C to stop.", logger.Port(supervisor.Port()))

	var runErr error
loop:
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				logger.Info("SIGHUP received, reloading users")
				watcher.Reload(ctx)
				continue
			}
			logger.Info("Shutdown signal received, initiating graceful shutdown", "signal", sig.String())
			break loop
		case err := <-serveErr:
			runErr = err
			break loop
		case err := <-apiDone:
			if err != nil {
				runErr = err
				break loop
			}
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := supervisor.Stop(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Error("FTP server shutdown error", logger.Err(err))
	}
	cancel()

	if runErr != nil {
		logger.Error("Server error", logger.Err(runErr))
		return runErr
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}
