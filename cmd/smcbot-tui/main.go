package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"smcbot-tui/internal/app"
	"smcbot-tui/internal/logbuf"
	"smcbot-tui/internal/logging"
	"smcbot-tui/internal/metrics"
	"smcbot-tui/internal/run"
	"smcbot-tui/internal/sched"
	"smcbot-tui/internal/service"
	"smcbot-tui/internal/settings"
	"smcbot-tui/internal/storage"
	"smcbot-tui/internal/telemetry"
	"smcbot-tui/internal/transport"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const healthCheckTimeout = 3 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath, settingsPath string
	cmd := &cobra.Command{
		Use:           "smcbot-tui",
		Short:         "Terminal dashboard for SMC bot backtests",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			overrides := make(map[string]any)
			extractCLIFlags(cmd, overrides)
			cfg, err := settings.Load(settings.LoadOptions{File: settingsPath, Overrides: overrides})
			if err != nil {
				return err
			}
			return runDashboard(cmd.Context(), cfg, configPath)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "run config file (JSON or YAML) loaded into the editor")
	flags.StringVar(&settingsPath, "settings", "", "dashboard settings file (YAML)")
	flags.String("base-url", "", "backend base URL")
	flags.String("token", "", "backend access token")
	flags.String("stream-url", "", "push channel URL (derived from --base-url when empty)")
	flags.String("transport", "", "push transport: ws or sse")
	flags.Duration("reconnect-delay", 0, "delay before reconnecting a closed push channel")
	flags.Duration("poll-interval", 0, "run status poll interval")
	flags.Int("max-lines", 0, "console lines kept in memory")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-file", "", "log file path")
	flags.String("runs-dir", "", "directory for saved run bundles")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	return cmd
}

// extractCLIFlags copies explicitly set flags into settings override keys.
func extractCLIFlags(cmd *cobra.Command, overrides map[string]any) {
	getString := func(name string) (any, error) { return cmd.Flags().GetString(name) }
	getDuration := func(name string) (any, error) { return cmd.Flags().GetDuration(name) }
	getInt := func(name string) (any, error) { return cmd.Flags().GetInt(name) }

	flagDefs := []struct {
		flagName string
		key      string
		getter   func(string) (any, error)
	}{
		{"base-url", "backend.base_url", getString},
		{"token", "backend.token", getString},
		{"stream-url", "stream.url", getString},
		{"transport", "stream.transport", getString},
		{"reconnect-delay", "stream.reconnect_delay", getDuration},
		{"poll-interval", "poll.interval", getDuration},
		{"max-lines", "stream.max_lines", getInt},
		{"log-level", "log.level", getString},
		{"log-file", "log.file", getString},
		{"runs-dir", "storage.runs_dir", getString},
		{"metrics-addr", "metrics.addr", getString},
	}
	for _, def := range flagDefs {
		if !cmd.Flags().Changed(def.flagName) {
			continue
		}
		if value, err := def.getter(def.flagName); err == nil {
			overrides[def.key] = value
		}
	}
}

func runDashboard(ctx context.Context, cfg *settings.Settings, configPath string) error {
	startupConfig, startupSource, err := resolveStartupConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load startup config: %w", err)
	}

	logOut, closeLog, err := logging.OpenFile(cfg.Log.File)
	if err != nil {
		return err
	}
	defer func() {
		_ = closeLog()
	}()
	logger := logging.New(&logging.Config{
		Level:      logging.ParseLevel(cfg.Log.Level),
		Output:     logOut,
		JSON:       cfg.Log.JSON,
		TimeFormat: "15:04:05.000",
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error("metrics listener stopped", "addr", cfg.Metrics.Addr, "err", err)
			}
		}()
	}

	client, err := service.New(service.Options{
		BaseURL: cfg.Backend.BaseURL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
		Logger:  logger.With("component", "client"),
	})
	if err != nil {
		return fmt.Errorf("failed to configure backend client: %w", err)
	}
	healthCtx, healthCancel := context.WithTimeout(ctx, healthCheckTimeout)
	if err := client.Health(healthCtx); err != nil {
		logger.Warn("backend health check failed", "base_url", client.BaseURL(), "err", err)
	} else {
		logActiveBackendRuns(healthCtx, client, logger)
	}
	healthCancel()

	store, err := storage.NewStore(cfg.Storage.RunsDir)
	if err != nil {
		return fmt.Errorf("failed to initialize run storage: %w", err)
	}

	dialer, err := transport.New(transport.Options{
		Kind:  cfg.Stream.Transport,
		URL:   cfg.StreamURL(),
		Token: cfg.Backend.Token,
	})
	if err != nil {
		return fmt.Errorf("failed to configure push transport: %w", err)
	}

	scheduler := sched.Real{}
	console := telemetry.NewCoalescer(logbuf.New(cfg.Stream.MaxLines), telemetry.CoalescerOptions{
		Scheduler:     scheduler,
		FlushInterval: cfg.Stream.FlushInterval,
		Metrics:       m,
	})
	channel := telemetry.NewChannel(dialer, console, telemetry.ChannelOptions{
		Scheduler:      scheduler,
		ReconnectDelay: cfg.Stream.ReconnectDelay,
		Logger:         logger.With("component", "channel"),
		Metrics:        m,
	})
	channel.Open()
	defer func() {
		_ = channel.Close()
	}()

	orchestrator := run.New(client, run.Options{
		Scheduler:    scheduler,
		PollInterval: cfg.Poll.Interval,
		PollTimeout:  cfg.Poll.Timeout,
		Logger:       logger.With("component", "run"),
		Metrics:      m,
		Console:      console,
	})
	defer orchestrator.Close()

	model := app.NewModelWithOptions(app.Deps{
		Runner:         orchestrator,
		Runs:           orchestrator.Store(),
		Console:        console,
		Defaults:       client,
		History:        store,
		RequestTimeout: cfg.Backend.Timeout,
	}, app.ModelOptions{
		InitialConfigJSON: startupConfig,
		InitialConfigPath: startupSource,
	})

	logger.Info("dashboard starting",
		"base_url", client.BaseURL(),
		"stream_url", cfg.StreamURL(),
		"transport", cfg.Stream.Transport,
	)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}

// logActiveBackendRuns reports runs the backend is still executing from an
// earlier session. The dashboard does not adopt them.
func logActiveBackendRuns(ctx context.Context, client *service.Client, logger logging.Logger) int {
	runs, err := client.ListRuns(ctx)
	if err != nil {
		logger.Debug("listing backend runs failed", "err", err)
		return 0
	}
	active := 0
	for _, status := range runs {
		if run.ParseStatus(status.Status) == run.Running {
			active++
			logger.Warn("backend run still active", "run_id", status.RunID, "progress", status.Progress)
		}
	}
	return active
}

func resolveStartupConfig(path string) (string, string, error) {
	if strings.TrimSpace(path) == "" {
		return "", "", nil
	}
	cfg, resolved, err := app.LoadConfigFile(path)
	if err != nil {
		return "", resolved, err
	}
	text, err := app.FormatConfigJSON(cfg)
	if err != nil {
		return "", resolved, err
	}
	return text, resolved, nil
}
