package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmylchreest/toastd/internal/audio"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/daemon"
	"github.com/jmylchreest/toastd/internal/dbus"
	"github.com/jmylchreest/toastd/internal/httpapi"
	"github.com/jmylchreest/toastd/internal/metrics"
	"github.com/jmylchreest/toastd/internal/stack"
	"github.com/jmylchreest/toastd/internal/tui"
)

// shutdownTimeout bounds how long the HTTP API may take to drain.
const shutdownTimeout = 5 * time.Second

// run wires the daemon and blocks until ctx is done, the user quits the
// renderer, or the HTTP API fails.
func run(ctx context.Context, opts options, logger *slog.Logger) error {
	logger.Info("starting toastd", "version", version)

	cfgPath := opts.configPath
	if cfgPath == "" {
		cfgPath = config.DaemonConfigPath()
	}
	cfg, err := config.LoadDaemonConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, opts)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stackCfg := cfg.StackConfig()
	stackCfg.Scheduler = stack.NewTicker(ctx, cfg.Stack.FrameInterval.Duration())
	m := stack.NewManager(stackCfg, logger.With("component", "stack"))
	defer func() { _ = m.Close() }()

	expirer := stack.NewExpirer(m)
	defer expirer.Stop()
	reaper := daemon.NewReaper(m, cfg.Display.ExitDelay.Duration(), logger)
	defer reaper.Stop()
	notifier := daemon.NewNotifier(m, expirer, logger)

	stackMetrics := metrics.NewStack(m)
	defer stackMetrics.Stop()

	var chime *audio.Chime
	if !opts.monitor {
		chime = audio.NewChime(m, cfg, logger.With("component", "audio"))
		chime.OnError(notifier.NotifyAudioError)
		if err := chime.Start(ctx); err != nil {
			logger.Warn("sound file watcher unavailable", "error", err)
		}
		defer chime.Stop()
	}

	bridge, stopBus, err := startBus(m, expirer, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer stopBus()

	var renderer *tui.Renderer
	if !opts.headless {
		renderer = tui.NewRenderer(m, cfg.Display, logger, tea.WithAltScreen())
	}

	reload := func(c *config.DaemonConfig) {
		applyFlags(c, opts)
		m.Reconfigure(c.HideAllMode(), c.Stack.HistoryLimit)
		reaper.SetDelay(c.Display.ExitDelay.Duration())
		if bridge != nil {
			bridge.Reconfigure(c)
		}
		if chime != nil {
			chime.Reconfigure(c)
		}
		if renderer != nil {
			renderer.Reconfigure(c.Display)
		}
		notifier.NotifyConfigReloaded()
		logger.Info("configuration reloaded", "path", cfgPath)
	}
	if watcher, err := config.NewWatcher(cfgPath, cfg, logger); err != nil {
		logger.Warn("config hot reload unavailable", "error", err)
	} else {
		watcher.OnReload(reload)
		watcher.OnError(notifier.NotifyConfigError)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config hot reload unavailable", "path", cfgPath, "error", err)
		}
		defer func() { _ = watcher.Stop() }()
	}

	apiErr := make(chan error, 1)
	if cfg.HTTP.Listen != "" {
		api := newAPI(m, expirer, cfg, logger)
		go func() { apiErr <- api.ListenAndServe(ctx, cfg.HTTP.Listen) }()
		defer func() {
			api.Close()
			cancel()
			select {
			case <-apiErr:
			case <-time.After(shutdownTimeout):
				logger.Warn("HTTP API did not stop in time")
			}
		}()
		logger.Info("HTTP API listening", "addr", cfg.HTTP.Listen)
	}

	notifier.NotifyStartup(version)

	if renderer == nil {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		case err := <-apiErr:
			return fmt.Errorf("HTTP API: %w", err)
		}
	}

	fatal := make(chan error, 1)
	go func() {
		select {
		case err := <-apiErr:
			apiErr <- err
			if err != nil {
				fatal <- err
				cancel()
			}
		case <-ctx.Done():
		}
	}()
	if err := renderer.Run(ctx); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("renderer: %w", err)
	}
	select {
	case err := <-fatal:
		return fmt.Errorf("HTTP API: %w", err)
	default:
	}
	logger.Info("shutting down")
	return nil
}

// applyFlags lets command line flags override the config file.
func applyFlags(cfg *config.DaemonConfig, opts options) {
	if opts.listen != "" {
		cfg.HTTP.Listen = opts.listen
	}
	if opts.noDBus {
		cfg.DBus.Enabled = false
	}
}

// startBus claims org.freedesktop.Notifications, or mirrors another daemon in
// monitor mode. It returns a nil bridge when D-Bus is disabled.
func startBus(m *stack.Manager, expirer *stack.Expirer, cfg *config.DaemonConfig, opts options, logger *slog.Logger) (*daemon.Bridge, func(), error) {
	busLogger := logger.With("component", "dbus")
	switch {
	case opts.monitor:
		bridge := daemon.NewBridge(m, expirer, nil, cfg, busLogger)
		mon := dbus.NewMonitor(bridge, busLogger)
		if err := mon.Start(); err != nil {
			bridge.Stop()
			return nil, nil, fmt.Errorf("start D-Bus monitor: %w", err)
		}
		return bridge, func() {
			if err := mon.Stop(); err != nil {
				logger.Warn("error stopping D-Bus monitor", "error", err)
			}
			bridge.Stop()
		}, nil

	case cfg.DBus.Enabled:
		srv := dbus.NewServer(busLogger)
		info := dbus.DefaultServerInfo()
		info.Version = version
		srv.SetServerInfo(info)
		bridge := daemon.NewBridge(m, expirer, srv, cfg, busLogger)
		srv.SetHandler(bridge)
		if err := srv.Start(); err != nil {
			bridge.Stop()
			return nil, nil, fmt.Errorf("start D-Bus server: %w", err)
		}
		return bridge, func() {
			if err := srv.Stop(); err != nil {
				logger.Warn("error stopping D-Bus server", "error", err)
			}
			bridge.Stop()
		}, nil

	default:
		logger.Info("D-Bus disabled")
		return nil, func() {}, nil
	}
}

func newAPI(m *stack.Manager, expirer *stack.Expirer, cfg *config.DaemonConfig, logger *slog.Logger) *httpapi.Server {
	apiCfg := httpapi.Config{
		Logger:     logger.With("component", "http"),
		Expirer:    expirer,
		StreamPing: cfg.HTTP.StreamPing.Duration(),
	}
	if cfg.HTTP.Metrics {
		apiCfg.Metrics = metrics.NewHTTP()
		apiCfg.MetricsHandler = promhttp.Handler()
	}
	return httpapi.New(m, apiCfg)
}
