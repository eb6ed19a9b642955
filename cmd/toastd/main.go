// Package main is the entry point for the toastd notification daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var (
	// Build-time variables
	version = "dev"
)

type options struct {
	configPath  string
	headless    bool
	noDBus      bool
	monitor     bool
	listen      string
	logFile     string
	debug       bool
	showVersion bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("toastd", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/toastd/toastd.toml)")
	fs.BoolVar(&opts.headless, "headless", false, "Run without the terminal renderer")
	fs.BoolVar(&opts.noDBus, "no-dbus", false, "Do not claim org.freedesktop.Notifications")
	fs.BoolVar(&opts.monitor, "monitor", false, "Mirror notifications sent to another daemon instead of claiming the bus name")
	fs.StringVar(&opts.listen, "listen", "", "HTTP API listen address, overrides [http] listen")
	fs.StringVar(&opts.logFile, "log-file", "", "Log file (default stderr when headless, a cache file otherwise)")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version and exit")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if opts.monitor && opts.noDBus {
		return opts, errors.New("--monitor needs D-Bus and cannot be combined with --no-dbus")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "toastd:", err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Println("toastd version", version)
		return
	}

	logger, closeLog, err := newLogger(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "toastd:", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("toastd stopped with error", "error", err)
		closeLog()
		os.Exit(1)
	}
}

// newLogger sets up structured logging. The terminal renderer owns the screen,
// so logs go to a file unless running headless.
func newLogger(opts options) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if opts.debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	closeLog := func() {}

	path := opts.logFile
	if path == "" && !opts.headless {
		path = defaultLogPath()
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = f
		closeLog = func() { _ = f.Close() }
	}

	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, closeLog, nil
}

func defaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "toastd", "toastd.log")
}
