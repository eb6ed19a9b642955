package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/client"
	"github.com/jmylchreest/toastd/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		addr       string
		configPath string
		timeout    time.Duration
	}
	logger *slog.Logger

	// apiClient talks to the daemon's HTTP API
	apiClient *client.Client
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "toast",
	Short: "Control the toastd notification stack",
	Long: `toast controls a running toastd daemon over its HTTP API.

It shows, updates and hides toasts, switches the stack between its
folded and unfolded views, and prints the stack in formats suited to
scripts, status bars and dmenu-style launchers.

Running toast without a subcommand lists the current stack.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		addr := cfg.Client.Addr
		if cmd.Flags().Changed("addr") {
			addr = globalOpts.addr
		}
		timeout := cfg.Client.Timeout.Duration()
		if cmd.Flags().Changed("timeout") {
			timeout = globalOpts.timeout
		}

		apiClient, err = client.New(addr, client.WithTimeout(timeout))
		if err != nil {
			return err
		}
		logger.Debug("using daemon", "addr", addr, "timeout", timeout)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGet(cmd, nil)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.addr, "addr", config.DefaultAddr,
		"Daemon address (default from config client.addr)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/toastd/toast.toml)")
	rootCmd.PersistentFlags().DurationVar(&globalOpts.timeout, "timeout", config.DefaultTimeout,
		"Request timeout (default from config client.timeout)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// commandContext returns the command's context, or a background context
// when the command was invoked without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
