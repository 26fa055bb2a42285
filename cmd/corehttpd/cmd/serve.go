package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corehttp/corehttp/internal/config"
	"github.com/corehttp/corehttp/pkg/corehttp"
)

var (
	serveAddr       string
	serveEnableJWT  bool
	serveShutdownTO time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `serve loads corehttp.yaml (or the file named by --config), builds an
embeddable corehttp.App around it, and runs until interrupted.

It wires the request-id, metrics, and (when jwt.secret is set) JWT
middlewares in that order, mounts /healthz and /metrics, and serves the
configured static-file root (if any) as the fallback route.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "override server.addr from the config file")
	serveCmd.Flags().BoolVar(&serveEnableJWT, "jwt", true, "install the JWT middleware when jwt.secret is configured")
	serveCmd.Flags().DurationVar(&serveShutdownTO, "shutdown-timeout", 10*time.Second, "not applied: shutdown closes connections and waits for their handlers without a time limit")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	logLevel := parseLogLevel(cfg.Server.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	app := corehttp.New(*cfg, corehttp.WithLogger(logger))
	app.UseRequestID()
	app.UseMetrics()
	if serveEnableJWT && cfg.JWT.Secret != "" {
		if err := app.UseJWT(); err != nil {
			return fmt.Errorf("corehttpd: configure jwt middleware: %w", err)
		}
	}

	app.MountHealth("/healthz", nil)
	app.MountMetrics("/metrics")

	if err := app.MountStatic(); err != nil {
		return fmt.Errorf("corehttpd: mount static files: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting corehttpd", "addr", cfg.Server.Addr, "config_file", config.ConfigFileUsed())

	// Start blocks for the server's lifetime and performs its own graceful
	// shutdown once ctx is cancelled (§4.9); nothing further to drive here.
	return app.Start(ctx)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
