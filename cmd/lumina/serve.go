package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lumina/internal/config"
	"github.com/jackzampolin/lumina/internal/home"
	"github.com/jackzampolin/lumina/internal/server"
)

var (
	serveHost     string
	servePort     string
	serveLogLevel string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Lumina server",
	Long: `Start the Lumina HTTP server.

This opens the book store, registers the configured LLM and speech
providers and serves the API. When the server shuts down (via Ctrl+C or
SIGTERM), chapter runs in flight are cancelled and the store is closed.

The server provides:
  - /health     - Basic server health check
  - /ready      - Readiness check (store, pipeline and providers)
  - /api/...    - Book, chapter and audio endpoints
  - /api/events - Websocket progress stream
  - /swagger    - API documentation

Examples:
  lumina serve                    # Start on default port 8080
  lumina serve --port 3000        # Start on custom port
  lumina serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		level, err := parseLogLevel(serveLogLevel)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
		slog.SetDefault(logger)

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cm, err := config.NewManager(cfgFile, h.Path())
		if err != nil {
			return err
		}
		cm.SetLogger(logger)
		cm.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			Home:          h,
			ConfigManager: cm,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: use debug, info, warn or error", s)
	}
	return level, nil
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to (set auth.identity_issuer before leaving loopback)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(serveCmd)
}
