package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onionwatch/onionwatch/internal/classifier"
	"github.com/onionwatch/onionwatch/internal/collector"
	"github.com/onionwatch/onionwatch/internal/config"
	"github.com/onionwatch/onionwatch/internal/database"
	"github.com/onionwatch/onionwatch/internal/engine"
	"github.com/onionwatch/onionwatch/internal/log"
	"github.com/onionwatch/onionwatch/internal/server"
	"github.com/onionwatch/onionwatch/internal/tor"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds the HTTP server drain on shutdown. Running jobs
// are waited for separately and without a deadline: cutting a collection
// job short would leave a scan stuck in running forever.
const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring API server",
		Long: `Serve starts the HTTP API server.

Scans are created with POST /api/scans and collect marketplace listings
through the Tor proxy given in the request. Reports are created with
POST /api/reports and classify a scan's posts via the Anthropic API using
the key given in the request.

With --embedded-tor, an embedded Tor daemon is started at startup and
used as the fallback proxy for scan requests that carry no endpoints.
Bootstrapping takes 1-3 minutes; the server starts listening afterwards.

Examples:
  # Start with defaults (listens on 127.0.0.1:8080)
  onionwatch serve

  # Listen on another address with a custom database directory
  onionwatch serve --listen 0.0.0.0:9000 --db-dir /var/lib/onionwatch

  # Start an embedded Tor daemon as the fallback proxy
  onionwatch serve --embedded-tor

Configuration file (.onionwatch) example:
  listen_address: "127.0.0.1:8080"
  fetch_timeout_seconds: 45
  fetch_limit: 2
  embedded_tor: true`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"HTTP listen address (host:port)")
	cmd.Flags().String("db-dir", "",
		"Database directory (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .onionwatch in current or home directory)")
	cmd.Flags().Bool("embedded-tor", false,
		"Start an embedded Tor daemon as the fallback proxy")
	cmd.Flags().DurationP("tor-timeout", "T", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")
	cmd.Flags().DurationP("fetch-timeout", "t", config.DefaultFetchTimeout,
		"Timeout for each marketplace request")
	cmd.Flags().Int("fetch-limit", config.DefaultFetchLimit,
		"Maximum concurrent detail-page fetches per scan")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header for marketplace requests")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, logger)
}

// buildServeConfig creates a Config from defaults, the optional config
// file, and command flags, in that order of precedence. Only flags the
// user actually set override the file.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.New()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file, error if not found.
	// If no path was specified, a missing file just means defaults.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		f.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if cmd.Flags().Changed("listen") {
		if cfg.ListenAddress, err = cmd.Flags().GetString("listen"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("embedded-tor") {
		if cfg.EmbeddedTor, err = cmd.Flags().GetBool("embedded-tor"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("tor-timeout") {
		if cfg.TorStartupTimeout, err = cmd.Flags().GetDuration("tor-timeout"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("fetch-timeout") {
		if cfg.FetchTimeout, err = cmd.Flags().GetDuration("fetch-timeout"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("fetch-limit") {
		if cfg.FetchLimit, err = cmd.Flags().GetInt("fetch-limit"); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("user-agent") {
		if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
			return nil, err
		}
	}

	cfg.Verbose = getVerboseFlag(cmd)
	return cfg, nil
}

// runServe wires the components together and serves until ctx is done.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	logger.Info("database opened", "dir", cfg.DBDir)

	col := collector.NewMarketplace(
		collector.WithTimeout(cfg.FetchTimeout),
		collector.WithUserAgent(cfg.UserAgent),
		collector.WithMaxBodySize(cfg.MaxBodySize),
		collector.WithFetchLimit(cfg.FetchLimit),
	)
	cls := classifier.NewAnthropic()

	engineOpts := []engine.Option{engine.WithLogger(logger)}

	if cfg.EmbeddedTor {
		embedded, err := startEmbeddedTor(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			logger.Info("stopping embedded Tor daemon...")
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		engineOpts = append(engineOpts, engine.WithFallbackProxy(embedded.ProxyConfig()))
	}

	eng := engine.New(db, col, cls, engineOpts...)
	srv := server.New(eng, server.WithLogger(logger))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.ListenAddress)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	// Let in-flight jobs reach a terminal status before closing the
	// database under them.
	logger.Info("waiting for running jobs...")
	eng.Wait()

	return nil
}

// startEmbeddedTor starts an embedded Tor daemon using tornago and
// verifies that its SOCKS proxy answers.
func startEmbeddedTor(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tor.EmbeddedTor, error) {
	fmt.Println("Starting embedded Tor daemon...")
	fmt.Printf("This may take 1-3 minutes while Tor bootstraps and connects to the network.\n\n")

	embedded := tor.NewEmbeddedTor(
		tor.WithStartupTimeout(cfg.TorStartupTimeout),
	)
	if err := embedded.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start embedded Tor: %w", err)
	}

	client, err := tor.NewClient(embedded.ProxyConfig(), cfg.FetchTimeout)
	if err != nil {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("failed to create Tor client: %w", err)
	}
	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		_ = embedded.Stop() //nolint:errcheck // Best effort cleanup
		return nil, fmt.Errorf("embedded Tor proxy check failed: %s", status)
	}

	logger.Info("embedded Tor daemon started", "socksAddr", embedded.SocksAddr())
	return embedded, nil
}
