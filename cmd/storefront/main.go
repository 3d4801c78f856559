// StyleHub storefront gateway - serves per-session carts, accounts, and
// checkout over REST and MCP in front of the storefront services.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stylehub/internal/config"
	"stylehub/internal/handler"
	"stylehub/internal/middleware"
	"stylehub/internal/services"
	"stylehub/internal/session"
)

// minSweepInterval bounds how often idle sessions are swept.
const minSweepInterval = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("api_version", cfg.APIVersion),
		slog.String("product_url", cfg.Services.ProductURL),
		slog.String("upstream_transport", string(cfg.UpstreamTransport)),
		slog.Bool("persistent_auth", cfg.AuthStorageDir != ""),
	)

	servicesCfg, err := cfg.BuildServicesConfig()
	if err != nil {
		return fmt.Errorf("building services config: %w", err)
	}
	client, err := services.New(servicesCfg)
	if err != nil {
		return fmt.Errorf("creating services client: %w", err)
	}

	manager := session.NewManager(client, cfg.BuildSessionOptions(), logger)
	if cfg.SessionIdleTimeout > 0 {
		go manager.Run(ctx, sweepInterval(cfg.SessionIdleTimeout))
	}

	h := handler.New(manager, logger)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Recovery sits inside RequestID so panics are logged with the id.
	// The session middleware skips health checks and /mcp.
	httpHandler := middleware.Chain(
		middleware.RequestID(),
		middleware.Recovery(logger),
		middleware.Logging(logger),
		session.Middleware(manager, cfg.APIVersion, logger),
	)(mux)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped", slog.Int("open_sessions", manager.Len()))
	return nil
}

// sweepInterval checks for idle sessions a few times per timeout.
func sweepInterval(idle time.Duration) time.Duration {
	return max(idle/4, minSweepInterval)
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
