// loadtest drives staged traffic at a StyleHub storefront and exits
// non-zero when the latency or failure thresholds are breached.
//
// Usage:
//
//	loadtest [-base-url URL] [-stages 2m:10,5m:10,2m:50,5m:50,2m:0] [-p95 500ms] [-max-failure-rate 0.1]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stylehub/internal/loadtest"
)

func main() {
	passed, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if !passed {
		os.Exit(1)
	}
}

func run() (bool, error) {
	defaults := loadtest.DefaultThresholds()

	var (
		baseURL  string
		stages   string
		p95      time.Duration
		maxFail  float64
		jsonOut  bool
		logLevel string
	)
	flag.StringVar(&baseURL, "base-url", envOr("BASE_URL", "http://stylehub.local"), "Storefront base URL")
	flag.StringVar(&stages, "stages", "", "Stages as duration:target pairs (default 16 minute ramp to 50 users)")
	flag.DurationVar(&p95, "p95", defaults.P95, "95th percentile request duration must stay below this")
	flag.Float64Var(&maxFail, "max-failure-rate", defaults.MaxFailureRate, "Failed request rate must stay below this")
	flag.BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	flag.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	flag.Parse()

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return false, fmt.Errorf("invalid log level %q", logLevel)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg := loadtest.Config{
		BaseURL:    baseURL,
		Thresholds: loadtest.Thresholds{P95: p95, MaxFailureRate: maxFail},
		Logger:     logger,
	}
	if stages != "" {
		parsed, err := loadtest.ParseStages(stages)
		if err != nil {
			return false, err
		}
		cfg.Stages = parsed
	}

	runner, err := loadtest.NewRunner(cfg)
	if err != nil {
		return false, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := runner.Run(ctx)
	if report == nil {
		return false, err
	}
	if err != nil {
		logger.Warn("run interrupted, reporting partial results", slog.String("error", err.Error()))
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return false, fmt.Errorf("encoding report: %w", err)
		}
	} else {
		report.Write(os.Stdout)
	}
	return report.Passed, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
