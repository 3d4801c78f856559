package loadtest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Thresholds decide whether a run passes.
type Thresholds struct {
	// P95 bounds the 95th percentile request duration.
	P95 time.Duration
	// MaxFailureRate bounds the share of failed requests; the rate must stay below it.
	MaxFailureRate float64
}

// DefaultThresholds require p95 under 500ms and under 10% failed requests.
func DefaultThresholds() Thresholds {
	return Thresholds{P95: 500 * time.Millisecond, MaxFailureRate: 0.1}
}

// Config describes a run.
type Config struct {
	BaseURL    string
	Stages     []Stage
	Scenario   []Step
	Thresholds Thresholds

	Client *http.Client
	Logger *slog.Logger

	// Tick is how often the scheduler adjusts the number of users.
	Tick time.Duration
}

// Runner executes a staged load test.
type Runner struct {
	cfg     Config
	metrics *metrics
}

// NewRunner validates cfg and fills in defaults.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if len(cfg.Stages) == 0 {
		cfg.Stages = DefaultStages()
	}
	if len(cfg.Scenario) == 0 {
		cfg.Scenario = DefaultScenario()
	}
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Tick <= 0 {
		cfg.Tick = time.Second
	}
	return &Runner{cfg: cfg, metrics: newMetrics()}, nil
}

// Run drives the stages to completion or until ctx is done, then reports.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	total := TotalDuration(r.cfg.Stages)
	runCtx, stop := context.WithTimeout(ctx, total)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)
	var vus []context.CancelFunc
	maxVUs := 0
	start := time.Now()

	ticker := time.NewTicker(r.cfg.Tick)
	defer ticker.Stop()

	r.cfg.Logger.Info("load test started",
		slog.String("base_url", r.cfg.BaseURL),
		slog.Duration("duration", total),
		slog.Int("max_vus", MaxTarget(r.cfg.Stages)))

schedule:
	for {
		target := TargetAt(r.cfg.Stages, time.Since(start))
		for len(vus) < target {
			vuCtx, cancel := context.WithCancel(gctx)
			id := len(vus) + 1
			vus = append(vus, cancel)
			g.Go(func() error { return r.runVU(vuCtx, id) })
		}
		for len(vus) > target {
			vus[len(vus)-1]()
			vus = vus[:len(vus)-1]
		}
		if len(vus) > maxVUs {
			maxVUs = len(vus)
		}

		select {
		case <-gctx.Done():
			break schedule
		case <-ticker.C:
		}
	}

	for _, cancel := range vus {
		cancel()
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := r.metrics.report(r.cfg.Thresholds, maxVUs, time.Since(start))
	r.cfg.Logger.Info("load test finished",
		slog.Int("requests", report.Requests),
		slog.Float64("failure_rate", report.FailureRate),
		slog.Duration("p95", report.P95),
		slog.Bool("passed", report.Passed))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// runVU loops the scenario until its context ends.
func (r *Runner) runVU(ctx context.Context, vu int) error {
	for iter := 0; ctx.Err() == nil; iter++ {
		for _, step := range r.cfg.Scenario {
			if err := r.runStep(ctx, step, vu, iter); err != nil {
				return err
			}
			if !sleep(ctx, step.Pause) {
				return nil
			}
		}
		if ctx.Err() == nil {
			r.metrics.iteration()
		}
	}
	return nil
}

// runStep sends one request and records it. Requests cut short by the
// end of the run are not counted.
func (r *Runner) runStep(ctx context.Context, step Step, vu, iter int) error {
	var body io.Reader
	if step.Body != nil {
		data, err := step.Body(vu, iter)
		if err != nil {
			return fmt.Errorf("building %s body: %w", step.Name, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, step.Method, r.cfg.BaseURL+step.Path, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", step.Name, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := r.cfg.Client.Do(req)
	if err == nil {
		_, err = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	elapsed := time.Since(start)

	if err != nil && ctx.Err() != nil {
		return nil
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if err != nil {
		r.cfg.Logger.Debug("request failed",
			slog.String("step", step.Name),
			slog.String("error", err.Error()))
	}
	r.metrics.record(step, status, elapsed, err)
	return nil
}

// sleep waits d or until ctx is done; it reports whether the wait completed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// metrics accumulates request results from all users.
type metrics struct {
	mu         sync.Mutex
	durations  []time.Duration
	failed     int
	iterations int
	checks     map[string]*CheckResult
	order      []string
}

func newMetrics() *metrics {
	return &metrics{checks: make(map[string]*CheckResult)}
}

func (m *metrics) iteration() {
	m.mu.Lock()
	m.iterations++
	m.mu.Unlock()
}

// record counts a request. A request fails on a transport error or a
// status outside 200-399.
func (m *metrics) record(step Step, status int, elapsed time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.durations = append(m.durations, elapsed)
	if err != nil || status < 200 || status >= 400 {
		m.failed++
	}

	statusCheck, latencyCheck := step.checkNames()
	m.check(statusCheck, err == nil && status == step.WantStatus)
	m.check(latencyCheck, err == nil && (step.MaxDuration <= 0 || elapsed < step.MaxDuration))
}

func (m *metrics) check(name string, ok bool) {
	c, found := m.checks[name]
	if !found {
		c = &CheckResult{Name: name}
		m.checks[name] = c
		m.order = append(m.order, name)
	}
	if ok {
		c.Passes++
	} else {
		c.Fails++
	}
}
