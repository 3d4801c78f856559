package loadtest

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// CheckResult counts the outcomes of one named check.
type CheckResult struct {
	Name   string `json:"name"`
	Passes int    `json:"passes"`
	Fails  int    `json:"fails"`
}

// Report summarizes a run.
type Report struct {
	Requests    int           `json:"requests"`
	Failed      int           `json:"failed"`
	FailureRate float64       `json:"failure_rate"`
	P95         time.Duration `json:"p95"`
	Iterations  int           `json:"iterations"`
	MaxVUs      int           `json:"max_vus"`
	Elapsed     time.Duration `json:"elapsed"`

	Checks []CheckResult `json:"checks"`

	// Breaches lists the thresholds the run crossed.
	Breaches []string `json:"breaches"`
	Passed   bool     `json:"passed"`
}

func (m *metrics) report(th Thresholds, maxVUs int, elapsed time.Duration) *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := &Report{
		Requests:   len(m.durations),
		Failed:     m.failed,
		P95:        Percentile(m.durations, 95),
		Iterations: m.iterations,
		MaxVUs:     maxVUs,
		Elapsed:    elapsed,
		Checks:     make([]CheckResult, 0, len(m.order)),
		Breaches:   []string{},
	}
	if r.Requests > 0 {
		r.FailureRate = float64(r.Failed) / float64(r.Requests)
	}
	for _, name := range m.order {
		r.Checks = append(r.Checks, *m.checks[name])
	}

	if th.P95 > 0 && r.P95 >= th.P95 {
		r.Breaches = append(r.Breaches, fmt.Sprintf("p(95)<%s: got %s", th.P95, r.P95))
	}
	if r.FailureRate >= th.MaxFailureRate {
		r.Breaches = append(r.Breaches, fmt.Sprintf("failure rate<%.2f: got %.4f", th.MaxFailureRate, r.FailureRate))
	}
	r.Passed = len(r.Breaches) == 0
	return r
}

// Percentile returns the p-th percentile of ds, interpolating linearly
// between the closest ranks. It returns 0 for no samples.
func Percentile(ds []time.Duration, p float64) time.Duration {
	if len(ds) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(ds))
	copy(sorted, ds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + time.Duration(frac*float64(sorted[hi]-sorted[lo]))
}

// Write prints the report in a k6-like summary.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "requests......: %d (%d failed, %.2f%%)\n", r.Requests, r.Failed, r.FailureRate*100)
	fmt.Fprintf(w, "p(95).........: %s\n", r.P95)
	fmt.Fprintf(w, "iterations....: %d\n", r.Iterations)
	fmt.Fprintf(w, "vus_max.......: %d\n", r.MaxVUs)
	fmt.Fprintf(w, "elapsed.......: %s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintln(w, "checks:")
	for _, c := range r.Checks {
		mark := "✓"
		if c.Fails > 0 {
			mark = "✗"
		}
		fmt.Fprintf(w, "  %s %s (%d/%d)\n", mark, c.Name, c.Passes, c.Passes+c.Fails)
	}
	if r.Passed {
		fmt.Fprintln(w, "thresholds: passed")
		return
	}
	fmt.Fprintln(w, "thresholds: FAILED")
	for _, b := range r.Breaches {
		fmt.Fprintf(w, "  ✗ %s\n", b)
	}
}
