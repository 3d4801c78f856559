// Package loadtest drives staged HTTP load against the storefront edge and
// evaluates latency and error-rate thresholds over the results.
package loadtest

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stage ramps the number of virtual users linearly from the previous
// stage's target to Target over Duration.
type Stage struct {
	Duration time.Duration
	Target   int
}

// DefaultStages ramps to 10 users, holds, ramps to 50, holds, and drains.
func DefaultStages() []Stage {
	return []Stage{
		{Duration: 2 * time.Minute, Target: 10},
		{Duration: 5 * time.Minute, Target: 10},
		{Duration: 2 * time.Minute, Target: 50},
		{Duration: 5 * time.Minute, Target: 50},
		{Duration: 2 * time.Minute, Target: 0},
	}
}

// TotalDuration is the length of the whole run.
func TotalDuration(stages []Stage) time.Duration {
	var total time.Duration
	for _, s := range stages {
		total += s.Duration
	}
	return total
}

// TargetAt returns the number of virtual users wanted at elapsed.
// The run starts from zero users; past the last stage the target is zero.
func TargetAt(stages []Stage, elapsed time.Duration) int {
	from := 0
	for _, s := range stages {
		if elapsed < s.Duration {
			frac := float64(elapsed) / float64(s.Duration)
			return from + int(float64(s.Target-from)*frac)
		}
		elapsed -= s.Duration
		from = s.Target
	}
	return 0
}

// MaxTarget is the largest target over all stages.
func MaxTarget(stages []Stage) int {
	max := 0
	for _, s := range stages {
		if s.Target > max {
			max = s.Target
		}
	}
	return max
}

// ParseStages parses "30s:10,1m:10,30s:0" into stages.
func ParseStages(spec string) ([]Stage, error) {
	var stages []Stage
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		durStr, targetStr, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("stage %q: want duration:target", part)
		}
		d, err := time.ParseDuration(durStr)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("stage %q: invalid duration", part)
		}
		target, err := strconv.Atoi(targetStr)
		if err != nil || target < 0 {
			return nil, fmt.Errorf("stage %q: invalid target", part)
		}
		stages = append(stages, Stage{Duration: d, Target: target})
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("no stages in %q", spec)
	}
	return stages, nil
}
