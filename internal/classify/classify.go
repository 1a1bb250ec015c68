package classify

import (
	"time"

	"netmon/internal/probe"
)

// Thresholds tune the classifier's hysteresis.
type Thresholds struct {
	// Slow is the latency above which a successful probe classifies as
	// degraded rather than healthy.
	Slow time.Duration
	// Unstable is the number of consecutive failed probes required before
	// the status flips to StatusUnstable.
	Unstable int
}

// DefaultThresholds returns the stock tuning: 2s slow latency, 2
// consecutive failures for instability.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Slow:     2 * time.Second,
		Unstable: 2,
	}
}

// Classify computes the next status from the previous status, the running
// consecutive-failure count, the transport-presence signal and the latest
// probe outcome. It is pure: no I/O, no clocks, no shared state.
//
// Transport absence wins over all probe evidence and takes effect
// immediately. Degraded-quality detection is debounced instead: a single
// failed probe keeps the previous status, only a streak of failures flips
// to unstable. A slow-but-successful probe is not a failure for counting
// purposes.
func Classify(prev Status, failures int, transportPresent bool, result probe.Result, th Thresholds) (Status, int) {
	if !transportPresent {
		return StatusOffline, 0
	}

	if !result.Success {
		failures++
		if failures >= th.Unstable {
			return StatusUnstable, failures
		}
		return prev, failures
	}

	if result.Elapsed > th.Slow {
		return StatusSlow, 0
	}
	return StatusOnline, 0
}
