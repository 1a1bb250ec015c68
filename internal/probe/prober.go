package probe

import (
	"context"
	"time"
)

// Result captures a single reachability check. A failed check carries the
// configured timeout as its Elapsed value so downstream consumers always
// see a bounded duration.
type Result struct {
	Elapsed time.Duration
	Success bool
	Err     error
}

// Prober issues one bounded reachability check against a host. It fails
// closed: every failure mode (DNS, refused connection, timeout) is
// normalized into the Result, never returned as an error or panic.
type Prober interface {
	Probe(ctx context.Context, host string, timeout time.Duration) Result
}

func failure(timeout time.Duration, err error) Result {
	return Result{Elapsed: timeout, Success: false, Err: err}
}
