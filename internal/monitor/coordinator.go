package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"netmon/internal/classify"
	"netmon/internal/probe"
	"netmon/internal/transport"
)

const (
	defaultInterval = 30 * time.Second
	defaultTimeout  = 5 * time.Second
)

// State is the coordinator's owned connectivity record. External readers
// only ever receive value snapshots of it.
type State struct {
	Status              classify.Status
	IsConnected         bool
	ConsecutiveFailures int
	LastChecked         time.Time
	LastElapsed         time.Duration
}

// Subscription identifies a registered status listener.
type Subscription string

// Listener receives the new status on every confirmed transition.
type Listener func(status classify.Status)

// Recorder receives probe and transition observations, typically backed
// by Prometheus collectors. All methods must be safe for concurrent use.
type Recorder interface {
	RecordProbe(host string, result probe.Result)
	RecordStatus(status classify.Status)
	RecordTransition(from, to classify.Status)
}

// Options configure a Coordinator. Zero values select defaults.
type Options struct {
	Interval   time.Duration
	Timeout    time.Duration
	Thresholds classify.Thresholds
	Clock      clock.Clock
	Logger     *zap.Logger
	Recorder   Recorder
}

// Coordinator owns the connectivity state machine. Two trigger sources
// feed it: a periodic ticker and the transport watcher's change events.
// Both funnel into the same single-flight check cycle, so at most one
// probe is ever in flight and new triggers coalesce instead of queueing.
type Coordinator struct {
	prober  probe.Prober
	hosts   *probe.HostSet
	watcher transport.Watcher
	opts    Options

	// checkSem holds one slot: a check cycle owns it from trigger through
	// its notify pass, so Stop can drain the whole cycle by acquiring it.
	checkSem chan struct{}

	mu          sync.Mutex
	state       State
	subs        map[Subscription]Listener
	running     bool
	transportUp bool
	cancelWatch func()
	done        chan struct{}

	wg sync.WaitGroup
}

// New constructs a coordinator. The initial status is optimistically
// Online; the first check corrects it immediately on Start.
func New(prober probe.Prober, hosts *probe.HostSet, watcher transport.Watcher, opts Options) *Coordinator {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Thresholds == (classify.Thresholds{}) {
		opts.Thresholds = classify.DefaultThresholds()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Coordinator{
		prober:   prober,
		hosts:    hosts,
		watcher:  watcher,
		opts:     opts,
		checkSem: make(chan struct{}, 1),
		state: State{
			Status:      classify.StatusOnline,
			IsConnected: true,
		},
		subs: make(map[Subscription]Listener),
	}
}

// Start subscribes to the transport watcher, performs an immediate check
// and begins the periodic ticker. A second Start without an intervening
// Stop is an error.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("monitor already running")
	}
	c.running = true
	c.transportUp = c.watcher.Current()
	c.done = make(chan struct{})
	c.mu.Unlock()

	cancel := c.watcher.Subscribe(c.onTransportChange)
	c.mu.Lock()
	c.cancelWatch = cancel
	c.mu.Unlock()

	c.opts.Logger.Info("monitor started",
		zap.Duration("interval", c.opts.Interval),
		zap.Duration("timeout", c.opts.Timeout))

	c.CheckNow()

	c.wg.Add(1)
	go c.run()
	return nil
}

// Stop cancels the ticker and the watcher subscription, then waits for
// any in-flight check cycle to drain. No further probes start and no
// further notifications fire after Stop returns; a probe already in
// flight completes but its result is discarded.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.done)
	cancel := c.cancelWatch
	c.cancelWatch = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	// A check cycle holds the slot through its notify pass; taking it
	// here means no notification can arrive after Stop returns.
	c.checkSem <- struct{}{}
	<-c.checkSem

	c.wg.Wait()
	c.opts.Logger.Info("monitor stopped")
}

// Status returns the current state snapshot without triggering I/O.
func (c *Coordinator) Status() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a listener invoked once per confirmed status
// transition, never on no-op re-evaluations.
func (c *Coordinator) Subscribe(fn Listener) Subscription {
	id := Subscription(uuid.NewString())
	c.mu.Lock()
	c.subs[id] = fn
	c.mu.Unlock()
	return id
}

// Unsubscribe removes a listener. Unknown subscriptions are ignored.
func (c *Coordinator) Unsubscribe(id Subscription) {
	c.mu.Lock()
	delete(c.subs, id)
	c.mu.Unlock()
}

// CheckNow triggers an immediate check cycle. While a check is already in
// flight the call is a no-op, not a queued retry. Safe to call from any
// goroutine, concurrently with the ticker and watcher triggers.
func (c *Coordinator) CheckNow() {
	select {
	case c.checkSem <- struct{}{}:
	default:
		return
	}
	defer func() { <-c.checkSem }()

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	transportUp := c.transportUp
	prev := c.state
	c.mu.Unlock()

	// Transport absence needs no probe evidence: skip the network round
	// trip and classify directly.
	var result probe.Result
	if transportUp {
		host := c.hosts.Next()
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
		result = c.prober.Probe(ctx, host, c.opts.Timeout)
		cancel()

		if c.opts.Recorder != nil {
			c.opts.Recorder.RecordProbe(host, result)
		}
		c.opts.Logger.Debug("probe finished",
			zap.String("host", host),
			zap.Bool("success", result.Success),
			zap.Duration("elapsed", result.Elapsed),
			zap.Error(result.Err))
	}

	status, failures := classify.Classify(prev.Status, prev.ConsecutiveFailures, transportUp, result, c.opts.Thresholds)

	c.mu.Lock()
	if !c.running {
		// Stopped while the probe was in flight: discard the result.
		c.mu.Unlock()
		return
	}
	from := c.state.Status
	c.state = State{
		Status:              status,
		IsConnected:         classify.IsConnected(status),
		ConsecutiveFailures: failures,
		LastChecked:         c.opts.Clock.Now(),
		LastElapsed:         result.Elapsed,
	}
	var listeners []Listener
	if status != from {
		listeners = make([]Listener, 0, len(c.subs))
		for _, fn := range c.subs {
			listeners = append(listeners, fn)
		}
	}
	c.mu.Unlock()

	if c.opts.Recorder != nil {
		c.opts.Recorder.RecordStatus(status)
	}
	if status == from {
		return
	}

	c.opts.Logger.Info("status transition",
		zap.String("from", string(from)),
		zap.String("to", string(status)),
		zap.Int("consecutive_failures", failures))
	if c.opts.Recorder != nil {
		c.opts.Recorder.RecordTransition(from, status)
	}
	for _, fn := range listeners {
		c.notify(fn, status)
	}
}

// notify shields the check cycle from subscriber faults: a panicking
// listener is logged and the remaining listeners still run.
func (c *Coordinator) notify(fn Listener, status classify.Status) {
	defer func() {
		if r := recover(); r != nil {
			c.opts.Logger.Error("subscriber panicked", zap.Any("panic", r))
		}
	}()
	fn(status)
}

func (c *Coordinator) run() {
	defer c.wg.Done()

	ticker := c.opts.Clock.Ticker(c.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			// The periodic trigger only probes while the last known
			// transport signal is present; watcher events cover the rest.
			c.mu.Lock()
			up := c.transportUp
			c.mu.Unlock()
			if up {
				c.CheckNow()
			}
		}
	}
}

func (c *Coordinator) onTransportChange(present bool) {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.transportUp = present
	c.mu.Unlock()

	c.opts.Logger.Info("transport change trigger", zap.Bool("present", present))
	c.CheckNow()
}
