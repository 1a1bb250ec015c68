package transport

import (
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultPollInterval = 2 * time.Second

// InterfaceWatcher derives transport presence from the host's network
// interfaces: present means at least one non-loopback interface is up and
// has an address. Changes are detected by polling, which keeps the
// watcher portable across platforms.
type InterfaceWatcher struct {
	interval time.Duration
	detect   func() bool
	logger   *zap.Logger

	mu      sync.Mutex
	subs    map[int]func(bool)
	nextID  int
	last    bool
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewInterfaceWatcher constructs a watcher polling at the given interval.
// A non-positive interval selects the default of 2s.
func NewInterfaceWatcher(interval time.Duration, logger *zap.Logger) *InterfaceWatcher {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InterfaceWatcher{
		interval: interval,
		detect:   hasTransport,
		logger:   logger,
		subs:     make(map[int]func(bool)),
	}
}

// Start begins polling. Calling Start on a running watcher is a no-op.
func (w *InterfaceWatcher) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.last = w.detect()
	w.stop = make(chan struct{})
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.run()
}

// Stop halts polling and waits for the poll loop to exit. Subscriptions
// survive a Stop/Start cycle.
func (w *InterfaceWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stop)
	done := w.done
	w.mu.Unlock()

	<-done
}

// Current returns the transport signal from a fresh interface scan.
func (w *InterfaceWatcher) Current() bool {
	return w.detect()
}

// Subscribe registers a change callback and returns its cancel function.
func (w *InterfaceWatcher) Subscribe(fn func(present bool)) (cancel func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}

func (w *InterfaceWatcher) run() {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *InterfaceWatcher) poll() {
	present := w.detect()

	w.mu.Lock()
	if present == w.last {
		w.mu.Unlock()
		return
	}
	w.last = present
	subs := make([]func(bool), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	w.logger.Info("transport signal changed", zap.Bool("present", present))
	for _, fn := range subs {
		fn(present)
	}
}

func hasTransport() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		if len(addrs) > 0 {
			return true
		}
	}
	return false
}
