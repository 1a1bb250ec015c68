package transport

import "sync"

// StaticWatcher is a settable transport signal. It backs tests and
// environments where no OS-level source is usable; the consumer then runs
// on whatever signal was last set (or the optimistic default).
type StaticWatcher struct {
	mu      sync.Mutex
	present bool
	subs    map[int]func(bool)
	nextID  int
}

// NewStaticWatcher returns a watcher holding the given initial signal.
func NewStaticWatcher(present bool) *StaticWatcher {
	return &StaticWatcher{
		present: present,
		subs:    make(map[int]func(bool)),
	}
}

// Current returns the held signal.
func (w *StaticWatcher) Current() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.present
}

// Set updates the signal and notifies subscribers when it changed.
func (w *StaticWatcher) Set(present bool) {
	w.mu.Lock()
	if w.present == present {
		w.mu.Unlock()
		return
	}
	w.present = present
	subs := make([]func(bool), 0, len(w.subs))
	for _, fn := range w.subs {
		subs = append(subs, fn)
	}
	w.mu.Unlock()

	for _, fn := range subs {
		fn(present)
	}
}

// Subscribe registers a change callback and returns its cancel function.
func (w *StaticWatcher) Subscribe(fn func(present bool)) (cancel func()) {
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
