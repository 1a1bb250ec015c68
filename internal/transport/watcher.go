package transport

// Watcher exposes the OS-level transport-presence signal: whether any
// usable network link exists at all, independent of internet
// reachability. It is a thin relay with no filtering or debouncing.
type Watcher interface {
	// Current returns the present transport signal synchronously, so a
	// consumer is never without a signal at startup.
	Current() bool
	// Subscribe registers fn to be invoked with the new signal on every
	// change. The returned cancel function removes the subscription.
	Subscribe(fn func(present bool)) (cancel func())
}
