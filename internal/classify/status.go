package classify

// Status is the authoritative four-way connectivity classification.
type Status string

const (
	StatusOnline   Status = "ONLINE"
	StatusOffline  Status = "OFFLINE"
	StatusSlow     Status = "SLOW"
	StatusUnstable Status = "UNSTABLE"
)

// Statuses lists every classification in a stable order.
func Statuses() []Status {
	return []Status{StatusOnline, StatusOffline, StatusSlow, StatusUnstable}
}

// IsConnected reports whether a status represents usable network access.
// Every status except StatusOffline counts as connected.
func IsConnected(s Status) bool {
	return s != StatusOffline
}
