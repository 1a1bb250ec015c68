package ui

import (
	"testing"
	"time"

	"netmon/internal/classify"
)

func TestPadOrTrim(t *testing.T) {
	tests := []struct {
		value string
		width int
		want  string
	}{
		{"ONLINE", 10, "ONLINE    "},
		{"UNSTABLE", 4, "UNST"},
		{"SLOW", 4, "SLOW"},
		{"x", 0, ""},
	}
	for _, tt := range tests {
		if got := padOrTrim(tt.value, tt.width); got != tt.want {
			t.Fatalf("padOrTrim(%q, %d) = %q, want %q", tt.value, tt.width, got, tt.want)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "-"},
		{500 * time.Microsecond, "500us"},
		{42 * time.Millisecond, "42ms"},
		{1500 * time.Millisecond, "1.5s"},
	}
	for _, tt := range tests {
		if got := formatElapsed(tt.d); got != tt.want {
			t.Fatalf("formatElapsed(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatCheckedAt(t *testing.T) {
	if got := formatCheckedAt(time.Time{}); got != "never" {
		t.Fatalf("expected never for zero time, got %q", got)
	}
	at := time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC)
	if got := formatCheckedAt(at); got != "13:04:05" {
		t.Fatalf("expected 13:04:05, got %q", got)
	}
}

func TestStatusStyleDistinguishesStatuses(t *testing.T) {
	seen := map[interface{}]classify.Status{}
	for _, status := range classify.Statuses() {
		style := statusStyle(status)
		if prev, ok := seen[style]; ok {
			t.Fatalf("statuses %s and %s share a style", prev, status)
		}
		seen[style] = status
	}
}

func TestTransitionLogIsBounded(t *testing.T) {
	u := New(nil, nil)
	for i := 0; i < maxLogLines*2; i++ {
		u.recordTransition(classify.StatusOnline)
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.log) != maxLogLines {
		t.Fatalf("expected log capped at %d, got %d", maxLogLines, len(u.log))
	}
}
