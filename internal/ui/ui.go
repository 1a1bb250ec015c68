package ui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"netmon/internal/classify"
	"netmon/internal/monitor"
)

const (
	refreshInterval = 500 * time.Millisecond
	maxLogLines     = 64
)

// UI renders a terminal view of the monitor: current status, failure
// count, last probe latency and a transition log. It consumes only the
// coordinator's public surface (Status and Subscribe).
type UI struct {
	coord *monitor.Coordinator
	hosts []string

	mu  sync.Mutex
	log []transitionEntry
}

type transitionEntry struct {
	at     time.Time
	status classify.Status
}

// New returns a UI over the given coordinator. hosts is display-only.
func New(coord *monitor.Coordinator, hosts []string) *UI {
	return &UI{coord: coord, hosts: hosts}
}

// Run blocks until the context is cancelled or the user quits.
func (u *UI) Run(ctx context.Context) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	screen.HideCursor()
	defer screen.Fini()

	sub := u.coord.Subscribe(u.recordTransition)
	defer u.coord.Unsubscribe(sub)

	eventCh := make(chan tcell.Event, 1)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	u.render(screen)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return context.Canceled
				}
				if ev.Rune() == 'c' {
					u.coord.CheckNow()
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		case <-ticker.C:
			u.render(screen)
		}
	}
}

func (u *UI) recordTransition(status classify.Status) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.log = append(u.log, transitionEntry{at: time.Now(), status: status})
	if len(u.log) > maxLogLines {
		u.log = u.log[len(u.log)-maxLogLines:]
	}
}

func (u *UI) render(screen tcell.Screen) {
	screen.Clear()
	width, height := screen.Size()
	if width < 20 || height < 5 {
		screen.Show()
		return
	}

	state := u.coord.Status()

	now := time.Now().Format("2006-01-02 15:04:05")
	header := fmt.Sprintf(" netmon  %s  (q quit, c check now)", now)
	drawText(screen, 0, 0, width, header, tcell.StyleDefault.Bold(true))

	hostsLine := fmt.Sprintf(" hosts=%s", strings.Join(u.hosts, ","))
	drawText(screen, 0, 1, width, hostsLine, tcell.StyleDefault.Foreground(tcell.ColorGray))

	statusLine := fmt.Sprintf(" status: %s", padOrTrim(string(state.Status), 10))
	drawText(screen, 0, 3, width, statusLine, statusStyle(state.Status).Bold(true))

	detail := fmt.Sprintf(" connected=%t  failures=%d  last_probe=%s  checked=%s",
		state.IsConnected,
		state.ConsecutiveFailures,
		formatElapsed(state.LastElapsed),
		formatCheckedAt(state.LastChecked))
	drawText(screen, 0, 4, width, detail, tcell.StyleDefault)

	drawText(screen, 0, 6, width, " transitions:", tcell.StyleDefault.Bold(true))
	u.mu.Lock()
	entries := append([]transitionEntry(nil), u.log...)
	u.mu.Unlock()

	row := 7
	for i := len(entries) - 1; i >= 0 && row < height; i-- {
		entry := entries[i]
		line := fmt.Sprintf("   %s  %s", entry.at.Format("15:04:05"), entry.status)
		drawText(screen, 0, row, width, line, statusStyle(entry.status))
		row++
	}

	screen.Show()
}

func drawText(screen tcell.Screen, x, y, width int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= x+width {
			break
		}
		screen.SetContent(col, y, r, nil, style)
		col++
	}
	for col < x+width {
		screen.SetContent(col, y, ' ', nil, tcell.StyleDefault)
		col++
	}
}

func padOrTrim(value string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) > width {
		return string(runes[:width])
	}
	if len(runes) < width {
		return value + strings.Repeat(" ", width-len(runes))
	}
	return value
}

func formatElapsed(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Millisecond {
		return fmt.Sprintf("%dus", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatCheckedAt(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format("15:04:05")
}

func statusStyle(status classify.Status) tcell.Style {
	switch status {
	case classify.StatusOnline:
		return tcell.StyleDefault.Foreground(tcell.ColorGreen)
	case classify.StatusSlow:
		return tcell.StyleDefault.Foreground(tcell.ColorYellow)
	case classify.StatusUnstable:
		return tcell.StyleDefault.Foreground(tcell.ColorOrange)
	case classify.StatusOffline:
		return tcell.StyleDefault.Foreground(tcell.ColorRed)
	default:
		return tcell.StyleDefault.Foreground(tcell.ColorGray)
	}
}
