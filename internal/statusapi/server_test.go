package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"netmon/internal/classify"
	"netmon/internal/monitor"
	"netmon/internal/probe"
	"netmon/internal/transport"
)

type seqProber struct {
	mu      sync.Mutex
	results []probe.Result
	calls   int
}

func (p *seqProber) Probe(ctx context.Context, host string, timeout time.Duration) probe.Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.calls
	p.calls++
	if idx < len(p.results) {
		return p.results[idx]
	}
	return p.results[len(p.results)-1]
}

func newTestCoordinator(t *testing.T, results ...probe.Result) *monitor.Coordinator {
	t.Helper()
	hosts, err := probe.NewHostSet([]string{"a.example.com", "b.example.com"})
	if err != nil {
		t.Fatalf("NewHostSet error: %v", err)
	}
	coord := monitor.New(&seqProber{results: results}, hosts, transport.NewStaticWatcher(true), monitor.Options{})
	if err := coord.Start(); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	t.Cleanup(coord.Stop)
	return coord
}

func TestStatusEndpoint(t *testing.T) {
	coord := newTestCoordinator(t, probe.Result{Success: true, Elapsed: 40 * time.Millisecond})
	server := httptest.NewServer(New(coord, nil).Handler())
	defer server.Close()

	resp, err := http.Get(server.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var payload StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != string(classify.StatusOnline) {
		t.Fatalf("expected ONLINE, got %s", payload.Status)
	}
	if !payload.Connected {
		t.Fatalf("expected connected true")
	}
	if payload.LastElapsedMs != 40 {
		t.Fatalf("expected last_elapsed_ms 40, got %d", payload.LastElapsedMs)
	}
}

func TestStatusEndpointRejectsNonGet(t *testing.T) {
	coord := newTestCoordinator(t, probe.Result{Success: true, Elapsed: time.Millisecond})
	server := httptest.NewServer(New(coord, nil).Handler())
	defer server.Close()

	resp, err := http.Post(server.URL+"/api/status", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestDrainPendingEmptiesQueuedFrames(t *testing.T) {
	frames := make(chan TransitionFrame, 16)
	frames <- TransitionFrame{Status: string(classify.StatusUnstable)}
	frames <- TransitionFrame{Status: string(classify.StatusOnline)}

	drainPending(frames)

	select {
	case frame := <-frames:
		t.Fatalf("expected no queued frames after drain, got %+v", frame)
	default:
	}
}

func TestWebSocketStreamsTransitions(t *testing.T) {
	coord := newTestCoordinator(t,
		probe.Result{Success: true, Elapsed: 40 * time.Millisecond},
		probe.Result{Success: false, Elapsed: 5 * time.Second},
		probe.Result{Success: false, Elapsed: 5 * time.Second},
	)
	server := httptest.NewServer(New(coord, nil).Handler())
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	// The first frame is the current snapshot.
	var first TransitionFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if first.Status != string(classify.StatusOnline) {
		t.Fatalf("expected initial ONLINE frame, got %s", first.Status)
	}

	// Two failures flip the status to UNSTABLE, producing one transition.
	coord.CheckNow()
	coord.CheckNow()

	var transition TransitionFrame
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&transition); err != nil {
		t.Fatalf("read transition frame: %v", err)
	}
	if transition.Status != string(classify.StatusUnstable) {
		t.Fatalf("expected UNSTABLE frame, got %s", transition.Status)
	}
	if transition.Connected != true {
		t.Fatalf("UNSTABLE still counts as connected")
	}
}
