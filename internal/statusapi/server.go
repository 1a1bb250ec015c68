package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"netmon/internal/classify"
	"netmon/internal/monitor"
)

const writeDeadline = 5 * time.Second

// Server exposes the coordinator's state over HTTP: a JSON snapshot at
// /api/status and a WebSocket stream of confirmed transitions at /api/ws.
// It is a consumer of the coordinator's public surface only.
type Server struct {
	coord    *monitor.Coordinator
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// StatusResponse is the JSON shape of one state snapshot.
type StatusResponse struct {
	Status              string    `json:"status"`
	Connected           bool      `json:"connected"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastChecked         time.Time `json:"last_checked"`
	LastElapsedMs       int64     `json:"last_elapsed_ms"`
}

// TransitionFrame is the JSON shape of one WebSocket transition event.
type TransitionFrame struct {
	Status    string    `json:"status"`
	Connected bool      `json:"connected"`
	At        time.Time `json:"at"`
}

// New constructs a status server for the given coordinator.
func New(coord *monitor.Coordinator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		coord:  coord,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/ws", s.handleWS)
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(s.coord.Status()))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Transitions are queued per connection; a slow client drops its own
	// frames rather than blocking the coordinator's notification path.
	frames := make(chan TransitionFrame, 16)
	sub := s.coord.Subscribe(func(status classify.Status) {
		frame := TransitionFrame{
			Status:    string(status),
			Connected: classify.IsConnected(status),
			At:        time.Now().UTC(),
		}
		select {
		case frames <- frame:
		default:
		}
	})
	defer s.coord.Unsubscribe(sub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	state := s.coord.Status()
	// The coordinator swaps state before notifying, so transitions queued
	// up to this point are already reflected in the snapshot. Drop them to
	// keep the stream ordered.
	drainPending(frames)
	first := TransitionFrame{
		Status:    string(state.Status),
		Connected: state.IsConnected,
		At:        time.Now().UTC(),
	}
	if err := writeFrame(conn, first); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case frame := <-frames:
			if err := writeFrame(conn, frame); err != nil {
				return
			}
		}
	}
}

func drainPending(frames chan TransitionFrame) {
	for {
		select {
		case <-frames:
		default:
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame TransitionFrame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return conn.WriteJSON(frame)
}

func snapshotResponse(state monitor.State) StatusResponse {
	return StatusResponse{
		Status:              string(state.Status),
		Connected:           state.IsConnected,
		ConsecutiveFailures: state.ConsecutiveFailures,
		LastChecked:         state.LastChecked,
		LastElapsedMs:       state.LastElapsed.Milliseconds(),
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

// Serve starts the status server on addr and blocks until context
// cancellation.
func Serve(ctx context.Context, addr string, server *Server) error {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = httpServer.Shutdown(context.Background())
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return context.Canceled
		}
		return err
	}
}
