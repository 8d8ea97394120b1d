package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/replaypad/internal/engine"
)

// Snapshot is the state sent to a client on connect.
type Snapshot struct {
	Mode       string     `json:"mode"`
	Slot       int        `json:"slot"`
	EventCount int        `json:"event_count"`
	LastError  *ErrorData `json:"last_error,omitempty"`
}

// ModeData is the payload of "mode_changed".
type ModeData struct {
	Mode       string `json:"mode"`
	Slot       int    `json:"slot"`
	EventCount int    `json:"event_count"`
}

// SlotData is the payload of "slot_changed".
type SlotData struct {
	Slot       int `json:"slot"`
	EventCount int `json:"event_count"`
}

// ErrorData is the payload of "error".
type ErrorData struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// Server serves the status websocket and observes an engine.
//
// The engine is driven from a single goroutine, so the server never reads
// it directly: the snapshot handed to new clients is folded from the
// notifications themselves.
type Server struct {
	logger *slog.Logger
	hub    *Hub
	now    func() time.Time

	mu   sync.Mutex
	snap Snapshot
}

// NewServer constructs a server whose snapshot starts at initial. Call
// Hub().Run(ctx) or ListenAndServe to start it.
func NewServer(logger *slog.Logger, initial Snapshot, cfg HubConfig) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg),
		now:    func() time.Time { return time.Now().UTC() },
		snap:   initial,
	}
}

// SnapshotOf reads the observable state of eng. Call it from the goroutine
// that drives the engine.
func SnapshotOf(eng *engine.Engine) Snapshot {
	return Snapshot{
		Mode:       eng.Mode().String(),
		Slot:       eng.Slot(),
		EventCount: eng.EventCount(),
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Snapshot returns the latest folded state.
func (s *Server) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Notify folds n into the snapshot and broadcasts it. It implements
// engine.Observer and never blocks.
func (s *Server) Notify(n engine.Notification) {
	var (
		typ  string
		data any
	)

	s.mu.Lock()
	switch ev := n.(type) {
	case engine.ModeChanged:
		s.snap.Mode = ev.Mode.String()
		s.snap.Slot = ev.Slot
		s.snap.EventCount = ev.EventCount
		typ, data = "mode_changed", ModeData{Mode: ev.Mode.String(), Slot: ev.Slot, EventCount: ev.EventCount}
	case engine.SlotChanged:
		s.snap.Slot = ev.Slot
		s.snap.EventCount = ev.EventCount
		typ, data = "slot_changed", SlotData(ev)
	case engine.ErrorRaised:
		e := errorData(ev.Err)
		s.snap.LastError = &e
		typ, data = "error", e
	}
	s.mu.Unlock()

	if typ == "" {
		return
	}
	msg, err := s.frame(typ, data)
	if err != nil {
		s.logger.Warn("status marshal failed", "type", typ, "err", err)
		return
	}
	s.hub.BroadcastBytes(msg)
}

func errorData(err error) ErrorData {
	if err == nil {
		return ErrorData{Message: "unknown error"}
	}
	return ErrorData{Code: string(engine.CodeOf(err)), Message: err.Error()}
}

func (s *Server) frame(typ string, data any) ([]byte, error) {
	ts := s.now()
	return json.Marshal(envelope{Type: typ, Ts: &ts, Data: data})
}

// Register registers the websocket handler on mux.
func (s *Server) Register(mux *http.ServeMux, path string) {
	if mux == nil {
		return
	}
	mux.HandleFunc(path, s.handleWS)
}

var upgrader = websocket.Upgrader{
	// Listening is loopback by default; any local page may watch.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("status upgrade failed", "err", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)

	// Queue state_init before registering so it is the first frame.
	initMsg, err := s.frame("state_init", s.Snapshot())
	if err == nil {
		client.send <- initMsg
	}
	s.hub.register <- client

	// Pumps outlive the request; the hub and connection errors end them.
	go client.writePump(context.Background())
	go client.readPump()
}

// ListenAndServe serves the websocket at addr and path until ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr, path string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("status listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, path)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, path string) error {
	mux := http.NewServeMux()
	s.Register(mux, path)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go s.hub.Run(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("status server listening", "addr", ln.Addr().String(), "path", path)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status serve: %w", err)
	}
	return nil
}
