package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replaypad/internal/engine"
)

var fixedNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type frame struct {
	Type string          `json:"type"`
	Ts   time.Time       `json:"ts"`
	Data json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := NewServer(slog.Default(), Snapshot{Mode: "idle", Slot: 1}, HubConfig{})
	srv.now = func() time.Time { return fixedNow }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Hub().Run(ctx)

	mux := http.NewServeMux()
	srv.Register(mux, "/ws")
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	return srv, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestServer_SendsStateInitOnConnect(t *testing.T) {
	_, url := newTestServer(t)
	conn := dial(t, url)

	f := readFrame(t, conn)
	assert.Equal(t, "state_init", f.Type)
	assert.True(t, f.Ts.Equal(fixedNow))
	assert.JSONEq(t, `{"mode":"idle","slot":1,"event_count":0}`, string(f.Data))
}

func TestServer_BroadcastsNotifications(t *testing.T) {
	srv, url := newTestServer(t)
	conn := dial(t, url)
	readFrame(t, conn)
	require.Eventually(t, func() bool { return srv.Hub().Clients() == 1 }, time.Second, 5*time.Millisecond)

	srv.Notify(engine.ModeChanged{Mode: engine.Recording, Slot: 3, EventCount: 10})
	srv.Notify(engine.SlotChanged{Slot: 4, EventCount: 7})
	srv.Notify(engine.ErrorRaised{Err: &engine.Error{Code: engine.ErrCodeEmptySlot, Message: "nothing to play", Slot: 4}})

	f := readFrame(t, conn)
	assert.Equal(t, "mode_changed", f.Type)
	assert.JSONEq(t, `{"mode":"recording","slot":3,"event_count":10}`, string(f.Data))

	f = readFrame(t, conn)
	assert.Equal(t, "slot_changed", f.Type)
	assert.JSONEq(t, `{"slot":4,"event_count":7}`, string(f.Data))

	f = readFrame(t, conn)
	assert.Equal(t, "error", f.Type)
	assert.JSONEq(t, `{"code":"EMPTY_SLOT","message":"EMPTY_SLOT: nothing to play (slot=4)"}`, string(f.Data))
}

func TestServer_SnapshotFoldsNotifications(t *testing.T) {
	srv := NewServer(nil, Snapshot{Mode: "idle", Slot: 1}, HubConfig{})

	srv.Notify(engine.SlotChanged{Slot: 2, EventCount: 5})
	srv.Notify(engine.ModeChanged{Mode: engine.Playing, Slot: 2, EventCount: 5})
	srv.Notify(engine.ErrorRaised{Err: errors.New("boom")})

	snap := srv.Snapshot()
	assert.Equal(t, "playing", snap.Mode)
	assert.Equal(t, 2, snap.Slot)
	assert.Equal(t, 5, snap.EventCount)
	require.NotNil(t, snap.LastError)
	assert.Equal(t, ErrorData{Message: "boom"}, *snap.LastError)
	assert.Len(t, srv.Hub().broadcast, 3)
}

func TestServer_LateClientSeesFoldedState(t *testing.T) {
	srv, url := newTestServer(t)
	srv.Notify(engine.ModeChanged{Mode: engine.Playing, Slot: 6, EventCount: 12})

	conn := dial(t, url)
	f := readFrame(t, conn)
	assert.Equal(t, "state_init", f.Type)
	assert.JSONEq(t, `{"mode":"playing","slot":6,"event_count":12}`, string(f.Data))
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	srv := NewServer(nil, Snapshot{}, HubConfig{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ctx, ln, "/ws") }()

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestListenAndServe_BadAddress(t *testing.T) {
	srv := NewServer(nil, Snapshot{}, HubConfig{})
	err := srv.ListenAndServe(context.Background(), "256.0.0.1:bad", "/ws")
	assert.ErrorContains(t, err, "status listen")
}
