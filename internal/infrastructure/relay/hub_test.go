package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelayServer(t *testing.T, opts ...HubOption) (*httptest.Server, *Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(opts...)
	handler := NewHandler(hub)

	r := gin.New()
	handler.Register(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, hub
}

func dialRelay(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHubBroadcastExcludesSender(t *testing.T) {
	srv, _ := newRelayServer(t)

	sender := dialRelay(t, srv)
	receiver := dialRelay(t, srv)

	frame := []byte(`{"event":"coupon:created","data":{"id":"c1"}}`)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, frame))

	require.NoError(t, receiver.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, got, err := receiver.ReadMessage()
	require.NoError(t, err)

	var env wireEnvelope
	require.NoError(t, json.Unmarshal(got, &env))
	assert.Equal(t, "coupon:created", env.Event)
	assert.NotEmpty(t, env.Origin, "relay should stamp the sender's session id")

	// The sender must not receive its own frame back.
	require.NoError(t, sender.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	_, _, err = sender.ReadMessage()
	assert.Error(t, err, "sender should time out waiting for its own echo")
}

func TestHubPreservesExistingOrigin(t *testing.T) {
	srv, _ := newRelayServer(t)

	sender := dialRelay(t, srv)
	receiver := dialRelay(t, srv)

	frame := []byte(`{"event":"newOrder","origin":"client-7","data":{"id":"o1"}}`)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, frame))

	require.NoError(t, receiver.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, got, err := receiver.ReadMessage()
	require.NoError(t, err)

	var env wireEnvelope
	require.NoError(t, json.Unmarshal(got, &env))
	assert.Equal(t, "client-7", env.Origin)
}

func TestHubMaxSessions(t *testing.T) {
	srv, hub := newRelayServer(t, WithMaxSessions(1))

	first := dialRelay(t, srv)
	defer first.Close()

	require.Eventually(t, func() bool {
		return hub.SessionCount() == 1
	}, time.Second, 10*time.Millisecond)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHubReleasesSessionOnDisconnect(t *testing.T) {
	srv, hub := newRelayServer(t, WithMaxSessions(1))

	conn := dialRelay(t, srv)
	require.Eventually(t, func() bool {
		return hub.SessionCount() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return hub.SessionCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Slot freed, a new client can connect.
	dialRelay(t, srv)
}

func TestHubFromBridgeReachesAllSessions(t *testing.T) {
	srv, hub := newRelayServer(t)

	a := dialRelay(t, srv)
	b := dialRelay(t, srv)

	require.Eventually(t, func() bool {
		return hub.SessionCount() == 2
	}, time.Second, 10*time.Millisecond)

	frame := []byte(`{"event":"orderStatusUpdated","origin":"remote","data":{"id":"o2","status":"shipped"}}`)
	hub.FromBridge(frame)

	for _, conn := range []*websocket.Conn{a, b} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, got, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.JSONEq(t, string(frame), string(got))
	}
}

type recordingBridge struct {
	mu     sync.Mutex
	frames [][]byte
}

func (b *recordingBridge) Publish(_ context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, payload)
	return nil
}

func (b *recordingBridge) published() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.frames...)
}

func TestHubForwardsInboundToBridge(t *testing.T) {
	bridge := &recordingBridge{}
	srv, _ := newRelayServer(t, WithBridge(bridge))

	sender := dialRelay(t, srv)
	frame := []byte(`{"event":"coupon:deleted","data":{"id":"c9"}}`)
	require.NoError(t, sender.WriteMessage(websocket.TextMessage, frame))

	require.Eventually(t, func() bool {
		return len(bridge.published()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var env wireEnvelope
	require.NoError(t, json.Unmarshal(bridge.published()[0], &env))
	assert.Equal(t, "coupon:deleted", env.Event)
	assert.NotEmpty(t, env.Origin)
}

func TestStampOriginLeavesMalformedFramesAlone(t *testing.T) {
	hub := NewHub()
	raw := []byte(`not json`)
	assert.Equal(t, raw, hub.stampOrigin("s1", raw))
}

func TestHealthReportsSessionCount(t *testing.T) {
	srv, hub := newRelayServer(t)

	dialRelay(t, srv)
	require.Eventually(t, func() bool {
		return hub.SessionCount() == 1
	}, time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Sessions int `json:"sessions"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.Equal(t, 1, body.Data.Sessions)
}
