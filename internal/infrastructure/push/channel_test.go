package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopfront/adminsync/internal/domain/livelist"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// echoServer upgrades every request and echoes frames back on the same
// connection.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestChannel(t *testing.T, url string, opts ...ChannelOption) *Channel {
	t.Helper()
	opts = append(opts, WithReconnectWait(10*time.Millisecond, 100*time.Millisecond))
	ch := NewChannel(url, opts...)
	t.Cleanup(ch.Close)
	return ch
}

func TestChannel_EmitAndReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ch := newTestChannel(t, wsURL(srv))
	ch.Start(context.Background())

	received := make(chan Envelope, 1)
	unsub := ch.Subscribe("coupon:created", func(env Envelope) {
		received <- env
	})
	defer unsub()

	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	stream := NewStream[livelist.Coupon](ch, "coupon", nil)
	err := stream.Emit(context.Background(), livelist.Created(livelist.Coupon{ID: "c1", Code: "SAVE10"}))
	require.NoError(t, err)

	select {
	case env := <-received:
		assert.Equal(t, "coupon:created", env.Event)
		assert.Equal(t, ch.Session(), env.Origin)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for echoed event")
	}
}

func TestChannel_Unsubscribe(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ch := newTestChannel(t, wsURL(srv))
	ch.Start(context.Background())
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	var calls atomic.Int32
	unsub := ch.Subscribe("coupon:created", func(Envelope) { calls.Add(1) })
	unsub()

	require.NoError(t, ch.Emit(context.Background(), Envelope{Event: "coupon:created"}))
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, calls.Load())
}

func TestChannel_SubscriptionSurvivesReconnect(t *testing.T) {
	// First connection is dropped by the server immediately; the
	// channel must redial and the existing subscription must keep
	// working without re-subscribing.
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if conns.Add(1) == 1 {
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch := newTestChannel(t, wsURL(srv))

	received := make(chan Envelope, 1)
	ch.Subscribe("coupon:updated", func(env Envelope) { received <- env })

	ch.Start(context.Background())

	require.Eventually(t, func() bool {
		return conns.Load() >= 2 && ch.Connected()
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ch.Emit(context.Background(), Envelope{Event: "coupon:updated"}))

	select {
	case env := <-received:
		assert.Equal(t, "coupon:updated", env.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not survive reconnect")
	}
}

func TestChannel_LocalOnlyDegradation(t *testing.T) {
	// Nothing listens on this address; Emit must not fail or block.
	ch := newTestChannel(t, "ws://127.0.0.1:1/ws")
	ch.Start(context.Background())

	for i := 0; i < defaultSendBufferSize+10; i++ {
		assert.NoError(t, ch.Emit(context.Background(), Envelope{Event: "coupon:created"}))
	}
	assert.False(t, ch.Connected())
}

func TestChannel_CloseIsIdempotentAndStopsGoroutines(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	ch := NewChannel(wsURL(srv), WithReconnectWait(10*time.Millisecond, 50*time.Millisecond))
	ch.Start(context.Background())
	require.Eventually(t, ch.Connected, 2*time.Second, 10*time.Millisecond)

	ch.Close()
	ch.Close()
	assert.False(t, ch.Connected())
}

func TestChannel_MalformedFrameIsSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// One garbage frame, then a valid one
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"coupon:created"}`))
		// Hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ch := newTestChannel(t, wsURL(srv))

	received := make(chan Envelope, 1)
	ch.Subscribe("coupon:created", func(env Envelope) { received <- env })
	ch.Start(context.Background())

	select {
	case env := <-received:
		assert.Equal(t, "coupon:created", env.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("valid frame after garbage was not delivered")
	}
}
