package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTooManySessions is returned when the session cap is reached
var ErrTooManySessions = errors.New("maximum number of relay sessions reached")

// sessionBufferSize bounds each session's send queue; a slow consumer
// drops frames rather than stalling the hub. Delivery is best-effort
// by contract.
const sessionBufferSize = 100

// Session is one connected admin screen
type Session struct {
	ID   string
	Send chan []byte
}

// Bridge fans envelopes out to sessions connected to other relay
// instances. A nil bridge means single-instance operation.
type Bridge interface {
	Publish(ctx context.Context, payload []byte) error
}

// Hub is the in-memory session registry and broadcaster. A mutation
// envelope received from one session is forwarded to every other local
// session and, when a bridge is attached, to sibling relay instances.
// The sender never receives its own echo from the local hub.
type Hub struct {
	logger      *zap.Logger
	maxSessions int
	bridge      Bridge

	mu       sync.RWMutex
	sessions map[string]*Session
}

// HubOption is a functional option for configuring the hub
type HubOption func(*Hub)

// WithHubLogger sets the logger for the hub
func WithHubLogger(logger *zap.Logger) HubOption {
	return func(h *Hub) { h.logger = logger }
}

// WithMaxSessions caps concurrent sessions; 0 means unlimited
func WithMaxSessions(max int) HubOption {
	return func(h *Hub) { h.maxSessions = max }
}

// WithBridge attaches a cross-instance bridge
func WithBridge(b Bridge) HubOption {
	return func(h *Hub) { h.bridge = b }
}

// NewHub creates an empty hub
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger:   zap.NewNop(),
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds a session and returns it
func (h *Hub) Register() (*Session, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.maxSessions > 0 && len(h.sessions) >= h.maxSessions {
		return nil, ErrTooManySessions
	}

	s := &Session{
		ID:   uuid.New().String(),
		Send: make(chan []byte, sessionBufferSize),
	}
	h.sessions[s.ID] = s

	h.logger.Info("relay session connected",
		zap.String("session_id", s.ID),
		zap.Int("sessions", len(h.sessions)))
	return s, nil
}

// Unregister removes a session and closes its send queue
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[s.ID]; !ok {
		return
	}
	delete(h.sessions, s.ID)
	close(s.Send)

	h.logger.Info("relay session disconnected",
		zap.String("session_id", s.ID),
		zap.Int("sessions", len(h.sessions)))
}

// SessionCount returns the number of connected sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HandleInbound rebroadcasts a frame received from a session: to every
// other local session and across the bridge. Frames without an origin
// are stamped with the sending session's id so receivers can filter
// echoes that travel through other instances.
func (h *Hub) HandleInbound(ctx context.Context, sessionID string, raw []byte) {
	raw = h.stampOrigin(sessionID, raw)

	h.broadcast(raw, sessionID)

	if h.bridge != nil {
		if err := h.bridge.Publish(ctx, raw); err != nil {
			h.logger.Warn("bridge publish failed", zap.Error(err))
		}
	}
}

// FromBridge delivers a frame that arrived from a sibling instance to
// every local session. Origin filtering happens client-side.
func (h *Hub) FromBridge(raw []byte) {
	h.broadcast(raw, "")
}

func (h *Hub) broadcast(raw []byte, exclude string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, s := range h.sessions {
		if id == exclude {
			continue
		}
		select {
		case s.Send <- raw:
		default:
			// Queue full, session might be slow
			h.logger.Warn("session queue full, dropping frame",
				zap.String("session_id", id))
		}
	}
}

// wireEnvelope mirrors the client frame just enough to stamp origins
type wireEnvelope struct {
	Event  string          `json:"event"`
	Origin string          `json:"origin,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (h *Hub) stampOrigin(sessionID string, raw []byte) []byte {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return raw
	}
	if env.Origin != "" {
		return raw
	}
	env.Origin = sessionID
	stamped, err := json.Marshal(env)
	if err != nil {
		return raw
	}
	return stamped
}
