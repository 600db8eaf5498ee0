package relay

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Handler exposes the relay over HTTP: the websocket upgrade endpoint
// and a health probe.
type Handler struct {
	hub      *Hub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// HandlerOption is a functional option for configuring the handler
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger for the handler
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) { h.logger = logger }
}

// WithAllowedOrigins restricts websocket upgrades to the given Origin
// headers; empty means allow all (development default).
func WithAllowedOrigins(origins []string) HandlerOption {
	return func(h *Handler) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[o] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true // non-browser client
			}
			_, ok := allowed[origin]
			return ok
		}
	}
}

// NewHandler creates the HTTP face of the hub
func NewHandler(hub *Hub, opts ...HandlerOption) *Handler {
	h := &Handler{
		hub:    hub,
		logger: zap.NewNop(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the relay routes on the engine
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/ws", h.Stream)
	r.GET("/healthz", h.Health)
}

// Health reports liveness and the current session count
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"sessions": h.hub.SessionCount(),
		},
	})
}

// Stream upgrades the request and pumps frames between the session and
// the hub until either side goes away.
func (h *Handler) Stream(c *gin.Context) {
	sess, err := h.hub.Register()
	if err != nil {
		if errors.Is(err, ErrTooManySessions) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MAX_SESSIONS_REACHED",
					"message": "Maximum number of relay sessions reached",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.Unregister(sess)
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	go h.writePump(sess, conn)
	h.readPump(c, sess, conn)
}

func (h *Handler) readPump(c *gin.Context, sess *Session, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(sess)
		_ = conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("session read error",
					zap.String("session_id", sess.ID),
					zap.Error(err))
			}
			return
		}
		h.hub.HandleInbound(c.Request.Context(), sess.ID, raw)
	}
}

func (h *Handler) writePump(sess *Session, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case raw, ok := <-sess.Send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
