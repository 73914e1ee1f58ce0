package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aura-webinar/classroom/internal/clock"
	"github.com/aura-webinar/classroom/internal/countdown"
	"github.com/aura-webinar/classroom/internal/middleware"
	"github.com/aura-webinar/classroom/internal/models"
	"github.com/aura-webinar/classroom/internal/reminders"
	"github.com/aura-webinar/classroom/pkg/response"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS middleware already restricts browser origins for the API
	},
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// CountdownEvent is the payload of EventCountdown.
type CountdownEvent struct {
	SessionID string         `json:"session_id"`
	Countdown countdown.View `json:"countdown"`
}

type watchRequest struct {
	SessionID string `json:"session_id"`
}

// EngineAttacher keeps the user's reminder engine running while a connection is open.
type EngineAttacher interface {
	Attach(ctx context.Context, userID uuid.UUID) (*reminders.Engine, func())
}

// SessionGetter looks up the session a countdown watches.
type SessionGetter interface {
	GetByID(ctx context.Context, id string) (*models.ClassSession, error)
}

// Options wires the dashboard socket.
type Options struct {
	Hub             *Hub
	Engines         EngineAttacher
	Sessions        SessionGetter
	Clock           clock.Clock
	CountdownPeriod time.Duration
	Logger          *zap.Logger
}

// Client represents a single dashboard WebSocket connection.
type Client struct {
	ID       string
	UserID   uuid.UUID
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	done     chan struct{}
	once     sync.Once
	watchers *countdown.Watchers
	sessions SessionGetter
	logger   *zap.Logger
}

// ServeWs upgrades an authenticated request to the dashboard socket. The user's reminder
// engine runs for as long as at least one of their sockets is open.
func ServeWs(opts Options) gin.HandlerFunc {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	return func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			response.Unauthorized(c, "missing user context")
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		client := &Client{
			ID:       uuid.New().String(),
			UserID:   userID,
			hub:      opts.Hub,
			conn:     conn,
			send:     make(chan WSMessage, 256),
			done:     make(chan struct{}),
			watchers: countdown.NewWatchers(ctx, clk, opts.CountdownPeriod),
			sessions: opts.Sessions,
			logger:   logger.With(zap.String("user_id", userID.String())),
		}
		opts.Hub.Register(client)
		release := func() {}
		if opts.Engines != nil {
			_, release = opts.Engines.Attach(ctx, userID)
		}
		defer release()

		go client.writePump()
		client.readPump(ctx)
	}
}

// enqueue queues msg for the connection, dropping it when the buffer is full.
func (c *Client) enqueue(msg WSMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.logger.Debug("send buffer full, dropping event", zap.String("event", msg.Event))
	}
}

func (c *Client) sendEvent(event string, payload interface{}) {
	if msg, ok := envelope(event, payload); ok {
		c.enqueue(msg)
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.watchers.Close()
		c.hub.Unregister(c)
		_ = c.conn.Close()
	})
}

func (c *Client) readPump(ctx context.Context) {
	defer c.close()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))
		return nil
	})

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read", zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second))

		switch msg.Event {
		case "watch_countdown":
			c.watch(ctx, msg.Data)
		case "unwatch_countdown":
			var req watchRequest
			if err := json.Unmarshal(msg.Data, &req); err == nil && req.SessionID != "" {
				c.watchers.Unwatch(req.SessionID)
			}
		default:
			// ignore
		}
	}
}

func (c *Client) watch(ctx context.Context, data json.RawMessage) {
	var req watchRequest
	if err := json.Unmarshal(data, &req); err != nil || req.SessionID == "" {
		c.sendEvent(EventError, map[string]string{"error": "session_id required"})
		return
	}
	lookupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	s, err := c.sessions.GetByID(lookupCtx, req.SessionID)
	if err != nil || s == nil {
		c.sendEvent(EventError, map[string]string{"error": "session not found", "session_id": req.SessionID})
		return
	}
	if !s.Scheduled() {
		c.sendEvent(EventError, map[string]string{"error": "session is not scheduled", "session_id": req.SessionID})
		return
	}
	sessionID := s.ID
	c.watchers.Watch(sessionID, *s.ScheduledStart, func(snap countdown.Snapshot) {
		c.sendEvent(EventCountdown, CountdownEvent{SessionID: sessionID, Countdown: countdown.NewView(snap)})
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
