// File: internal/api/websocket.go

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"github.com/tinkertool/tinker/api/schemas"
	"github.com/tinkertool/tinker/internal/bus"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
	// Buffered outbound frames per client.
	sendChannelSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The server binds to loopback only; cross-origin pages on the same
		// machine are the expected clients.
		return true
	},
}

// wsFrame is the outbound message shape. Type is "event" for stream events
// and "lagged" when the client fell behind and messages were dropped.
type wsFrame struct {
	Type    string         `json:"type"`
	Data    *schemas.Event `json:"data,omitempty"`
	Skipped uint64         `json:"skipped,omitempty"`
}

// wsClient is one WebSocket connection with its own event subscription, so a
// slow client lags independently without affecting others.
type wsClient struct {
	id     string
	logger *zap.Logger
	conn   *websocket.Conn
	sub    *bus.Subscription[schemas.Event]
	send   chan []byte
}

// handleWS upgrades the connection and bridges the event bus to the peer.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}

	id := uuid.New().String()
	client := &wsClient{
		id:     id,
		logger: s.logger.Named("ws").With(zap.String("client_id", id)),
		conn:   conn,
		sub:    s.d.Events.Subscribe(),
		send:   make(chan []byte, sendChannelSize),
	}
	client.logger.Info("WebSocket client connected", zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	go client.streamEvents(ctx)
	go client.writePump(cancel)
	client.readPump(cancel, s.d.Commands)
}

// streamEvents moves events from the bus subscription into the send channel,
// translating lag into an explicit sentinel frame.
func (c *wsClient) streamEvents(ctx context.Context) {
	defer close(c.send)
	for {
		ev, err := c.sub.Recv(ctx)
		if err != nil {
			var lagged *bus.LaggedError
			switch {
			case errors.As(err, &lagged):
				c.enqueue(ctx, wsFrame{Type: "lagged", Skipped: lagged.Skipped})
				continue
			case errors.Is(err, bus.ErrClosed):
				return
			default:
				return
			}
		}
		if !c.enqueue(ctx, wsFrame{Type: "event", Data: &ev}) {
			return
		}
	}
}

func (c *wsClient) enqueue(ctx context.Context, frame wsFrame) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("Failed to marshal frame", zap.Error(err))
		return true
	}
	select {
	case c.send <- data:
		return true
	case <-ctx.Done():
		return false
	}
}

// writePump drains the send channel to the peer and keeps the connection
// alive with pings.
func (c *wsClient) writePump(cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump parses inbound frames as commands and queues them. Invalid frames
// are logged and dropped; they never terminate the connection.
func (c *wsClient) readPump(cancel context.CancelFunc, commands *bus.Bus[schemas.Command]) {
	defer func() {
		cancel()
		c.sub.Close()
		c.conn.Close()
		c.logger.Info("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket read error", zap.Error(err))
			}
			return
		}

		var cmd schemas.Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.logger.Warn("Dropping malformed frame", zap.Error(err), zap.ByteString("frame", message))
			continue
		}
		if err := cmd.Validate(); err != nil {
			c.logger.Warn("Dropping invalid command", zap.Error(err), zap.String("type", string(cmd.Type)))
			continue
		}
		commands.Publish(cmd)
	}
}
