package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4 * 1024
)

// request is a frame sent by clients: {"type": "subscribe", "model": "Item"}
type request struct {
	Type  string `json:"type"`
	Model string `json:"model"`
}

// Client is one websocket connection
type Client struct {
	ID string

	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)
	return &Client{
		ID:     uuid.New().String(),
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, 256),
		ctx:    ctx,
		cancel: cancel,
	}
}

// readPump handles subscribe and unsubscribe requests until the peer goes away
func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Debug("websocket read failed", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}

		var req request
		if err := json.Unmarshal(data, &req); err != nil {
			c.reply("error", "")
			continue
		}
		switch req.Type {
		case "subscribe":
			c.hub.Join(c, req.Model)
			c.reply("subscribed", req.Model)
		case "unsubscribe":
			c.hub.Leave(c, req.Model)
			c.reply("unsubscribed", req.Model)
		default:
			c.reply("error", req.Model)
		}
	}
}

func (c *Client) reply(typ, model string) {
	if c.closed.Load() {
		return
	}
	data, _ := json.Marshal(Message{Type: typ, Model: model, IDs: []any{}})
	select {
	case c.send <- data:
	default:
	}
}

// writePump forwards queued frames to the connection and keeps it alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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

// Handler upgrades requests to websocket feed connections. Query parameters
// named "model" subscribe the connection up front.
func (h *Hub) Handler() http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Debug("websocket upgrade failed", zap.Error(err))
			return
		}

		client := newClient(conn, h)
		for _, model := range r.URL.Query()["model"] {
			h.Join(client, model)
		}
		h.register <- client

		go client.writePump()
		go client.readPump()
	}
}
