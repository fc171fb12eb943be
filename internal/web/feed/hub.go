// Package feed pushes store events to websocket clients. Clients join one
// room per model they follow.
package feed

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/conduit-lang/relstore/internal/orm/store"
)

// Message is the JSON frame sent to clients
type Message struct {
	Type  string `json:"type"`
	Model string `json:"model"`
	IDs   []any  `json:"ids"`
}

// roomMessage is a frame addressed to the clients of one model
type roomMessage struct {
	room string
	data []byte
}

// Hub maintains the set of active clients and their model rooms
type Hub struct {
	clients   map[*Client]bool
	clientsMu sync.RWMutex

	rooms   map[string]map[*Client]bool
	roomsMu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	publish    chan roomMessage

	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub creates a hub bound to ctx
func NewHub(ctx context.Context, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	hubCtx, cancel := context.WithCancel(ctx)

	h := &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		publish:    make(chan roomMessage, 1024),
		logger:     logger,
		ctx:        hubCtx,
		cancel:     cancel,
	}
	// counted before Run starts so Shutdown waits for a Run not yet scheduled
	h.wg.Add(1)
	return h
}

// Run starts the hub's event loop. It returns when the hub's context ends.
// Run must be called exactly once.
func (h *Hub) Run() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			h.cleanup()
			return

		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			h.logger.Debug("client registered",
				zap.String("client", client.ID),
				zap.Int("total", h.ClientCount()),
			)

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.publish:
			h.broadcastToRoom(msg)
		}
	}
}

func (h *Hub) drop(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closed.Store(true)
		close(client.send)
	}
	h.clientsMu.Unlock()

	h.roomsMu.Lock()
	for room, clients := range h.rooms {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	h.roomsMu.Unlock()

	h.logger.Debug("client unregistered",
		zap.String("client", client.ID),
		zap.Int("total", h.ClientCount()),
	)
}

func (h *Hub) broadcastToRoom(msg roomMessage) {
	h.roomsMu.RLock()
	members := make([]*Client, 0, len(h.rooms[msg.room]))
	for client := range h.rooms[msg.room] {
		members = append(members, client)
	}
	h.roomsMu.RUnlock()

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for _, client := range members {
		if !h.clients[client] {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			h.logger.Warn("dropping message, send buffer full",
				zap.String("client", client.ID),
				zap.String("model", msg.room),
			)
		}
	}
}

// Publish queues msg for the clients following msg.Model. It never blocks;
// messages are dropped when the queue is full.
func (h *Hub) Publish(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode feed message", zap.Error(err))
		return
	}
	select {
	case h.publish <- roomMessage{room: msg.Model, data: data}:
	case <-h.ctx.Done():
	default:
		h.logger.Warn("publish queue full, message dropped", zap.String("model", msg.Model))
	}
}

// Attach subscribes the hub to the create, update and delete events of every
// model of s
func (h *Hub) Attach(s *store.Store) error {
	for _, m := range s.Models() {
		for _, kind := range []store.EventKind{store.EventCreate, store.EventUpdate, store.EventDelete} {
			if err := m.AddEventListener(kind, h.forward); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Hub) forward(event store.Event) {
	msg := Message{Type: string(event.Kind), Model: event.Model}
	if event.Kind == store.EventDelete {
		msg.IDs = []any{event.ID}
	} else {
		msg.IDs = make([]any, len(event.Records))
		for i, r := range event.Records {
			msg.IDs[i] = r.ID()
		}
	}
	h.Publish(msg)
}

// Join adds a client to the room of a model
func (h *Hub) Join(client *Client, model string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	if h.rooms[model] == nil {
		h.rooms[model] = make(map[*Client]bool)
	}
	h.rooms[model][client] = true
}

// Leave removes a client from the room of a model
func (h *Hub) Leave(client *Client, model string) {
	h.roomsMu.Lock()
	defer h.roomsMu.Unlock()

	if clients, ok := h.rooms[model]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, model)
		}
	}
}

// RoomSize returns the number of clients following model
func (h *Hub) RoomSize(model string) int {
	h.roomsMu.RLock()
	defer h.roomsMu.RUnlock()
	return len(h.rooms[model])
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// cleanup closes all client connections
func (h *Hub) cleanup() {
	h.clientsMu.Lock()
	for client := range h.clients {
		client.closed.Store(true)
		if client.conn != nil {
			client.conn.Close()
		}
	}
	h.clients = make(map[*Client]bool)
	h.clientsMu.Unlock()

	h.roomsMu.Lock()
	h.rooms = make(map[string]map[*Client]bool)
	h.roomsMu.Unlock()
}

// Shutdown stops the hub and waits for Run to return
func (h *Hub) Shutdown() {
	h.cancel()
	h.wg.Wait()
}
