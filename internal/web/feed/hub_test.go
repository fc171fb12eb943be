package feed

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/relstore/internal/orm/schema"
	"github.com/conduit-lang/relstore/internal/orm/store"
)

func setupHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(context.Background(), nil)
	go hub.Run()

	srv := httptest.NewServer(hub.Handler())
	t.Cleanup(func() {
		srv.Close()
		hub.Shutdown()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	assert.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHubPublishToRoom(t *testing.T) {
	hub, srv := setupHub(t)

	items := dial(t, srv, "?model=Item")
	tags := dial(t, srv, "?model=Tag")
	waitForClients(t, hub, 2)
	assert.Equal(t, 1, hub.RoomSize("Item"))

	hub.Publish(Message{Type: "create", Model: "Item", IDs: []any{1, 2}})
	hub.Publish(Message{Type: "delete", Model: "Tag", IDs: []any{"t"}})

	msg := readMessage(t, items)
	assert.Equal(t, "create", msg.Type)
	assert.Equal(t, "Item", msg.Model)
	assert.Equal(t, []any{float64(1), float64(2)}, msg.IDs)

	msg = readMessage(t, tags)
	assert.Equal(t, "delete", msg.Type)
	assert.Equal(t, []any{"t"}, msg.IDs)
}

func TestClientSubscribeFrames(t *testing.T) {
	hub, srv := setupHub(t)

	conn := dial(t, srv, "")
	waitForClients(t, hub, 1)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "subscribe", "model": "Item"}))
	msg := readMessage(t, conn)
	assert.Equal(t, "subscribed", msg.Type)
	assert.Equal(t, 1, hub.RoomSize("Item"))

	hub.Publish(Message{Type: "update", Model: "Item", IDs: []any{3}})
	assert.Equal(t, "update", readMessage(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "unsubscribe", "model": "Item"}))
	assert.Equal(t, "unsubscribed", readMessage(t, conn).Type)
	assert.Zero(t, hub.RoomSize("Item"))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "shout"}))
	assert.Equal(t, "error", readMessage(t, conn).Type)
}

func TestClientDisconnectLeavesRooms(t *testing.T) {
	hub, srv := setupHub(t)

	conn := dial(t, srv, "?model=Item&model=Tag")
	waitForClients(t, hub, 1)
	assert.Equal(t, 1, hub.RoomSize("Tag"))

	conn.Close()
	waitForClients(t, hub, 0)
	assert.Zero(t, hub.RoomSize("Item"))
	assert.Zero(t, hub.RoomSize("Tag"))
}

func TestAttachForwardsStoreEvents(t *testing.T) {
	hub, srv := setupHub(t)

	s, err := store.New(schema.Definitions{
		"Item": {
			"id":   {Type: schema.FieldScalar, Kind: schema.KindInteger},
			"name": {Type: schema.FieldScalar, Kind: schema.KindChar},
		},
	})
	require.NoError(t, err)
	require.NoError(t, hub.Attach(s))

	conn := dial(t, srv, "?model=Item")
	waitForClients(t, hub, 1)

	_, err = s.LoadData(store.RawData{"Item": {{"id": 1}, {"id": 2}}})
	require.NoError(t, err)

	msg := readMessage(t, conn)
	assert.Equal(t, "create", msg.Type)
	assert.Equal(t, []any{float64(1), float64(2)}, msg.IDs)

	m, err := s.Model("Item")
	require.NoError(t, err)
	require.NoError(t, m.Delete(m.Read(1)))

	msg = readMessage(t, conn)
	assert.Equal(t, "delete", msg.Type)
	assert.Equal(t, []any{float64(1)}, msg.IDs)
}

func TestShutdownWaitsForRun(t *testing.T) {
	hub := NewHub(context.Background(), nil)
	client := &Client{ID: "c1", hub: hub, send: make(chan []byte, 1)}
	hub.clients[client] = true

	go hub.Run()
	hub.Shutdown()

	assert.True(t, client.closed.Load(), "cleanup must run before Shutdown returns")
	assert.Zero(t, hub.ClientCount())
}
