package memews

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

// racyStore publishes a placement while the snapshot is being read, the way a
// drop can commit between a viewer subscribing and its snapshot query.
type racyStore struct {
	hub      *Hub
	existing []placement.Placement
	racing   placement.Placement
}

func (r *racyStore) ListAll(ctx context.Context) ([]placement.Placement, error) {
	_ = r.hub.Publish(ctx, r.racing)
	return append(append([]placement.Placement{}, r.existing...), r.racing), nil
}

func readMessage(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, body, err := conn.ReadMessage()
	assert.Nil(t, err)
	msg, err := ParseMessage(body)
	assert.Nil(t, err)
	return msg
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Nil(t, err)
	return conn
}

func waitFor(hub *Hub, n int) {
	for hub.Len() != n {
		time.Sleep(time.Millisecond)
	}
}

func TestHandler(t *testing.T) {
	t.Run("snapshot then live, no duplicates", func(t *testing.T) {
		hub := NewHub(zerolog.Nop(), 0)
		store := &racyStore{hub: hub, existing: []placement.Placement{newPlacement(1)}, racing: newPlacement(2)}
		server := httptest.NewServer(NewHandler(hub, store, zerolog.Nop()))
		defer server.Close()

		conn := dial(t, server, "")
		defer conn.Close()

		assert.Equal(t, MsgConnectionAck, readMessage(t, conn).Type)

		msg := readMessage(t, conn)
		assert.Equal(t, MsgSnapshot, msg.Type)
		var snapshot []placement.Placement
		assert.Nil(t, json.Unmarshal(msg.Payload, &snapshot))
		assert.Equal(t, []placement.Placement{newPlacement(1), newPlacement(2)}, snapshot)

		_ = hub.Publish(context.Background(), newPlacement(3))

		msg = readMessage(t, conn)
		assert.Equal(t, MsgPlacementCreated, msg.Type)
		assert.Equal(t, newPlacement(3).ID, msg.ID)
		var live placement.Placement
		assert.Nil(t, json.Unmarshal(msg.Payload, &live))
		assert.Equal(t, newPlacement(3), live)
	})

	t.Run("ping and legacy event name", func(t *testing.T) {
		hub := NewHub(zerolog.Nop(), 0)
		store := placement.NewMemoryStore()
		server := httptest.NewServer(NewHandler(hub, store, zerolog.Nop()))
		defer server.Close()

		conn := dial(t, server, "?legacy=1")
		defer conn.Close()

		assert.Equal(t, MsgConnectionAck, readMessage(t, conn).Type)
		msg := readMessage(t, conn)
		assert.Equal(t, MsgSnapshot, msg.Type)
		assert.Equal(t, "[]", string(msg.Payload))

		assert.Nil(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping","id":"42"}`)))
		msg = readMessage(t, conn)
		assert.Equal(t, MsgPong, msg.Type)
		assert.Equal(t, "42", msg.ID)

		_ = hub.Publish(context.Background(), newPlacement(9))
		assert.Equal(t, MsgNewMeme, readMessage(t, conn).Type)
	})

	t.Run("placement relayed twice is delivered once", func(t *testing.T) {
		hub := NewHub(zerolog.Nop(), 0)
		server := httptest.NewServer(NewHandler(hub, placement.NewMemoryStore(), zerolog.Nop()))
		defer server.Close()

		conn := dial(t, server, "")
		defer conn.Close()
		readMessage(t, conn)
		readMessage(t, conn)

		ctx := context.Background()
		_ = hub.Publish(ctx, newPlacement(4))
		_ = hub.Publish(ctx, newPlacement(4))
		_ = hub.Publish(ctx, newPlacement(5))

		assert.Equal(t, newPlacement(4).ID, readMessage(t, conn).ID)
		assert.Equal(t, newPlacement(5).ID, readMessage(t, conn).ID)
	})

	t.Run("session released on close", func(t *testing.T) {
		hub := NewHub(zerolog.Nop(), 0)
		server := httptest.NewServer(NewHandler(hub, placement.NewMemoryStore(), zerolog.Nop()))
		defer server.Close()

		conn := dial(t, server, "")
		readMessage(t, conn)
		readMessage(t, conn)
		assert.Equal(t, 1, hub.Len())

		conn.Close()
		waitFor(hub, 0)
	})
}
