package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// dialTestHub spins up a test server around the hub and connects one client
// for the given user.
func dialTestHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.HandleConnection(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(frame, &msg))
	return msg
}

func waitForUsers(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ConnectedUsers() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connected users, got %d", want, hub.ConnectedUsers())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishGlobalAndScoped(t *testing.T) {
	hub := NewHub(zap.NewNop())

	owner := dialTestHub(t, hub, "user-1")
	other := dialTestHub(t, hub, "user-2")
	waitForUsers(t, hub, 2)

	hub.Publish(EventPickupCreated, map[string]string{"pickupId": "pickup-1"}, "user-1")

	// both clients get the global frame
	ownerGlobal := readMessage(t, owner)
	assert.Equal(t, EventPickupCreated, ownerGlobal.Event)
	assert.Equal(t, "global", ownerGlobal.Channel)

	otherGlobal := readMessage(t, other)
	assert.Equal(t, "global", otherGlobal.Channel)

	// only the owner gets the scoped frame
	ownerScoped := readMessage(t, owner)
	assert.Equal(t, "user:user-1", ownerScoped.Channel)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestPublishGlobalOnly(t *testing.T) {
	hub := NewHub(zap.NewNop())

	conn := dialTestHub(t, hub, "user-1")
	waitForUsers(t, hub, 1)

	hub.Publish(EventPickupDeleted, map[string]string{"pickupId": "pickup-1"}, "")

	msg := readMessage(t, conn)
	assert.Equal(t, EventPickupDeleted, msg.Event)
	assert.Equal(t, "global", msg.Channel)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestConnectedUsersCountsDistinctUsers(t *testing.T) {
	hub := NewHub(zap.NewNop())

	dialTestHub(t, hub, "user-1")
	dialTestHub(t, hub, "user-1")
	dialTestHub(t, hub, "user-2")
	waitForUsers(t, hub, 2)

	assert.Equal(t, 2, hub.ConnectedUsers())
}
