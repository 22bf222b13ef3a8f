package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
)

// racingHandler publishes an event for the course while the connection is being greeted and
// waits until the dispatcher has picked it up.
type racingHandler struct {
	cm *ConnectionManager
}

func (h *racingHandler) HandleConnect(c *Connection) any {
	h.cm.Publish(c.Course, round.Event{
		Type:    round.EventPresenceChanged,
		Course:  c.Course,
		Version: 8,
		Data:    round.PresenceChangedData{Players: models.PresenceList{}},
	})
	deadline := time.Now().Add(time.Second)
	for len(h.cm.broadcastCh) > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return ConnectedMessage{Type: MessageTypeConnected, ConnectionID: c.ID, Course: c.Course, Version: 7}
}

func (h *racingHandler) HandleMessage(*Connection, []byte) {}

func (h *racingHandler) HandleDisconnect(*Connection) {}

func TestEventsDuringGreetingAreDelivered(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go cm.Start(ctx)

	handler := &racingHandler{cm: cm}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := cm.UpgradeConnection(w, r, "highlandgreens", "", handler)
		assert.NoError(t, err)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	type frame struct {
		Type    string `json:"type"`
		Version uint64 `json:"version"`
	}
	read := func() frame {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		return f
	}

	first := read()
	assert.Equal(t, MessageTypeConnected, first.Type)
	second := read()
	assert.Equal(t, string(round.EventPresenceChanged), second.Type)
	assert.Equal(t, uint64(8), second.Version)
}
