package server

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paddocktools/paddock/session"
)

func TestHub_PublishToClient(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	ts := httptest.NewServer(hub)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a moment to register the client
	deadline := time.Now().Add(5 * time.Second)
	event := session.Event{
		Topic:     session.DataTopic("s1"),
		SessionID: "s1",
		AgentID:   "agent-1",
		Data:      "hello",
	}

	var got session.Event
	for {
		hub.Publish(event)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		if err := conn.ReadJSON(&got); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for event")
		}
	}

	assert.Equal(t, event, got)
}

func TestHub_PublishWithoutClients(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	// Publishing with no subscribers must not block or panic
	hub.Publish(session.Event{Topic: session.ExitTopic("s1"), SessionID: "s1", ExitCode: 0})
}
