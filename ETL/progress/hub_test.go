package progress

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/remotework_health_etl/ETL/models"
	"github.com/LilVoxy/remotework_health_etl/ETL/utils"
)

func startHub(t *testing.T) (*Hub, string, context.CancelFunc) {
	t.Helper()
	hub := NewHub(utils.NewETLLoggerWithWriter(&bytes.Buffer{}, true))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		cancel()
		server.Close()
	})
	return hub, "ws" + strings.TrimPrefix(server.URL, "http"), cancel
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcastsEvents(t *testing.T) {
	hub, url, _ := startHub(t)

	first := dial(t, url)
	second := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(models.ProgressEvent{RunID: "run-1", Stage: "extract", Status: models.StatusStarted})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var event models.ProgressEvent
		require.NoError(t, conn.ReadJSON(&event))
		assert.Equal(t, "run-1", event.RunID)
		assert.Equal(t, "extract", event.Stage)
		assert.Equal(t, models.StatusStarted, event.Status)
		assert.False(t, event.Time.IsZero())
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, url, _ := startHub(t)

	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	hub, url, cancel := startHub(t)

	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// После остановки публикация не блокируется
	done := make(chan struct{})
	go func() {
		hub.Publish(models.ProgressEvent{Stage: "load"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after shutdown")
	}
}
