package stream

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestor-insights/internal/models"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Clients() == n }, 2*time.Second, 10*time.Millisecond)
}

func event(user string, value float64) Event {
	return Event{
		UserID:  user,
		ZScore:  2.5,
		Anomaly: models.AnomalyResult{Metric: models.MetricHeartRate, Severity: models.SeverityMedium, Value: value},
	}
}

func TestHub_PublishFiltersByUser(t *testing.T) {
	h := NewHub(Config{})
	server := httptest.NewServer(h)
	defer server.Close()
	defer h.Close()

	all := dial(t, server, "")
	defer all.Close()
	onlyU2 := dial(t, server, "?user_id=u2")
	defer onlyU2.Close()
	waitClients(t, h, 2)

	assert.Equal(t, 1, h.Publish(event("u1", 150)))
	assert.Equal(t, 2, h.Publish(event("u2", 160)))

	var got Event
	all.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := all.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 150.0, got.Anomaly.Value)

	onlyU2.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err = onlyU2.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "u2", got.UserID)
}

func TestHub_ClientDisconnect(t *testing.T) {
	h := NewHub(Config{})
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server, "")
	waitClients(t, h, 1)

	conn.Close()
	waitClients(t, h, 0)
	assert.Equal(t, 0, h.Publish(event("u1", 1)))
}

func TestHub_EvictsSlowClient(t *testing.T) {
	h := NewHub(Config{BufferSize: 1})
	c := &client{send: make(chan []byte, 1), userID: "u1"}
	h.clients[c] = struct{}{}

	assert.Equal(t, 1, h.Publish(event("u1", 1)))
	assert.Equal(t, 0, h.Publish(event("u1", 2)))
	assert.Equal(t, 0, h.Clients())

	_, open := <-c.send
	assert.True(t, open)
	_, open = <-c.send
	assert.False(t, open)
}

func TestHub_CloseRejectsNewClients(t *testing.T) {
	h := NewHub(Config{})
	server := httptest.NewServer(h)
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()
	waitClients(t, h, 1)

	h.Close()
	assert.Equal(t, 0, h.Clients())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	late := dial(t, server, "")
	defer late.Close()
	assert.Equal(t, 0, h.Clients())
}
