// Package stream рассылает аномалии анализатора подписчикам по websocket.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nestor-insights/internal/models"
)

// Event сообщение подписчику
type Event struct {
	UserID  string               `json:"userId"`
	ZScore  float64              `json:"zScore"`
	Anomaly models.AnomalyResult `json:"anomaly"`
}

// Config параметры рассылки
type Config struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	BufferSize   int
	Logger       *zap.Logger
}

// Hub список подключенных клиентов. Медленный клиент с заполненным буфером отключается.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	cfg      Config
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID string
	once   sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.send) })
}

// NewHub создает хаб
func NewHub(cfg Config) *Hub {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Hub{
		clients: make(map[*client]struct{}),
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: cfg.Logger,
	}
}

// ServeHTTP подключает клиента. Параметр user_id ограничивает поток одним пользователем.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan []byte, h.cfg.BufferSize),
		userID: r.URL.Query().Get("user_id"),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("stream client connected", zap.String("user_id", c.userID))

	go h.writeLoop(c)
	h.readLoop(c)
}

// readLoop читает до ошибки, входящие сообщения игнорируются
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.stop()
	if ok {
		h.logger.Debug("stream client disconnected", zap.String("user_id", c.userID))
	}
}

// Publish рассылает событие подписчикам. Возвращает число клиентов, получивших его.
func (h *Hub) Publish(e Event) int {
	data, err := json.Marshal(e)
	if err != nil {
		h.logger.Error("failed to marshal stream event", zap.Error(err))
		return 0
	}

	var slow []*client
	delivered := 0

	h.mu.RLock()
	for c := range h.clients {
		if c.userID != "" && c.userID != e.UserID {
			continue
		}
		select {
		case c.send <- data:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("evicting slow stream client", zap.String("user_id", c.userID))
		h.remove(c)
	}
	return delivered
}

// Clients число подключенных клиентов
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close отключает всех клиентов и запрещает новые подключения
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
}
