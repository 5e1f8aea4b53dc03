// Package stream pushes freshly computed estimates to WebSocket subscribers.
package stream

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/navwatch/internal/common"
	"github.com/bobmcallan/navwatch/internal/interfaces"
	"github.com/bobmcallan/navwatch/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Update is the message sent to subscribers, formatted like /api/valuation.
type Update struct {
	Type       string `json:"type"`
	Code       string `json:"code"`
	Name       string `json:"name"`
	LastNAV    string `json:"last_nav"`
	EstNAV     string `json:"est_nav"`
	EstRate    string `json:"est_rate"`
	UpdateTime string `json:"update_time"`
}

// Hub fans estimates out to connected clients. Each client may restrict
// itself to a set of fund codes.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan models.EstimateResult
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	location   *time.Location
	logger     *common.Logger
}

type client struct {
	hub   *Hub
	conn  *websocket.Conn
	send  chan []byte
	codes map[string]bool // nil subscribes to every code
}

// NewHub creates a hub. Call Run in its own goroutine before serving clients.
func NewHub(loc *time.Location, logger *common.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan models.EstimateResult, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		location:   loc,
		logger:     logger,
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", n).Msg("Stream client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug().Int("clients", n).Msg("Stream client disconnected")

		case r := <-h.broadcast:
			h.deliver(r)
		}
	}
}

func (h *Hub) deliver(r models.EstimateResult) {
	data, err := json.Marshal(h.updateFor(r))
	if err != nil {
		h.logger.Warn().Err(err).Str("code", r.Code).Msg("Failed to marshal stream update")
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if c.codes != nil && !c.codes[r.Code] {
			continue
		}
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		}
		h.mu.Unlock()
		h.logger.Warn().Int("dropped", len(slow)).Msg("Dropped slow stream clients")
	}
}

func (h *Hub) updateFor(r models.EstimateResult) Update {
	return Update{
		Type:       "estimate",
		Code:       r.Code,
		Name:       r.Name,
		LastNAV:    common.FormatNAV(r.BaselineNAV),
		EstNAV:     common.FormatNAV(r.EstimatedNAV),
		EstRate:    common.FormatRate(r.RatePercent()),
		UpdateTime: common.FormatExchangeTime(r.ComputedAt, h.location),
	}
}

// Publish queues an estimate for delivery. It never blocks; when the queue is
// full the estimate is dropped.
func (h *Hub) Publish(r models.EstimateResult) {
	select {
	case h.broadcast <- r:
	default:
		h.logger.Warn().Str("code", r.Code).Msg("Stream broadcast queue full, dropping estimate")
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ParseCodes reads a comma-separated code list. Invalid entries are ignored;
// nil means no filter.
func ParseCodes(raw string) map[string]bool {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	codes := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		if c := strings.TrimSpace(part); codePattern.MatchString(c) {
			codes[c] = true
		}
	}
	return codes
}

// ServeWS upgrades the request and subscribes the connection. The optional
// codes query parameter limits updates to those funds.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	codes := ParseCodes(r.URL.Query().Get("codes"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Stream upgrade failed")
		return
	}

	c := &client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, sendBuffer),
		codes: codes,
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// readPump only watches for the peer going away.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var _ interfaces.EstimatePublisher = (*Hub)(nil)
