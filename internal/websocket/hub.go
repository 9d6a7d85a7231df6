package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gridiron-sim/pkg/logger"
	"github.com/stitts-dev/gridiron-sim/pkg/utils"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

const (
	MessageTypeProgress = "simulation_progress"
	MessageTypeComplete = "simulation_complete"
	MessageTypeFailed   = "simulation_failed"
)

// ProgressMessage reports how far a running simulation has got
type ProgressMessage struct {
	Type         string  `json:"type"`
	SimulationID string  `json:"simulation_id"`
	Completed    int     `json:"completed"`
	Total        int     `json:"total"`
	Progress     float64 `json:"progress"`
}

// StatusMessage announces that a simulation finished or failed
type StatusMessage struct {
	Type         string `json:"type"`
	SimulationID string `json:"simulation_id"`
	DurationMS   int64  `json:"duration_ms,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Client is one websocket connection subscribed under a client id
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
	Hub  *Hub
}

// Hub tracks progress subscribers by client id. Several connections may
// share an id; each receives every message for it.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     *logrus.Logger
	mutex      sync.RWMutex
}

// NewHub creates a hub. An empty origin list accepts every origin.
func NewHub(log *logrus.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger.OrDefault(log),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin] || set["*"]
	}
}

// Run handles registration until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.ID] == nil {
				h.clients[client.ID] = make(map[*Client]struct{})
			}
			h.clients[client.ID][client] = struct{}{}
			total := h.countLocked()
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"client_id":     client.ID,
				"total_clients": total,
			}).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.mutex.Lock()
			h.removeLocked(client)
			total := h.countLocked()
			h.mutex.Unlock()

			h.logger.WithFields(logrus.Fields{
				"client_id":     client.ID,
				"total_clients": total,
			}).Info("WebSocket client disconnected")

		case <-ctx.Done():
			h.mutex.Lock()
			for _, set := range h.clients {
				for client := range set {
					h.removeLocked(client)
				}
			}
			h.mutex.Unlock()
			return
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.ID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.Send)
	if len(set) == 0 {
		delete(h.clients, client.ID)
	}
}

func (h *Hub) countLocked() int {
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// HandleWebSocket upgrades GET /ws/simulation-progress/:client_id
func (h *Hub) HandleWebSocket(c *gin.Context) {
	clientID := c.Param("client_id")
	if clientID == "" {
		utils.SendValidationError(c, "Invalid client ID", "client_id is required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := &Client{
		ID:   clientID,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
		Hub:  h,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// SendToClient delivers a message to every connection under clientID.
// A connection whose buffer is full misses the message.
func (h *Hub) SendToClient(clientID string, message interface{}) {
	if clientID == "" {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.WithError(err).Error("Failed to marshal WebSocket message")
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()
	for client := range h.clients[clientID] {
		select {
		case client.Send <- data:
		default:
			h.logger.WithField("client_id", clientID).Debug("WebSocket send buffer full, dropping message")
		}
	}
}

func (h *Hub) SendProgress(clientID, simulationID string, completed, total int) {
	var progress float64
	if total > 0 {
		progress = float64(completed) / float64(total)
	}
	h.SendToClient(clientID, ProgressMessage{
		Type:         MessageTypeProgress,
		SimulationID: simulationID,
		Completed:    completed,
		Total:        total,
		Progress:     progress,
	})
}

func (h *Hub) SendComplete(clientID, simulationID string, duration time.Duration) {
	h.SendToClient(clientID, StatusMessage{
		Type:         MessageTypeComplete,
		SimulationID: simulationID,
		DurationMS:   duration.Milliseconds(),
	})
}

func (h *Hub) SendFailed(clientID, simulationID string, err error) {
	h.SendToClient(clientID, StatusMessage{
		Type:         MessageTypeFailed,
		SimulationID: simulationID,
		Error:        err.Error(),
	})
}

// ConnectionCount returns the total number of active connections
func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.countLocked()
}

// IsConnected reports whether any connection is subscribed under clientID
func (h *Hub) IsConnected(clientID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[clientID]) > 0
}

// readPump drains the connection so control frames are processed, and
// unregisters the client when the peer goes away.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(512)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.WithError(err).Error("WebSocket error")
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Hub.logger.WithError(err).Error("Failed to write WebSocket message")
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
