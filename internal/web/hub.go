package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

const (
	writeWait     = 10 * time.Second
	clientSendBuf = 4
	maxHubClients = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The REST layer already allows any origin; the feed follows suit.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// PriceHub fans a fresh asset snapshot out to websocket subscribers. The
// sync worker is the only producer; slow consumers are dropped rather
// than allowed to stall a broadcast.
type PriceHub struct {
	mu      sync.RWMutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

func NewPriceHub() *PriceHub {
	return &PriceHub{clients: make(map[*hubClient]struct{})}
}

// BroadcastPrices pushes the snapshot to every connected client.
func (h *PriceHub) BroadcastPrices(assets []models.Asset) {
	payload, err := marshalSnapshot(assets)
	if err != nil {
		logger.Warn("failed to encode price broadcast", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
			// Buffer full: the client is not keeping up.
			go h.drop(client)
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (h *PriceHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve upgrades the request and keeps the connection until either side
// closes it.
func (h *PriceHub) Serve(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	full := len(h.clients) >= maxHubClients
	h.mu.RUnlock()
	if full {
		http.Error(w, "too many subscribers", http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &hubClient{conn: conn, send: make(chan []byte, clientSendBuf)}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(client)
	go h.readLoop(client)
}

func (h *PriceHub) writeLoop(client *hubClient) {
	for payload := range client.send {
		client.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.drop(client)
			return
		}
	}
}

// readLoop discards inbound frames; its job is noticing the close.
func (h *PriceHub) readLoop(client *hubClient) {
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			h.drop(client)
			return
		}
	}
}

func (h *PriceHub) drop(client *hubClient) {
	h.mu.Lock()
	_, present := h.clients[client]
	if present {
		delete(h.clients, client)
		close(client.send)
	}
	h.mu.Unlock()

	if present {
		client.conn.Close()
	}
}

func marshalSnapshot(assets []models.Asset) ([]byte, error) {
	type frame struct {
		Type   string         `json:"type"`
		Assets []models.Asset `json:"assets"`
	}
	return json.Marshal(frame{Type: "prices", Assets: assets})
}
