// Package live pushes game snapshots and notices to websocket subscribers.
package live

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/caseclash/backend/internal/battle"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks connected clients and fans game events out to them. Sends never
// block: a client whose buffer is full misses the message and catches up on
// the next snapshot.
type Hub struct {
	log *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}
	byUser  map[string]map[*Client]struct{}
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log:     log,
		clients: make(map[*Client]struct{}),
		byUser:  make(map[string]map[*Client]struct{}),
	}
}

// HandleWS upgrades an HTTP request and registers the connection. userID may
// be empty for anonymous spectators; they receive public broadcasts only.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	c := &Client{
		userID: userID,
		conn:   conn,
		hub:    h,
		send:   make(chan []byte, 32),
	}
	h.register(c)
	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if c.userID != "" {
		if h.byUser[c.userID] == nil {
			h.byUser[c.userID] = make(map[*Client]struct{})
		}
		h.byUser[c.userID][c] = struct{}{}
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if c.userID != "" {
		delete(h.byUser[c.userID], c)
		if len(h.byUser[c.userID]) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	c.Close()
}

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// BroadcastGame pushes a game snapshot to subscribers. Private games reach
// only their participants; public games reach every connected client.
func (h *Hub) BroadcastGame(snap battle.GameSnapshot, event string) {
	view := ViewGame(snap, true)
	msg, err := json.Marshal(envelope{Event: event, Payload: view})
	if err != nil {
		h.log.Error("marshal broadcast failed", zap.String("event", event), zap.Error(err))
		return
	}

	if snap.Options.Private {
		seen := make(map[string]bool)
		for _, b := range snap.Bets {
			if b.Bot || b.UserID == "" || seen[b.UserID] {
				continue
			}
			seen[b.UserID] = true
			h.sendToUser(b.UserID, msg)
		}
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(msg)
	}
}

// NotifyUser pushes a targeted notice to every connection a user holds.
func (h *Hub) NotifyUser(userID, event string, payload interface{}) {
	msg, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		h.log.Error("marshal notify failed", zap.String("event", event), zap.Error(err))
		return
	}
	h.sendToUser(userID, msg)
}

func (h *Hub) sendToUser(userID string, msg []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.trySend(msg)
	}
}
