package events

import (
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Hub tracks websocket connections per user and room membership, and
// implements Emitter over them. A user may hold several connections
// (multiple tabs); every one receives the event.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]bool
	rooms map[string]map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]map[*websocket.Conn]bool),
		rooms: make(map[string]map[string]bool),
	}
}

// Serve registers the connection and blocks reading until the client
// goes away. Inbound frames are ignored; all game traffic goes through
// the HTTP API.
func (h *Hub) Serve(userID string, c *websocket.Conn) {
	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]bool)
	}
	h.conns[userID][c] = true
	h.mu.Unlock()
	log.Printf("🔌 ws connected user=%s", userID)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.conns[userID], c)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
	log.Printf("🔌 ws disconnected user=%s", userID)
}

func (h *Hub) JoinRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]bool)
	}
	h.rooms[roomID][userID] = true
}

func (h *Hub) LeaveRoom(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms[roomID], userID)
	if len(h.rooms[roomID]) == 0 {
		delete(h.rooms, roomID)
	}
}

func (h *Hub) DropRoom(roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomID)
}

func (h *Hub) ToUser(userID, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.send(userID, Envelope{Event: event, Payload: payload})
}

func (h *Hub) ToRoom(roomID, event string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	env := Envelope{Event: event, Payload: payload}
	for userID := range h.rooms[roomID] {
		h.send(userID, env)
	}
}

// send writes to every live connection of the user; callers hold h.mu.
// Write errors drop the connection on its next read.
func (h *Hub) send(userID string, env Envelope) {
	for c := range h.conns[userID] {
		if err := c.WriteJSON(env); err != nil {
			log.Printf("ws write failed user=%s: %v", userID, err)
		}
	}
}
