package websocket

import (
	"crypto/rand"
	"encoding/base64"
	"sync"

	"chatserver/internal/app/message"
	"chatserver/internal/app/room"
	"chatserver/internal/utils"

	"go.uber.org/zap"
)

// Hub owns every live connection and the room-channel membership map.
// The membership map is the only shared mutable structure in the
// process; all other state lives in the database.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[uint64]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	roomSvc  room.Service
	msgSvc   message.Service
	eventBus *utils.EventBus
	logger   *zap.SugaredLogger
}

func NewHub(
	logger *zap.Logger,
	roomSvc room.Service,
	msgSvc message.Service,
	eventBus *utils.EventBus,
) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[uint64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		roomSvc:    roomSvc,
		msgSvc:     msgSvc,
		eventBus:   eventBus,
		logger:     logger.Sugar(),
	}
}

func generateClientID() string {
	bytes := make([]byte, 6)
	if _, err := rand.Read(bytes); err != nil {
		return "xxxxx"
	}
	return base64.URLEncoding.EncodeToString(bytes)
}

// Run is the fan-out loop. Events arrive from the bus in the order
// services published them, which matches persistence commit order per
// room.
func (h *Hub) Run() {
	h.logger.Info("WebSocket Hub started")

	for {
		select {
		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case ev := <-h.eventBus.Events():
			h.fanOut(ev)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Infow("Client connected",
		"client_id", client.ID,
		"clients_count", count,
	)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for roomID, members := range h.rooms {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	count := len(h.clients)
	h.mu.Unlock()

	close(client.send)

	h.logger.Infow("Client disconnected",
		"client_id", client.ID,
		"clients_count", count,
	)
}

// JoinRoom subscribes a connection to a room channel. Callers handle
// the single-slot rule; the hub just tracks membership.
func (h *Hub) JoinRoom(client *Client, roomID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
}

func (h *Hub) LeaveRoom(client *Client, roomID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members := h.rooms[roomID]; members != nil {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// fanOut delivers one event to its audience: the whole server for
// global events, one room channel otherwise. Per-connection delivery
// is best effort; a slow or gone peer is skipped, never retried.
func (h *Hub) fanOut(ev utils.Event) {
	env := outbound{Event: ev.Name, Data: ev.Data}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if ev.Room == 0 {
		for client := range h.clients {
			h.deliver(client, ev, env)
		}
		return
	}

	for client := range h.rooms[ev.Room] {
		h.deliver(client, ev, env)
	}
}

func (h *Hub) deliver(client *Client, ev utils.Event, env outbound) {
	if ev.ExcludeID != "" && client.ID == ev.ExcludeID {
		return
	}
	select {
	case client.send <- env:
	default:
		h.logger.Warnw("Dropping event for slow client",
			"client_id", client.ID,
			"event", ev.Name,
		)
	}
}
