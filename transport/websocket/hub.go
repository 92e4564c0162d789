package websocket

import (
	"log/slog"
	"sync"
)

// Hub groups clients by room code. A client belongs to at most one group.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	groups  map[string]map[*Client]struct{}
	groupOf map[*Client]string
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "hub"),
		groups:  make(map[string]map[*Client]struct{}),
		groupOf: make(map[*Client]string),
	}
}

// Join moves the client into the room group, leaving its previous group.
func (that *Hub) Join(code string, client *Client) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if previous, ok := that.groupOf[client]; ok {
		if previous == code {
			return
		}
		that.remove(previous, client)
	}

	group, ok := that.groups[code]
	if !ok {
		group = make(map[*Client]struct{})
		that.groups[code] = group
	}

	group[client] = struct{}{}
	that.groupOf[client] = code
}

// Leave drops the client from its group and returns the group's code.
func (that *Hub) Leave(client *Client) string {
	that.mu.Lock()
	defer that.mu.Unlock()

	code, ok := that.groupOf[client]
	if !ok {
		return ""
	}

	that.remove(code, client)

	return code
}

// remove must be called with that.mu held.
func (that *Hub) remove(code string, client *Client) {
	delete(that.groupOf, client)

	group := that.groups[code]
	delete(group, client)

	if len(group) == 0 {
		delete(that.groups, code)
	}
}

// Broadcast queues data for every client in the group without blocking.
func (that *Hub) Broadcast(code string, data []byte) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for client := range that.groups[code] {
		if !client.enqueue(data) {
			that.logger.Warn("send buffer full, message dropped", "roomCode", code, "connectionID", client.ID)
		}
	}
}
