package services

import (
	"sync"

	"sacco-hub/internal/pkg/logger"
)

// Event is one server-sent event
type Event struct {
	Name    string      `json:"event"`
	GroupID uint        `json:"group_id,omitempty"`
	Data    interface{} `json:"data"`
}

// Subscriber is one connected stream. GroupID 0 means a personal
// notification stream for MemberID.
type Subscriber struct {
	ID       string
	MemberID uint
	GroupID  uint
	Channel  chan Event
}

// EventHub fans out chat messages and notifications to open streams
type EventHub struct {
	mu      sync.RWMutex
	clients map[string]*Subscriber
}

// NewEventHub creates a new hub
func NewEventHub() *EventHub {
	return &EventHub{
		clients: make(map[string]*Subscriber),
	}
}

// Register adds a subscriber
func (h *EventHub) Register(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[sub.ID] = sub
	logger.L().Debugw("📡 stream registered", "id", sub.ID, "member", sub.MemberID, "group", sub.GroupID, "total", len(h.clients))
}

// Unregister removes a subscriber and closes its channel
func (h *EventHub) Unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.clients[id]; ok {
		close(sub.Channel)
		delete(h.clients, id)
		logger.L().Debugw("📡 stream unregistered", "id", id, "total", len(h.clients))
	}
}

// BroadcastToGroup sends an event to every stream watching a group
func (h *EventHub) BroadcastToGroup(groupID uint, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event.GroupID = groupID
	sent := 0
	for _, sub := range h.clients {
		if sub.GroupID != groupID {
			continue
		}
		select {
		case sub.Channel <- event:
			sent++
		default:
			logger.L().Warnw("⚠️ stream channel full, skipping", "id", sub.ID)
		}
	}
	return sent
}

// SendToMember sends an event to the member's personal streams
func (h *EventHub) SendToMember(memberID uint, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for _, sub := range h.clients {
		if sub.MemberID != memberID || sub.GroupID != 0 {
			continue
		}
		select {
		case sub.Channel <- event:
			sent++
		default:
			logger.L().Warnw("⚠️ stream channel full, skipping", "id", sub.ID)
		}
	}
	return sent
}

// ClientCount returns the number of open streams
func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
