package websocket

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrClientClosed is returned when attempting to send to a closed client
	ErrClientClosed = errors.New("client is closed")
	// ErrClientSlow is returned when a client was dropped for not keeping up
	ErrClientSlow = errors.New("client too slow")
)

// ClientInterface defines the interface that clients must implement
type ClientInterface interface {
	ID() string
	MemberID() uuid.UUID
	Send(data []byte) error
	Close() error
}

// Hub manages WebSocket connections organized by member.
// A member may hold several connections (one per open dashboard).
// It is safe for concurrent use.
type Hub struct {
	members map[uuid.UUID]map[string]ClientInterface
	mu      sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		members: make(map[uuid.UUID]map[string]ClientInterface),
	}
}

// Register adds a client to the hub under its member
func (h *Hub) Register(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	memberID := client.MemberID()
	if h.members[memberID] == nil {
		h.members[memberID] = make(map[string]ClientInterface)
	}
	h.members[memberID][client.ID()] = client

	log.Debug().
		Str("member_id", memberID.String()).
		Str("client_id", client.ID()).
		Msg("WebSocket client registered")
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	memberID := client.MemberID()
	clients, ok := h.members[memberID]
	if !ok {
		return
	}
	if _, exists := clients[client.ID()]; !exists {
		return
	}
	delete(clients, client.ID())
	if len(clients) == 0 {
		delete(h.members, memberID)
	}

	log.Debug().
		Str("member_id", memberID.String()).
		Str("client_id", client.ID()).
		Msg("WebSocket client unregistered")
}

// Broadcast sends an event to all connections of a member
func (h *Hub) Broadcast(memberID uuid.UUID, event Event) {
	data, err := event.ToJSON()
	if err != nil {
		log.Error().
			Err(err).
			Str("member_id", memberID.String()).
			Str("event_type", event.Type).
			Msg("Failed to serialize event")
		return
	}

	h.mu.RLock()
	clients, ok := h.members[memberID]
	if !ok || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy clients to avoid holding lock during send
	clientsCopy := make([]ClientInterface, 0, len(clients))
	for _, client := range clients {
		clientsCopy = append(clientsCopy, client)
	}
	h.mu.RUnlock()

	for _, client := range clientsCopy {
		go func(c ClientInterface) {
			if err := c.Send(data); err != nil {
				log.Warn().
					Err(err).
					Str("member_id", memberID.String()).
					Str("client_id", c.ID()).
					Msg("Failed to send to client")
			}
		}(client)
	}

	log.Debug().
		Str("member_id", memberID.String()).
		Str("event_type", event.Type).
		Int("client_count", len(clientsCopy)).
		Msg("Broadcast event")
}

// ClientCount returns the number of connections a member has open
func (h *Hub) ClientCount(memberID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.members[memberID])
}

// TotalClientCount returns the total number of connected clients
func (h *Hub) TotalClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.members {
		total += len(clients)
	}
	return total
}
