package server

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

// Hub maintains the set of identified gateway clients and broadcasts
// dispatches to every client subscribed to a server
type Hub struct {
	// Clients by server ID
	serverClients map[uuid.UUID]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}

	mu sync.RWMutex

	sequence int64
	seqMu    sync.Mutex

	clientsGauge prometheus.Gauge
}

// BroadcastMessage represents a dispatch for every client of a server
type BroadcastMessage struct {
	ServerID uuid.UUID
	Message  *protocol.Message
}

// NewHub creates a new Hub. gauge tracks the number of identified clients
// and may be nil.
func NewHub(gauge prometheus.Gauge) *Hub {
	return &Hub{
		serverClients: make(map[uuid.UUID]map[*Client]struct{}),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		broadcast:     make(chan *BroadcastMessage, 256),
		done:          make(chan struct{}),
		clientsGauge:  gauge,
	}
}

// Run processes registrations and broadcasts until ctx is done
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.registerClient(ctx, client)

		case client := <-h.unregister:
			h.unregisterClient(ctx, client)

		case msg := <-h.broadcast:
			h.broadcastMessage(ctx, msg)
		}
	}
}

// Register subscribes client to its server. It returns false once the hub
// has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client. It is a no-op once the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.serverClients[client.ServerID] == nil {
		h.serverClients[client.ServerID] = make(map[*Client]struct{})
	}
	h.serverClients[client.ServerID][client] = struct{}{}
	h.updateGauge()

	logging.From(ctx).Info("gateway client registered",
		"server_id", client.ServerID, "user_id", client.UserID, "session_id", client.SessionID)
}

func (h *Hub) unregisterClient(ctx context.Context, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.serverClients[client.ServerID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	if len(clients) == 0 {
		delete(h.serverClients, client.ServerID)
	}
	h.updateGauge()

	logging.From(ctx).Info("gateway client unregistered", "session_id", client.SessionID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for serverID, clients := range h.serverClients {
		for client := range clients {
			client.conn.Close()
		}
		delete(h.serverClients, serverID)
	}
	h.updateGauge()
}

// updateGauge must be called with mu held
func (h *Hub) updateGauge() {
	if h.clientsGauge == nil {
		return
	}
	n := 0
	for _, clients := range h.serverClients {
		n += len(clients)
	}
	h.clientsGauge.Set(float64(n))
}

func (h *Hub) broadcastMessage(ctx context.Context, msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.serverClients[msg.ServerID] {
		if !client.enqueue(msg.Message) {
			logging.From(ctx).Warn("client buffer full, dropping dispatch",
				"session_id", client.SessionID, "type", msg.Message.Type)
		}
	}
}

// NextSequence returns the next sequence number for dispatch messages
func (h *Hub) NextSequence() int64 {
	h.seqMu.Lock()
	defer h.seqMu.Unlock()
	h.sequence++
	return h.sequence
}

// ClientCount returns the number of identified clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clients := range h.serverClients {
		n += len(clients)
	}
	return n
}

// BroadcastToServer queues a dispatch for every client of a server. The
// dispatch is dropped when the queue is full.
func (h *Hub) BroadcastToServer(ctx context.Context, serverID uuid.UUID, eventType protocol.EventType, data any) error {
	msg, err := protocol.NewDispatch(eventType, h.NextSequence(), data)
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{ServerID: serverID, Message: msg}:
	default:
		logging.From(ctx).Warn("broadcast queue full, dropping dispatch",
			"server_id", serverID, "type", eventType)
	}
	return nil
}
