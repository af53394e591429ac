package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"spilledin/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

var (
	// ErrServerFull is returned when the global connection limit is reached.
	ErrServerFull = errors.New("server connection limit reached")
	// ErrUserLimit is returned when a user already holds maxConnsPerUser sockets.
	ErrUserLimit = errors.New("user connection limit reached")
	// ErrHubClosed is returned by Register after Shutdown.
	ErrHubClosed = errors.New("hub is shutting down")
)

// Hub maps companyID -> connected feed clients.
type Hub struct {
	mu         sync.RWMutex
	companies  map[uint]map[*Client]struct{}
	perUser    map[uint]int
	totalConns int
	closed     bool
	shutdown   sync.Once

	maxPerUser int
	maxTotal   int
}

// NewHub creates an empty feed hub.
func NewHub() *Hub {
	return &Hub{
		companies:  make(map[uint]map[*Client]struct{}),
		perUser:    make(map[uint]int),
		maxPerUser: maxConnsPerUser,
		maxTotal:   maxTotalConns,
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "feed hub" }

// Register adds a socket for userID to companyID's feed.
func (h *Hub) Register(companyID, userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if h.totalConns >= h.maxTotal {
		return nil, ErrServerFull
	}
	if h.perUser[userID] >= h.maxPerUser {
		return nil, ErrUserLimit
	}

	m, ok := h.companies[companyID]
	if !ok {
		m = make(map[*Client]struct{})
		h.companies[companyID] = m
	}

	client := NewClient(h, conn, userID, companyID)
	m[client] = struct{}{}
	h.perUser[userID]++
	h.totalConns++
	observability.WebSocketConnectionsTotal.Inc()

	return client, nil
}

// UnregisterClient removes a client. Calling it twice is a no-op.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	m, ok := h.companies[client.CompanyID]
	if !ok {
		return
	}
	if _, exists := m[client]; !exists {
		return
	}
	delete(m, client)
	if len(m) == 0 {
		delete(h.companies, client.CompanyID)
	}
	h.perUser[client.UserID]--
	if h.perUser[client.UserID] <= 0 {
		delete(h.perUser, client.UserID)
	}
	h.totalConns--
	observability.WebSocketConnectionsTotal.Dec()
}

// BroadcastCompany sends message to every socket in companyID's feed and
// returns how many clients accepted it.
func (h *Hub) BroadcastCompany(companyID uint, message string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	data := []byte(message)
	for c := range h.companies[companyID] {
		if c.TrySend(data) {
			delivered++
		}
	}
	return delivered
}

// ConnectionCount returns the number of registered sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalConns
}

// StartWiring connects the Notifier to this hub: messages on
// feed:company:<id> are forwarded to that company's sockets.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartFeedSubscriber(ctx, func(channel, payload string) {
		companyID, ok := ParseCompanyChannel(channel)
		if !ok {
			log.Printf("invalid feed channel: %s", channel)
			return
		}
		h.BroadcastCompany(companyID, payload)
	})
}

// Shutdown asks every socket to close and rejects new registrations.
func (h *Hub) Shutdown(_ context.Context) error {
	h.shutdown.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.closed = true

		// Each client's WritePump sends the close frame; the hub never writes
		// to a socket itself.
		for _, clients := range h.companies {
			for client := range clients {
				client.Close()
			}
		}
		observability.WebSocketConnectionsTotal.Sub(float64(h.totalConns))
		h.companies = make(map[uint]map[*Client]struct{})
		h.perUser = make(map[uint]int)
		h.totalConns = 0
	})
	return nil
}
