// Package websocket maintains the clientID -> live connection registry.
// Rooms never own sockets; every send is routed through here by stable
// client identity, which is what makes reconnection transparent to the
// game core.
package websocket

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Bind makes the client the current connection for its clientID. A
// previous connection for the same identity is shut down: one socket
// per client, the newest wins.
func (r *Registry) Bind(c *Client) {
	r.mu.Lock()
	prev := r.clients[c.ClientID]
	r.clients[c.ClientID] = c
	r.mu.Unlock()

	if prev != nil {
		prev.Shutdown()
		r.log.Debug().Str("client", c.ClientID).Msg("replaced previous connection")
	}
}

// Release unbinds the connection, but only if it is still the current
// one for that clientID. Returns whether the release happened, so the
// caller knows if this drop means the client actually went away.
func (r *Registry) Release(clientID, connID string) bool {
	r.mu.Lock()
	c, ok := r.clients[clientID]
	if !ok || c.ConnID != connID {
		r.mu.Unlock()
		return false
	}
	delete(r.clients, clientID)
	r.mu.Unlock()

	c.Shutdown()
	return true
}

func (r *Registry) Get(clientID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[clientID]
	return c, ok
}

// Send queues a payload for the client's current connection. A full
// send buffer drops the payload rather than blocking game logic.
func (r *Registry) Send(clientID string, payload []byte) bool {
	r.mu.RLock()
	c, ok := r.clients[clientID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	if !c.TrySend(payload) {
		r.log.Warn().Str("client", clientID).Msg("send buffer full or closed, dropping event")
		return false
	}
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
