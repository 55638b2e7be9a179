package websocket

import "sync"

// Conn is the subset of *gorilla/websocket.Conn the registry needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client wraps one live connection. ClientID is the stable identity the
// peer presented; ConnID distinguishes successive connections from the
// same client so stale drops can be told apart from the current socket.
type Client struct {
	ClientID string
	ConnID   string
	Conn     Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(clientID, connID string, conn Conn) *Client {
	return &Client{
		ClientID: clientID,
		ConnID:   connID,
		Conn:     conn,
		send:     make(chan []byte, 32),
	}
}

// Outbox is the channel the write pump drains. It is closed by Shutdown.
func (c *Client) Outbox() <-chan []byte {
	return c.send
}

// TrySend queues a payload without blocking. Returns false when the
// connection is already shut down or the buffer is full.
func (c *Client) TrySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Shutdown closes the socket and the send channel exactly once, letting
// the write pump drain and exit.
func (c *Client) Shutdown() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.Conn.Close()
}
