package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512

	// queueSize bounds the events buffered for one dashboard
	queueSize = 256
)

// Subscriber is the member a connection receives events for
type Subscriber struct {
	MemberID uuid.UUID `json:"memberId"`
	GroupID  uuid.UUID `json:"groupId"`
	Admin    bool      `json:"admin"`
	Active   bool      `json:"-"`
}

// Client is one dashboard connection. Events for its member are queued by
// the hub and written in order; the dashboard never sends anything besides
// control frames.
type Client struct {
	id     string
	sub    Subscriber
	conn   *websocket.Conn
	hub    *Hub
	queue  chan []byte
	logger zerolog.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewClient creates a client for an upgraded connection
func NewClient(conn *websocket.Conn, sub Subscriber, hub *Hub) *Client {
	id := uuid.New().String()
	return &Client{
		id:    id,
		sub:   sub,
		conn:  conn,
		hub:   hub,
		queue: make(chan []byte, queueSize),
		logger: log.With().
			Str("client_id", id).
			Str("member_id", sub.MemberID.String()).
			Str("group_id", sub.GroupID.String()).
			Logger(),
	}
}

// ID returns the connection identifier
func (c *Client) ID() string {
	return c.id
}

// MemberID returns the member the connection belongs to
func (c *Client) MemberID() uuid.UUID {
	return c.sub.MemberID
}

// Subscriber returns who the connection delivers events for
func (c *Client) Subscriber() Subscriber {
	return c.sub
}

// Start registers the client with the hub, queues the session.ready frame
// and runs the connection loops until the peer goes away.
func (c *Client) Start() {
	c.hub.Register(c)
	if data, err := SessionReady(c.sub).ToJSON(); err == nil {
		c.queue <- data
	}
	go c.writeLoop()
	go c.readLoop()
}

// Send queues an event. A dashboard whose queue is full is disconnected and
// refetches its state when it reconnects.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClientClosed
	}
	select {
	case c.queue <- data:
		c.mu.RUnlock()
		return nil
	default:
	}
	c.mu.RUnlock()

	c.logger.Warn().Msg("WebSocket queue full, disconnecting")
	c.Close()
	return ErrClientSlow
}

// Close shuts the connection. Safe to call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.queue)
		c.mu.Unlock()

		err = c.conn.Close()
	})
	return err
}

// IsClosed reports whether Close has run
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// readLoop keeps the read deadline fresh from pongs and ends the session
// when the peer disconnects
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("WebSocket unexpected close")
			}
			return
		}
	}
}

// writeLoop drains the queue onto the connection and pings on idle
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case data, ok := <-c.queue:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
