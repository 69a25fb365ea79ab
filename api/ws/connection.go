package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stedixon/KafkaChat/internal/domain"
	"github.com/stedixon/KafkaChat/internal/hub"
	"github.com/stedixon/KafkaChat/pkg/logger"
	"github.com/stedixon/KafkaChat/service"
)

// Connection terminates one duplex client connection bound to a single
// room. It owns its session for the whole connection lifetime: registered
// with the hub on open, unregistered exactly once on close.
type Connection struct {
	session *hub.Session
	hub     *hub.Hub
	ws      *websocket.Conn
	send    chan domain.Frame
	svc     service.ChatService
	ctx     context.Context
	log     logger.Logger

	userID   string
	username string
	roomID   string

	mu     sync.Mutex
	closed bool
}

func newConnection(ctx context.Context, h *hub.Hub, svc service.ChatService, wsConn *websocket.Conn, roomID, userID, username string, log logger.Logger) *Connection {
	c := &Connection{
		hub:      h,
		ws:       wsConn,
		send:     make(chan domain.Frame, 256),
		svc:      svc,
		ctx:      ctx,
		log:      log,
		userID:   userID,
		username: username,
		roomID:   roomID,
	}
	c.session = &hub.Session{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Transport: c,
	}
	return c
}

// WriteFrame implements hub.Transport. It never blocks the hub: a full
// send buffer counts as a failed write, which the hub treats as an
// implicit disconnect.
func (c *Connection) WriteFrame(frame domain.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("session %s is closed", c.session.ID)
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return fmt.Errorf("session %s send buffer full", c.session.ID)
	}
}

// Close implements hub.Transport. Safe to call more than once.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	return c.ws.Close()
}

// run registers the session and starts both pumps. Registration happens
// before the pumps so teardown always observes a registered session.
func (c *Connection) run() {
	c.hub.Register(c.session)
	go c.writePump()
	go c.readPump()
}

// readPump reads client frames until the transport fails or closes. The
// room and sender of an inbound frame are stamped server-side from the
// connection's binding; the client-sent values are never trusted.
func (c *Connection) readPump() {
	defer c.teardown()

	for {
		var frame domain.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			c.log.Debugf("session %s read ended: %v", c.session.ID, err)
			return
		}

		if _, err := c.svc.SendMessage(c.ctx, c.roomID, c.userID, frame.Message); err != nil {
			c.log.Errorf("session %s failed to send message: %v", c.session.ID, err)
		}
	}
}

// writePump drains the send channel onto the wire. A write error is fatal
// to this endpoint only.
func (c *Connection) writePump() {
	for frame := range c.send {
		if err := c.ws.WriteJSON(frame); err != nil {
			c.log.Debugf("session %s write ended: %v", c.session.ID, err)
			break
		}
	}
	c.ws.Close()
}

func (c *Connection) teardown() {
	c.hub.Unregister(c.session)
	c.Close()
}
