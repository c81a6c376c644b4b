package server

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/lox/pokerrooms/internal/protocol"
	"github.com/lox/pokerrooms/internal/room"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection is one websocket client. Its requests run through a
// room.Session; its outbound queue carries responses and that session's
// updates.
type Connection struct {
	conn      *websocket.Conn
	session   *room.Session
	send      chan *protocol.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, registry *room.Registry, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.WithPrefix("conn").With("remote", conn.RemoteAddr().String())
	return &Connection{
		conn:    conn,
		session: room.NewSession(registry, logger),
		send:    make(chan *protocol.Message, 64),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.forwardUpdates()
	go c.readPump()
}

// Done is closed when the connection ends.
func (c *Connection) Done() <-chan struct{} { return c.ctx.Done() }

// Close closes the connection. The player's seat is kept and flagged
// disconnected.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		c.session.Close()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues msg for the write pump.
func (c *Connection) SendMessage(msg *protocol.Message) error {
	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg protocol.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

func (c *Connection) forwardUpdates() {
	for u := range c.session.Updates() {
		msg, err := protocol.EncodeUpdate(u)
		if err != nil {
			c.logger.Error("Failed to encode update", "error", err)
			continue
		}
		if err := c.SendMessage(msg); err != nil {
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *protocol.Message) {
	c.logger.Debug("Received message", "type", msg.Type)

	req, err := protocol.DecodeRequest(msg)
	if err != nil {
		c.sendResponse(protocol.Response{
			RequestID: msg.RequestID,
			Type:      msg.Type,
			Error:     &protocol.Error{Code: "invalid_message", Message: err.Error()},
		})
		return
	}

	resp := c.session.Handle(c.ctx, req)
	if !resp.Success {
		c.logger.Debug("Request rejected", "type", req.Type, "code", resp.Error.Code)
	}
	c.sendResponse(resp)
}

func (c *Connection) sendResponse(resp protocol.Response) {
	msg, err := protocol.EncodeResponse(resp)
	if err != nil {
		c.logger.Error("Failed to create response message", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}
