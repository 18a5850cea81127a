package server

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/hearth-chat/hearth/pkg/crypto"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Size of client send buffer
	sendBufferSize = 256

	// Heartbeat interval sent to client
	heartbeatInterval = 45000 // 45 seconds in milliseconds
)

// Client is one gateway connection. After a successful identify it
// receives the dispatches of a single server.
type Client struct {
	conn *websocket.Conn
	srv  *Server

	// Buffered channel of outbound messages; never closed
	send chan *protocol.Message
	// Closed when the read side ends
	closed chan struct{}

	ServerID  uuid.UUID
	UserID    uuid.UUID
	SessionID string

	identified bool
}

// NewClient creates a new client instance
func NewClient(conn *websocket.Conn, srv *Server) *Client {
	return &Client{
		conn:      conn,
		srv:       srv,
		send:      make(chan *protocol.Message, sendBufferSize),
		closed:    make(chan struct{}),
		SessionID: uuid.NewString(),
	}
}

// enqueue queues msg for the write pump. It returns false when the buffer
// is full or the connection is gone.
func (c *Client) enqueue(msg *protocol.Message) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ReadPump reads gateway messages until the connection fails
func (c *Client) ReadPump(ctx context.Context) {
	logger := logging.From(ctx).With("session_id", c.SessionID)
	defer func() {
		if c.identified {
			c.srv.hub.Unregister(c)
		}
		close(c.closed)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("gateway read failed", logging.ErrAttr(err))
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warn("failed to parse gateway message", logging.ErrAttr(err))
			c.sendError(protocol.ErrorCodeInvalidPayload, "Invalid message format")
			continue
		}

		c.handleMessage(logging.With(ctx, logger), &msg)
	}
}

// WritePump writes queued messages and keep-alive pings to the connection
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			data, err := json.Marshal(msg)
			if err != nil {
				logging.From(ctx).Error("failed to encode gateway message", logging.ErrAttr(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logging.From(ctx).Debug("gateway write failed", logging.ErrAttr(err))
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

// SendHello sends the initial HELLO message
func (c *Client) SendHello() {
	msg, err := protocol.NewMessage(protocol.OpHello, &protocol.HelloPayload{
		HeartbeatInterval: heartbeatInterval,
	})
	if err != nil {
		return
	}
	c.enqueue(msg)
}

func (c *Client) handleMessage(ctx context.Context, msg *protocol.Message) {
	switch msg.Op {
	case protocol.OpIdentify:
		c.handleIdentify(ctx, msg)

	case protocol.OpHeartbeat:
		ack, err := protocol.NewMessage(protocol.OpHeartbeatAck, nil)
		if err == nil {
			c.enqueue(ack)
		}

	default:
		logging.From(ctx).Warn("unknown gateway opcode", "op", msg.Op)
		c.sendError(protocol.ErrorCodeUnknown, "Unknown operation")
	}
}

func (c *Client) handleIdentify(ctx context.Context, msg *protocol.Message) {
	if c.identified {
		c.sendError(protocol.ErrorCodeInvalidPayload, "Already identified")
		return
	}

	var payload protocol.IdentifyPayload
	if err := msg.Decode(&payload); err != nil {
		c.sendError(protocol.ErrorCodeInvalidPayload, "Invalid identify payload")
		return
	}

	if hash := c.srv.config.APITokenHash; hash != "" && !crypto.CheckToken(payload.Token, hash) {
		logging.From(ctx).Warn("gateway identify rejected", "server_id", payload.ServerID)
		c.sendInvalidSession("Authentication failed")
		return
	}

	server, err := c.srv.db.GetServerByID(ctx, payload.ServerID)
	if err != nil {
		logging.From(ctx).Warn("gateway identify for unknown server", logging.ErrAttr(err))
		c.sendInvalidSession("Unknown server")
		return
	}

	c.ServerID = server.ID
	c.UserID = payload.UserID
	if !c.srv.hub.Register(c) {
		return
	}
	c.identified = true

	ready, err := protocol.NewMessage(protocol.OpReady, &protocol.ReadyPayload{
		SessionID: c.SessionID,
		Server:    server,
	})
	if err != nil {
		return
	}
	c.enqueue(ready)
}

func (c *Client) sendError(code int, message string) {
	msg, err := protocol.NewMessage(protocol.OpInvalidSession, &protocol.ErrorPayload{
		Code:    code,
		Message: message,
	})
	if err != nil {
		return
	}
	c.enqueue(msg)
}

func (c *Client) sendInvalidSession(reason string) {
	c.sendError(protocol.ErrorCodeUnauthorized, reason)
}
