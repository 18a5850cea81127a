package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hearth-chat/hearth/internal/logging"
	"github.com/hearth-chat/hearth/internal/protocol"
	"github.com/m-mizutani/goerr/v2"
)

// ConnState is the state of the gateway connection
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateReady
	StateReconnecting
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "disconnected"
	}
}

// ErrSessionRejected is returned when the server refuses the identify. The
// connection is not retried.
var ErrSessionRejected = errors.New("gateway session rejected")

// Connection is a gateway connection to one server. Run keeps it alive,
// reconnecting with the configured strategy.
type Connection struct {
	serverAddr string
	serverID   uuid.UUID
	userID     uuid.UUID
	token      string

	strategy *ReconnectStrategy
	dialer   *websocket.Dialer

	onDispatch func(*protocol.Message)
	onState    func(ConnState)
	onError    func(error)

	mu        sync.RWMutex
	state     ConnState
	sessionID string
	lastSeq   int64
}

// NewConnection creates a gateway connection for the given server
func NewConnection(serverAddr string, serverID, userID uuid.UUID, token string) *Connection {
	return &Connection{
		serverAddr: serverAddr,
		serverID:   serverID,
		userID:     userID,
		token:      token,
		strategy:   DefaultReconnectStrategy(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
			Proxy:            http.ProxyFromEnvironment,
		},
	}
}

// SetHandlers sets the event handlers. They are called from the connection
// goroutine and must not block. Any of them may be nil.
func (c *Connection) SetHandlers(onDispatch func(*protocol.Message), onState func(ConnState), onError func(error)) {
	c.onDispatch = onDispatch
	c.onState = onState
	c.onError = onError
}

// SetReconnectStrategy replaces the default reconnect strategy
func (c *Connection) SetReconnectStrategy(rs *ReconnectStrategy) {
	c.strategy = rs
}

// State returns the current connection state
func (c *Connection) State() ConnState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SessionID returns the id of the current session, "" before READY
func (c *Connection) SessionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// LastSequence returns the last received dispatch sequence number
func (c *Connection) LastSequence() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSeq
}

func (c *Connection) setState(s ConnState) {
	c.mu.Lock()
	changed := c.state != s
	c.state = s
	if s != StateReady {
		c.sessionID = ""
	}
	c.mu.Unlock()

	if changed && c.onState != nil {
		c.onState(s)
	}
}

func (c *Connection) reportError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

// Run connects and serves the gateway until ctx is done, the session is
// rejected or the reconnect strategy gives up.
func (c *Connection) Run(ctx context.Context) error {
	logger := logging.From(ctx).With("server_id", c.serverID)
	defer c.setState(StateDisconnected)

	attempt := 0
	for {
		if attempt == 0 {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
		}

		ready, err := c.serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			if errors.Is(err, ErrSessionRejected) {
				c.reportError(err)
				return err
			}
			logger.Warn("gateway connection lost", logging.ErrAttr(err), "attempt", attempt)
			c.reportError(err)
		}
		if ready {
			attempt = 0
		}

		if !c.strategy.ShouldRetry(attempt) {
			return goerr.Wrap(err, "gave up reconnecting to gateway", goerr.V("attempts", attempt))
		}
		delay := c.strategy.NextDelay(attempt)
		attempt++

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// serve runs one connection. It reports whether the session reached READY.
func (c *Connection) serve(ctx context.Context) (bool, error) {
	u, err := gatewayURL(c.serverAddr)
	if err != nil {
		return false, err
	}

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return false, goerr.Wrap(err, "failed to connect to gateway", goerr.V("url", u))
	}

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	send := make(chan *protocol.Message, 16)
	go c.writePump(connCtx, conn, send)

	ready := false
	conn.SetReadLimit(512 * 1024)
	for {
		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ready, nil
			}
			return ready, goerr.Wrap(err, "gateway read failed")
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.From(ctx).Warn("failed to parse gateway message", logging.ErrAttr(err))
			continue
		}
		if msg.Seq != nil {
			c.mu.Lock()
			c.lastSeq = *msg.Seq
			c.mu.Unlock()
		}

		switch msg.Op {
		case protocol.OpHello:
			var hello protocol.HelloPayload
			if err := msg.Decode(&hello); err != nil {
				return ready, err
			}
			go c.heartbeat(connCtx, time.Duration(hello.HeartbeatInterval)*time.Millisecond, send)

			identify, err := protocol.NewMessage(protocol.OpIdentify, &protocol.IdentifyPayload{
				ServerID: c.serverID,
				UserID:   c.userID,
				Token:    c.token,
			})
			if err != nil {
				return ready, err
			}
			send <- identify

		case protocol.OpReady:
			var payload protocol.ReadyPayload
			if err := msg.Decode(&payload); err != nil {
				return ready, err
			}
			ready = true
			c.setState(StateReady)
			c.mu.Lock()
			c.sessionID = payload.SessionID
			c.mu.Unlock()
			if c.onDispatch != nil {
				c.onDispatch(&msg)
			}

		case protocol.OpInvalidSession:
			var payload protocol.ErrorPayload
			_ = msg.Decode(&payload)
			if payload.Code == protocol.ErrorCodeUnauthorized {
				return ready, goerr.Wrap(ErrSessionRejected, payload.Message)
			}
			c.reportError(goerr.New("gateway error", goerr.V("code", payload.Code), goerr.V("message", payload.Message)))

		case protocol.OpHeartbeatAck:

		case protocol.OpDispatch:
			if c.onDispatch != nil {
				c.onDispatch(&msg)
			}
		}
	}
}

func (c *Connection) writePump(ctx context.Context, conn *websocket.Conn, send <-chan *protocol.Message) {
	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(time.Second))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return

		case msg := <-send:
			data, err := json.Marshal(msg)
			if err != nil {
				logging.From(ctx).Error("failed to encode gateway message", logging.ErrAttr(err))
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func (c *Connection) heartbeat(ctx context.Context, interval time.Duration, send chan<- *protocol.Message) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			seq := c.LastSequence()
			msg, err := protocol.NewMessage(protocol.OpHeartbeat, &protocol.HeartbeatPayload{LastSequence: &seq})
			if err != nil {
				continue
			}
			select {
			case send <- msg:
			default:
			}
		}
	}
}

func gatewayURL(addr string) (string, error) {
	u, err := httpURL(addr)
	if err != nil {
		return "", err
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	return u.String(), nil
}
