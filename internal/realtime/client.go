package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/chatnotify/internal/models"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
	actionTimeout  = 10 * time.Second
	maxGroupLength = 128
)

// Dispatcher handles the actions a client may invoke.
type Dispatcher interface {
	SendPrivateMessageNotification(ctx context.Context, senderID, receiverID int64, message string) error
}

// Client is one authenticated WebSocket connection.
type Client struct {
	id          string
	userID      int64
	conn        *websocket.Conn
	hub         *Hub
	dispatcher  Dispatcher
	logger      *zap.Logger
	send        chan []byte
	groups      map[string]struct{} // guarded by hub.mu
	connectedAt time.Time
	state       atomic.Int32

	unregisterOnce sync.Once
	closeOnce      sync.Once
}

func NewClient(id string, userID int64, conn *websocket.Conn, hub *Hub, dispatcher Dispatcher, logger *zap.Logger) *Client {
	c := &Client{
		id:          id,
		userID:      userID,
		conn:        conn,
		hub:         hub,
		dispatcher:  dispatcher,
		logger:      logger.With(zap.String("connection_id", id), zap.Int64("user_id", userID)),
		send:        make(chan []byte, sendBufferSize),
		groups:      make(map[string]struct{}),
		connectedAt: time.Now(),
	}
	c.setState(models.StateConnecting)
	return c
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() int64 {
	return c.userID
}

func (c *Client) State() models.ConnectionState {
	return models.ConnectionState(c.state.Load())
}

func (c *Client) setState(s models.ConnectionState) {
	c.state.Store(int32(s))
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.logger.Warn("Error closing connection", zap.Error(err))
		}
	})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Warn("Error setting read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		c.handleFrame(raw)
	}
}

func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.logger.Warn("Message exceeded maximum size", zap.Int("limit", maxMessageSize))
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF), isExpectedCloseError(err):
		c.logger.Debug("Connection closed", zap.Error(err))
	default:
		c.logger.Warn("WebSocket read error", zap.Error(err))
	}
}

func (c *Client) handleFrame(raw []byte) {
	var in inboundFrame
	if err := json.Unmarshal(raw, &in); err != nil {
		c.sendError("", "malformed frame")
		return
	}

	switch in.Action {
	case ActionSendPrivateNotification:
		c.sendPrivateNotification(in)
	case ActionJoinGroup, ActionLeaveGroup:
		group := strings.TrimSpace(in.Group)
		if group == "" || len(group) > maxGroupLength || models.IsUserGroup(group) {
			c.sendError(in.Action, "invalid group")
			return
		}
		if in.Action == ActionJoinGroup {
			c.hub.JoinGroup(c, group)
		} else {
			c.hub.LeaveGroup(c, group)
		}
		c.logger.Debug("Group membership changed", zap.String("action", in.Action), zap.String("group", group))
	default:
		c.sendError(in.Action, "unknown action")
	}
}

// sendPrivateNotification forwards to the dispatcher with the caller as sender.
func (c *Client) sendPrivateNotification(in inboundFrame) {
	if in.ReceiverID <= 0 || strings.TrimSpace(in.Message) == "" {
		c.sendError(in.Action, "receiver_id and message are required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	if err := c.dispatcher.SendPrivateMessageNotification(ctx, c.userID, in.ReceiverID, in.Message); err != nil {
		c.logger.Warn("Private notification failed", zap.Int64("receiver_id", in.ReceiverID), zap.Error(err))
		c.sendError(in.Action, "failed to send notification")
	}
}

func (c *Client) sendError(action, message string) {
	c.hub.sendTo(c, models.EventError, errorData{Action: action, Message: message})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !isExpectedCloseError(err) {
					c.logger.Warn("Error writing message", zap.Error(err))
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.hub.refresh(c)
		}
	}
}

func isExpectedCloseError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) || errors.Is(err, websocket.ErrCloseSent) {
		return true
	}
	return strings.Contains(err.Error(), "use of closed network connection")
}
