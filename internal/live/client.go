package live

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Client is one websocket connection.
type Client struct {
	userID string
	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte
	once   sync.Once
}

// Close shuts the connection down exactly once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

func (c *Client) trySend(msg []byte) {
	defer func() {
		// Racing a concurrent Close can hit a closed send channel.
		if r := recover(); r != nil {
			c.hub.log.Debug("dropped message to closed client", zap.String("user", c.userID))
		}
	}()
	select {
	case c.send <- msg:
	default:
		c.hub.log.Debug("client buffer full, dropping message", zap.String("user", c.userID))
	}
}

// readPump drains inbound frames so pings are answered; the push surface has
// no client commands. Runs until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.log.Debug("ws read error", zap.String("user", c.userID), zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.hub.log.Debug("ws write error", zap.String("user", c.userID), zap.Error(err))
			return
		}
	}
}
