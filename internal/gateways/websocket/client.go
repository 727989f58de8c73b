package websocket

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// Client is one live connection. currentRoom is the membership
// tracker's single slot: a connection occupies at most one room
// channel at a time. It is touched only by the connection's own read
// loop, so it needs no lock.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan outbound

	ID          string
	username    string
	userID      uint64
	currentRoom uint64
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var env inbound
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("Invalid event payload")
			continue
		}

		c.dispatch(env)
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			break
		}
	}
}

// reply sends a private event to this connection only.
func (c *Client) reply(event string, data any) {
	select {
	case c.send <- outbound{Event: event, Data: data}:
	default:
		c.hub.logger.Warnw("Dropping private event for slow client",
			"client_id", c.ID,
			"event", event,
		)
	}
}

func (c *Client) sendError(msg string) {
	c.reply(evError, msg)
}
