package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"chatserver/internal/app/message"
	"chatserver/internal/app/room"
	"chatserver/internal/app/user"
	"chatserver/internal/utils"
)

// dispatch routes one inbound event to its handler. Every failure
// becomes a private error event; nothing here may take down the
// connection or touch another connection's state.
func (c *Client) dispatch(env inbound) {
	ctx := context.Background()

	switch env.Event {
	case evJoinRoom:
		c.handleJoinRoom(ctx, env.Data)
	case evCreateRoom:
		c.handleCreateRoom(ctx, env.Data)
	case evSendMessage:
		c.handleSendMessage(ctx, env.Data)
	case evSendThreadReply:
		c.handleSendThreadReply(ctx, env.Data)
	case evGetThreadMessages:
		c.handleGetThreadMessages(ctx, env.Data)
	case evDeleteMessage, evDeleteThread:
		c.handleDeleteMessage(ctx, env.Data)
	case evTyping:
		c.handleTyping(env.Data)
	case evDeleteRoom:
		c.handleDeleteRoom(ctx, env.Data)
	default:
		c.hub.logger.Debugw("Ignoring unknown event",
			"client_id", c.ID,
			"event", env.Event,
		)
	}
}

func (c *Client) handleJoinRoom(ctx context.Context, data json.RawMessage) {
	var p joinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == 0 || p.Username == "" {
		c.sendError("Missing required join data")
		return
	}

	rm, err := c.hub.roomSvc.GetRoomByID(ctx, p.RoomID)
	if err != nil {
		c.fail(err, "Failed to join room")
		return
	}

	c.username = p.Username
	c.userID = p.UserID

	if c.currentRoom != p.RoomID {
		// Single-slot membership: leave the previous channel before
		// entering the new one.
		if c.currentRoom != 0 {
			c.hub.LeaveRoom(c, c.currentRoom)
		}
		c.hub.JoinRoom(c, p.RoomID)
		c.currentRoom = p.RoomID

		if _, _, err := c.hub.msgSvc.EnsureJoinMessage(ctx, p.RoomID, p.Username); err != nil {
			c.hub.logger.Errorw("Failed to record join message",
				"client_id", c.ID,
				"room_id", p.RoomID,
				"error", err,
			)
		}
	}

	history, err := c.hub.msgSvc.RoomHistory(ctx, p.RoomID)
	if err != nil {
		c.fail(err, "Failed to join room")
		return
	}

	c.reply(evRoomJoined, roomJoinedPayload{Room: rm, Messages: history})

	c.hub.logger.Infow("Client joined room",
		"client_id", c.ID,
		"room_id", p.RoomID,
		"username", p.Username,
	)
}

func (c *Client) handleCreateRoom(ctx context.Context, data json.RawMessage) {
	var p createRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.Name == "" {
		c.sendError("Missing required room data")
		return
	}

	rm, err := c.hub.roomSvc.CreateRoom(ctx, p.Name, p.AdminID)
	if err != nil {
		c.fail(err, "Failed to create room")
		return
	}

	c.reply(evRoomCreationSuccess, rm)
}

func (c *Client) handleSendMessage(ctx context.Context, data json.RawMessage) {
	var p sendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == 0 || p.UserID == 0 {
		c.sendError("Missing required message data")
		return
	}

	if _, err := c.hub.msgSvc.PublishMessage(ctx, p.RoomID, p.UserID, p.Text, p.ImageURL, p.IsAdmin); err != nil {
		c.fail(err, "Failed to send message")
	}
}

func (c *Client) handleSendThreadReply(ctx context.Context, data json.RawMessage) {
	var p sendThreadReplyPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ParentID == 0 || p.UserID == 0 {
		c.sendError("Missing required message data")
		return
	}

	if _, err := c.hub.msgSvc.PublishThreadReply(ctx, p.RoomID, p.ParentID, p.UserID, p.Text, p.ImageURL, p.IsAdmin); err != nil {
		c.fail(err, "Failed to send thread reply")
	}
}

func (c *Client) handleGetThreadMessages(ctx context.Context, data json.RawMessage) {
	var p getThreadPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ParentID == 0 {
		c.sendError("Missing required thread data")
		return
	}

	replies, err := c.hub.msgSvc.FetchThread(ctx, p.ParentID)
	if err != nil {
		c.fail(err, "Failed to fetch thread")
		return
	}

	c.reply(evThreadMessages, threadMessagesPayload{ParentID: p.ParentID, Messages: replies})
}

func (c *Client) handleDeleteMessage(ctx context.Context, data json.RawMessage) {
	var p deleteMessagePayload
	if err := json.Unmarshal(data, &p); err != nil || p.MessageID == 0 || p.UserID == 0 {
		c.sendError("Missing required message data")
		return
	}

	if _, err := c.hub.msgSvc.DeleteMessage(ctx, p.MessageID, p.UserID); err != nil {
		c.fail(err, "Failed to delete message")
	}
}

// handleTyping is ephemeral: nothing is persisted and the sender never
// sees their own indicator.
func (c *Client) handleTyping(data json.RawMessage) {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == 0 || p.Username == "" {
		c.sendError("Missing required typing data")
		return
	}

	c.hub.eventBus.Publish(utils.Event{
		Name:      evUserTyping,
		Room:      p.RoomID,
		ExcludeID: c.ID,
		Data:      p,
	})
}

func (c *Client) handleDeleteRoom(ctx context.Context, data json.RawMessage) {
	var p deleteRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == 0 {
		c.sendError("Missing required room data")
		return
	}

	if err := c.hub.roomSvc.DeleteRoom(ctx, p.RoomID); err != nil {
		c.fail(err, "Failed to delete room")
	}
}

// fail maps a delegate error to the private error event the client
// sees. Unknown failures get the per-operation fallback text.
func (c *Client) fail(err error, fallback string) {
	switch {
	case errors.Is(err, room.ErrNotFound):
		c.sendError("Room not found")
	case errors.Is(err, user.ErrNotFound):
		c.sendError("User not found")
	case errors.Is(err, message.ErrNotFound):
		c.sendError("Message not found")
	case errors.Is(err, message.ErrEmptyContent):
		c.sendError("Missing required message data")
	case errors.Is(err, message.ErrNestedReply):
		c.sendError("Cannot reply to a thread reply")
	case errors.Is(err, message.ErrUnauthorized):
		c.sendError("Not authorized to delete this message")
	case errors.Is(err, room.ErrEmptyName):
		c.sendError("Room name is required")
	default:
		c.hub.logger.Errorw("Event handling failed",
			"client_id", c.ID,
			"error", err,
		)
		c.sendError(fallback)
	}
}
