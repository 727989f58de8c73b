package websocket

import (
	"encoding/json"

	"chatserver/internal/app/message"
	"chatserver/internal/app/room"
)

// Inbound event names accepted by the gateway.
const (
	evJoinRoom          = "joinRoom"
	evCreateRoom        = "createRoom"
	evSendMessage       = "sendMessage"
	evSendThreadReply   = "sendThreadReply"
	evGetThreadMessages = "getThreadMessages"
	evDeleteMessage     = "deleteMessage"
	evDeleteThread      = "deleteThreadMessage"
	evTyping            = "typing"
	evDeleteRoom        = "deleteRoom"
)

// Outbound event names.
const (
	evRoomJoined          = "roomJoined"
	evRoomCreationSuccess = "roomCreationSuccess"
	evThreadMessages      = "threadMessages"
	evUserTyping          = "userTyping"
	evError               = "error"
)

// inbound is the wire envelope for client events.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outbound is the wire envelope for server events.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type joinRoomPayload struct {
	RoomID   uint64 `json:"roomId"`
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
}

type createRoomPayload struct {
	Name    string  `json:"name"`
	AdminID *uint64 `json:"adminId"`
}

type sendMessagePayload struct {
	RoomID   uint64 `json:"roomId"`
	UserID   uint64 `json:"userId"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	IsAdmin  bool   `json:"isAdmin"`
}

type sendThreadReplyPayload struct {
	RoomID   uint64 `json:"roomId"`
	UserID   uint64 `json:"userId"`
	ParentID uint64 `json:"parentId"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	IsAdmin  bool   `json:"isAdmin"`
}

type getThreadPayload struct {
	ParentID uint64 `json:"parentId"`
}

type deleteMessagePayload struct {
	MessageID uint64 `json:"messageId"`
	UserID    uint64 `json:"userId"`
}

type typingPayload struct {
	RoomID   uint64 `json:"roomId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type deleteRoomPayload struct {
	RoomID uint64 `json:"roomId"`
}

type roomJoinedPayload struct {
	Room     *room.Room         `json:"room"`
	Messages []*message.Message `json:"messages"`
}

type threadMessagesPayload struct {
	ParentID uint64             `json:"parentId"`
	Messages []*message.Message `json:"messages"`
}
