package message

import (
	"time"

	"chatserver/internal/app/user"
)

type Message struct {
	ID         uint64     `json:"id" gorm:"primaryKey"`
	RoomID     uint64     `json:"roomId" gorm:"not null;index;uniqueIndex:uq_messages_join_notice,where:is_system = true"`
	UserID     *uint64    `json:"userId"`
	Text       string     `json:"text" gorm:"uniqueIndex:uq_messages_join_notice,where:is_system = true"`
	ImageURL   string     `json:"imageUrl,omitempty"`
	IsSystem   bool       `json:"isSystem" gorm:"not null;default:false"`
	IsAdmin    bool       `json:"isAdmin" gorm:"not null;default:false"`
	ParentID   *uint64    `json:"parentId,omitempty" gorm:"index"`
	ReplyCount int64      `json:"replyCount" gorm:"not null;default:0"`
	CreatedAt  time.Time  `json:"createdAt"`
	User       *user.User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// IsReply reports whether the message lives inside a thread. Threads
// are flat: a reply never carries replies of its own.
func (m *Message) IsReply() bool {
	return m.ParentID != nil
}

// ThreadReplyEvent is the payload broadcast for a new thread reply,
// distinct from a top-level newMessage event.
type ThreadReplyEvent struct {
	ParentID uint64   `json:"parentId"`
	Reply    *Message `json:"reply"`
}

// Deletion describes a committed delete for broadcast routing.
type Deletion struct {
	MessageID uint64  `json:"messageId"`
	RoomID    uint64  `json:"-"`
	ParentID  *uint64 `json:"parentId,omitempty"`
}
