package message

import (
	"errors"

	"chatserver/internal/app/room"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("message not found")

type Repository interface {
	// CreateMessage persists the message and returns it hydrated with
	// its author (nil for system messages).
	CreateMessage(msg *Message) (*Message, error)
	// FindTopLevelMessages returns up to limit of the most recent
	// top-level messages for a room, ordered oldest first.
	FindTopLevelMessages(roomID uint64, limit int) ([]*Message, error)
	// FindJoinSystemMessage looks up a system message with the exact
	// join text for a room.
	FindJoinSystemMessage(roomID uint64, text string) (*Message, error)
	// EnsureJoinSystemMessage creates the join notice unless one with
	// the same text already exists for the room. A partial unique
	// index on (room_id, text) for system messages is the arbiter, so
	// concurrent duplicate joins collapse to a single row no matter
	// how the inserts interleave; the bool reports whether this call
	// created the row.
	EnsureJoinSystemMessage(roomID uint64, text string) (*Message, bool, error)
	FindReplies(parentID uint64) ([]*Message, error)
	// FindMessageWithRoom resolves a message together with its owning
	// room.
	FindMessageWithRoom(id uint64) (*Message, *room.Room, error)
	// CreateReply persists the reply and bumps the parent's counter in
	// one transaction.
	CreateReply(reply *Message) (*Message, error)
	// DeleteMessage removes the message and, for replies, decrements
	// the parent's counter in one transaction. A concurrent duplicate
	// delete loses the race and gets ErrNotFound; the counter moves
	// exactly once.
	DeleteMessage(id uint64, parentID *uint64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateMessage(msg *Message) (*Message, error) {
	if err := r.db.Create(msg).Error; err != nil {
		return nil, err
	}
	return r.hydrate(msg.ID)
}

func (r *repository) FindTopLevelMessages(roomID uint64, limit int) ([]*Message, error) {
	var messages []*Message
	err := r.db.
		Preload("User").
		Where("room_id = ? AND parent_id IS NULL", roomID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// The window is the newest N, delivered oldest first.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *repository) FindJoinSystemMessage(roomID uint64, text string) (*Message, error) {
	var msg Message
	err := r.db.
		Where("room_id = ? AND is_system = ? AND text = ?", roomID, true, text).
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *repository) EnsureJoinSystemMessage(roomID uint64, text string) (*Message, bool, error) {
	msg := Message{
		RoomID:   roomID,
		Text:     text,
		IsSystem: true,
	}

	// The insert races directly against the unique index instead of
	// checking first; a plain SELECT-then-INSERT admits duplicates
	// under READ COMMITTED.
	result := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&msg)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected == 0 {
		existing, err := r.FindJoinSystemMessage(roomID, text)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return &msg, true, nil
}

func (r *repository) FindReplies(parentID uint64) ([]*Message, error) {
	var replies []*Message
	err := r.db.
		Preload("User").
		Where("parent_id = ?", parentID).
		Order("created_at ASC, id ASC").
		Find(&replies).Error
	return replies, err
}

func (r *repository) FindMessageWithRoom(id uint64) (*Message, *room.Room, error) {
	var msg Message
	err := r.db.Preload("User").First(&msg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	var rm room.Room
	err = r.db.First(&rm, msg.RoomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, room.ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	return &msg, &rm, nil
}

func (r *repository) CreateReply(reply *Message) (*Message, error) {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(reply).Error; err != nil {
			return err
		}
		return tx.Model(&Message{}).
			Where("id = ?", *reply.ParentID).
			UpdateColumn("reply_count", gorm.Expr("reply_count + ?", 1)).Error
	})
	if err != nil {
		return nil, err
	}
	return r.hydrate(reply.ID)
}

func (r *repository) DeleteMessage(id uint64, parentID *uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&Message{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		if parentID != nil {
			return tx.Model(&Message{}).
				Where("id = ?", *parentID).
				UpdateColumn("reply_count", gorm.Expr("reply_count - ?", 1)).Error
		}
		return nil
	})
}

func (r *repository) hydrate(id uint64) (*Message, error) {
	var out Message
	if err := r.db.Preload("User").First(&out, id).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
