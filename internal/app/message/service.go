package message

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"chatserver/internal/app/policy"
	"chatserver/internal/app/room"
	"chatserver/internal/app/user"
	"chatserver/internal/providers/redis"
	"chatserver/internal/utils"

	"go.uber.org/zap"
)

const recentWindow = 50

var (
	ErrEmptyContent = errors.New("message text or image required")
	ErrUnauthorized = errors.New("not authorized")
	ErrNestedReply  = errors.New("cannot reply to a thread reply")
)

type Service interface {
	// PublishMessage validates, persists and broadcasts a top-level
	// message to the room channel, sender included.
	PublishMessage(ctx context.Context, roomID, userID uint64, text, imageURL string, requestedAdmin bool) (*Message, error)
	// PublishThreadReply persists a reply, bumps the parent's reply
	// counter and broadcasts a newThreadReply event.
	PublishThreadReply(ctx context.Context, roomID, parentID, userID uint64, text, imageURL string, requestedAdmin bool) (*Message, error)
	FetchThread(ctx context.Context, parentID uint64) ([]*Message, error)
	// DeleteMessage authorizes, deletes and broadcasts the deletion to
	// the room channel.
	DeleteMessage(ctx context.Context, messageID, actorID uint64) (*Deletion, error)
	// EnsureJoinMessage creates and broadcasts the "has joined" system
	// message at most once per (room, username).
	EnsureJoinMessage(ctx context.Context, roomID uint64, username string) (*Message, bool, error)
	// RoomHistory returns the recent top-level window for roomJoined
	// payloads, oldest first, reply counts included.
	RoomHistory(ctx context.Context, roomID uint64) ([]*Message, error)
}

type service struct {
	repo        Repository
	roomRepo    room.Repository
	userRepo    user.Repository
	redisP      *redis.RedisProvider
	eventBus    *utils.EventBus
	logger      *zap.SugaredLogger
	cachePrefix string

	// roomSeq holds one mutex per room. Within a room channel the
	// broadcast order must match commit order, so the lock spans each
	// persist+publish pair; without it a later-committing writer could
	// reach the bus first.
	roomSeq sync.Map
}

func (s *service) lockRoom(roomID uint64) func() {
	v, _ := s.roomSeq.LoadOrStore(roomID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func NewService(
	repo Repository,
	roomRepo room.Repository,
	userRepo user.Repository,
	redisP *redis.RedisProvider,
	eventBus *utils.EventBus,
	logger *zap.Logger,
) Service {
	return &service{
		repo:        repo,
		roomRepo:    roomRepo,
		userRepo:    userRepo,
		redisP:      redisP,
		eventBus:    eventBus,
		logger:      logger.Sugar(),
		cachePrefix: "messages:room",
	}
}

func (s *service) PublishMessage(ctx context.Context, roomID, userID uint64, text, imageURL string, requestedAdmin bool) (*Message, error) {
	if text == "" && imageURL == "" {
		return nil, ErrEmptyContent
	}

	u, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	rm, err := s.roomRepo.GetRoomByID(roomID)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		RoomID:   roomID,
		UserID:   &u.ID,
		Text:     text,
		ImageURL: imageURL,
		IsAdmin:  policy.CanSendAdminMessage(u.ID, u.IsAdmin, rm.AdminID, requestedAdmin),
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	persisted, err := s.repo.CreateMessage(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	s.invalidateHistory(ctx, roomID)

	s.eventBus.Publish(utils.Event{
		Name: "newMessage",
		Room: roomID,
		Data: persisted,
	})

	return persisted, nil
}

func (s *service) PublishThreadReply(ctx context.Context, roomID, parentID, userID uint64, text, imageURL string, requestedAdmin bool) (*Message, error) {
	if text == "" && imageURL == "" {
		return nil, ErrEmptyContent
	}

	parent, _, err := s.repo.FindMessageWithRoom(parentID)
	if err != nil {
		return nil, err
	}
	if parent.IsReply() {
		return nil, ErrNestedReply
	}

	u, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	reply := &Message{
		RoomID:   parent.RoomID,
		UserID:   &u.ID,
		Text:     text,
		ImageURL: imageURL,
		ParentID: &parent.ID,
		// Room ownership does not carry over to replies.
		IsAdmin: policy.CanSendAdminReply(u.IsAdmin, requestedAdmin),
	}

	unlock := s.lockRoom(parent.RoomID)
	defer unlock()

	persisted, err := s.repo.CreateReply(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread reply: %w", err)
	}

	s.invalidateHistory(ctx, parent.RoomID)

	s.eventBus.Publish(utils.Event{
		Name: "newThreadReply",
		Room: parent.RoomID,
		Data: &ThreadReplyEvent{ParentID: parent.ID, Reply: persisted},
	})

	return persisted, nil
}

func (s *service) FetchThread(ctx context.Context, parentID uint64) ([]*Message, error) {
	if _, _, err := s.repo.FindMessageWithRoom(parentID); err != nil {
		return nil, err
	}
	return s.repo.FindReplies(parentID)
}

func (s *service) DeleteMessage(ctx context.Context, messageID, actorID uint64) (*Deletion, error) {
	msg, rm, err := s.repo.FindMessageWithRoom(messageID)
	if err != nil {
		return nil, err
	}

	actor, err := s.userRepo.GetUserByID(actorID)
	if err != nil {
		return nil, err
	}

	if !policy.CanDeleteMessage(actor.ID, actor.IsAdmin, msg.UserID, rm.AdminID) {
		s.logger.Warnw("Message delete denied",
			"message_id", messageID,
			"actor_id", actorID,
			"room_id", rm.ID,
		)
		return nil, ErrUnauthorized
	}

	unlock := s.lockRoom(msg.RoomID)
	defer unlock()

	if err := s.repo.DeleteMessage(msg.ID, msg.ParentID); err != nil {
		return nil, err
	}

	s.invalidateHistory(ctx, msg.RoomID)

	deletion := &Deletion{
		MessageID: msg.ID,
		RoomID:    msg.RoomID,
		ParentID:  msg.ParentID,
	}

	name := "messageDeleted"
	if msg.IsReply() {
		name = "threadMessageDeleted"
	}
	s.eventBus.Publish(utils.Event{
		Name: name,
		Room: msg.RoomID,
		Data: deletion,
	})

	return deletion, nil
}

func (s *service) EnsureJoinMessage(ctx context.Context, roomID uint64, username string) (*Message, bool, error) {
	text := fmt.Sprintf("%s has joined the room", username)

	unlock := s.lockRoom(roomID)
	defer unlock()

	msg, created, err := s.repo.EnsureJoinSystemMessage(roomID, text)
	if err != nil {
		return nil, false, fmt.Errorf("failed to record join message: %w", err)
	}
	if !created {
		// Reconnect or rejoin: the notice already exists, nothing is
		// broadcast again.
		return msg, false, nil
	}

	s.invalidateHistory(ctx, roomID)

	s.eventBus.Publish(utils.Event{
		Name: "newMessage",
		Room: roomID,
		Data: msg,
	})

	return msg, true, nil
}

func (s *service) RoomHistory(ctx context.Context, roomID uint64) ([]*Message, error) {
	cacheKey := fmt.Sprintf("%s:%d:recent", s.cachePrefix, roomID)

	if s.redisP != nil {
		cached, err := s.redisP.Get(ctx, cacheKey).Result()
		if err == nil && cached != "" {
			var messages []*Message
			if json.Unmarshal([]byte(cached), &messages) == nil {
				return messages, nil
			}
		}
	}

	messages, err := s.repo.FindTopLevelMessages(roomID, recentWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to get room history: %w", err)
	}

	if s.redisP != nil && len(messages) > 0 {
		data, _ := json.Marshal(messages)
		s.redisP.SetEX(ctx, cacheKey, data, 5*time.Minute)
	}

	return messages, nil
}

func (s *service) invalidateHistory(ctx context.Context, roomID uint64) {
	if s.redisP == nil {
		return
	}
	cacheKey := fmt.Sprintf("%s:%d:recent", s.cachePrefix, roomID)
	if err := s.redisP.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warnw("Failed to invalidate room history cache", "room_id", roomID, "error", err)
	}
}
