package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"chatserver/internal/providers/redis"
	"chatserver/internal/utils"

	"go.uber.org/zap"
)

const roomListCacheKey = "rooms:all"

var ErrEmptyName = errors.New("room name is required")

type Service interface {
	GetAllRooms(ctx context.Context) ([]*Room, error)
	GetRoomByID(ctx context.Context, id uint64) (*Room, error)
	CreateRoom(ctx context.Context, name string, adminID *uint64) (*Room, error)
	DeleteRoom(ctx context.Context, id uint64) error
}

type service struct {
	repo     Repository
	redisP   *redis.RedisProvider
	eventBus *utils.EventBus
	logger   *zap.SugaredLogger
}

func NewService(repo Repository, redisP *redis.RedisProvider, eventBus *utils.EventBus, logger *zap.Logger) Service {
	return &service{
		repo:     repo,
		redisP:   redisP,
		eventBus: eventBus,
		logger:   logger.Sugar(),
	}
}

func (s *service) GetAllRooms(ctx context.Context) ([]*Room, error) {
	if s.redisP != nil {
		cached, err := s.redisP.Get(ctx, roomListCacheKey).Result()
		if err == nil && cached != "" {
			var rooms []*Room
			if json.Unmarshal([]byte(cached), &rooms) == nil {
				return rooms, nil
			}
		}
	}

	rooms, err := s.repo.GetAllRooms()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rooms: %w", err)
	}

	if s.redisP != nil && len(rooms) > 0 {
		data, _ := json.Marshal(rooms)
		s.redisP.SetEX(ctx, roomListCacheKey, data, 0)
	}

	return rooms, nil
}

func (s *service) GetRoomByID(ctx context.Context, id uint64) (*Room, error) {
	return s.repo.GetRoomByID(id)
}

// CreateRoom persists the room, then announces it to every connected
// client. The private acknowledgment to the creator is emitted by the
// websocket gateway, not here.
func (s *service) CreateRoom(ctx context.Context, name string, adminID *uint64) (*Room, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	room, err := s.repo.CreateRoom(name, adminID)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}

	s.invalidateCache(ctx)

	s.logger.Infow("Room created", "room_id", room.ID, "name", room.Name)

	s.eventBus.Publish(utils.Event{
		Name: "roomCreated",
		Data: room,
	})

	return room, nil
}

// DeleteRoom only requires existence. No deletion event is broadcast
// for a room's own removal.
func (s *service) DeleteRoom(ctx context.Context, id uint64) error {
	if err := s.repo.DeleteRoom(id); err != nil {
		return err
	}

	s.invalidateCache(ctx)

	s.logger.Infow("Room deleted", "room_id", id)
	return nil
}

func (s *service) invalidateCache(ctx context.Context) {
	if s.redisP == nil {
		return
	}
	if err := s.redisP.Del(ctx, roomListCacheKey).Err(); err != nil {
		s.logger.Warnw("Failed to invalidate room list cache", "error", err)
	}
}
