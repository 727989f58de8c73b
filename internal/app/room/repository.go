package room

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("room not found")

type Repository interface {
	GetAllRooms() ([]*Room, error)
	GetRoomByID(id uint64) (*Room, error)
	CreateRoom(name string, adminID *uint64) (*Room, error)
	DeleteRoom(id uint64) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetAllRooms() ([]*Room, error) {
	var rooms []*Room
	err := r.db.
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *repository) GetRoomByID(id uint64) (*Room, error) {
	var room Room
	err := r.db.First(&room, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) CreateRoom(name string, adminID *uint64) (*Room, error) {
	room := &Room{
		Name:    name,
		AdminID: adminID,
	}
	if err := r.db.Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

func (r *repository) DeleteRoom(id uint64) error {
	result := r.db.Delete(&Room{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
