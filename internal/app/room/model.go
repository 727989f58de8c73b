package room

import "time"

type Room struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	AdminID   *uint64   `json:"adminId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateRoomRequest struct {
	Name    string  `json:"name" binding:"required"`
	AdminID *uint64 `json:"adminId"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
