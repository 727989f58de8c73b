package user

import "time"

type User struct {
	ID        uint64    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"unique;not null"`
	IsAdmin   bool      `json:"isAdmin" gorm:"not null;default:false"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateUserRequest struct {
	Name          string `json:"name" binding:"required"`
	IsAdmin       bool   `json:"isAdmin"`
	AdminPassword string `json:"adminPassword"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
