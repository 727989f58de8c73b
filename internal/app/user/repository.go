package user

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")

type Repository interface {
	GetUserByID(id uint64) (*User, error)
	GetUserByName(name string) (*User, error)
	CreateUser(name string, isAdmin bool) (*User, error)
	UpgradeToAdmin(id uint64) (*User, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetUserByID(id uint64) (*User, error) {
	var user User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) GetUserByName(name string) (*User, error) {
	var user User
	err := r.db.Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) CreateUser(name string, isAdmin bool) (*User, error) {
	user := &User{
		Name:    name,
		IsAdmin: isAdmin,
	}
	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// UpgradeToAdmin only ever flips the flag to true. The admin flag
// never reverts.
func (r *repository) UpgradeToAdmin(id uint64) (*User, error) {
	if err := r.db.Model(&User{}).Where("id = ?", id).Update("is_admin", true).Error; err != nil {
		return nil, err
	}
	return r.GetUserByID(id)
}
