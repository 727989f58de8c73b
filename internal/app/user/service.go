package user

import (
	"context"
	"errors"
	"fmt"

	"chatserver/internal/app/policy"

	"go.uber.org/zap"
)

var ErrInvalidAdminPassword = errors.New("invalid admin password")

type Service interface {
	GetUserByID(ctx context.Context, id uint64) (*User, error)
	// CreateOrGetUser returns the existing user for a name or creates
	// one. When admin status is requested the shared secret must
	// match; an existing non-admin is upgraded in place.
	CreateOrGetUser(ctx context.Context, name string, wantAdmin bool, adminPassword string) (*User, error)
}

type service struct {
	repo        Repository
	adminSecret string
	logger      *zap.SugaredLogger
}

func NewService(repo Repository, adminSecret string, logger *zap.Logger) Service {
	return &service{
		repo:        repo,
		adminSecret: adminSecret,
		logger:      logger.Sugar(),
	}
}

func (s *service) GetUserByID(ctx context.Context, id uint64) (*User, error) {
	return s.repo.GetUserByID(id)
}

func (s *service) CreateOrGetUser(ctx context.Context, name string, wantAdmin bool, adminPassword string) (*User, error) {
	grantAdmin := wantAdmin && policy.CanGrantAdmin(adminPassword, s.adminSecret)
	if wantAdmin && !grantAdmin {
		s.logger.Warnw("Admin grant denied: bad password", "name", name)
		return nil, ErrInvalidAdminPassword
	}

	existing, err := s.repo.GetUserByName(name)
	if err == nil {
		if grantAdmin && !existing.IsAdmin {
			upgraded, err := s.repo.UpgradeToAdmin(existing.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to upgrade user to admin: %w", err)
			}
			s.logger.Infow("User upgraded to admin", "user_id", upgraded.ID, "name", upgraded.Name)
			return upgraded, nil
		}
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	created, err := s.repo.CreateUser(name, grantAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Infow("User created", "user_id", created.ID, "name", created.Name, "is_admin", created.IsAdmin)
	return created, nil
}
