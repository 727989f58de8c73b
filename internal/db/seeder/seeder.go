package seeder

import (
	"chatserver/internal/app/room"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		logger: logger,
	}
}

func (s *Seeder) Seed() error {
	s.logger.Info("Running database seeders...")

	if err := s.seedRooms(); err != nil {
		return err
	}

	s.logger.Info("Database seeders completed successfully")
	return nil
}

func (s *Seeder) seedRooms() error {
	var count int64
	s.db.Model(&room.Room{}).Count(&count)
	if count > 0 {
		s.logger.Info("Rooms already exist, skipping seed")
		return nil
	}

	rooms := []room.Room{
		{Name: "General Chat"},
		{Name: "Random Discussions"},
	}

	if err := s.db.Create(&rooms).Error; err != nil {
		return err
	}

	s.logger.Info("Seeded default rooms", zap.Int("count", len(rooms)))
	return nil
}
