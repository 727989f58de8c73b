package app

import (
	"chatserver/internal/app/health"
	"chatserver/internal/app/message"
	"chatserver/internal/app/room"
	"chatserver/internal/app/upload"
	"chatserver/internal/app/user"
	"chatserver/internal/config"
	"chatserver/internal/db"
	"chatserver/internal/db/seeder"
	"chatserver/internal/gateways/websocket"
	"chatserver/internal/providers/minio"
	"chatserver/internal/providers/redis"
	"chatserver/internal/router"
	"chatserver/internal/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Application struct {
	Router *router.Router
	DB     *gorm.DB
}

func Bootstrap(cfg *config.Config, logger *zap.Logger) (*Application, error) {
	dbConn, err := db.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(dbConn, logger); err != nil {
		return nil, err
	}

	seed := seeder.NewSeeder(dbConn, logger)
	if err := seed.Seed(); err != nil {
		logger.Warn("Failed to run seeders", zap.Error(err))
	}

	redisProvider := redis.NewRedisProvider(cfg.RedisURL, logger, cfg.RedisTTL)
	minioProvider, err := minio.NewMinioProvider(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize MinIO provider", zap.Error(err))
		minioProvider = nil
	}
	eventBus := utils.NewEventBus()

	roomRepo := room.NewRepository(dbConn)
	userRepo := user.NewRepository(dbConn)
	messageRepo := message.NewRepository(dbConn)

	roomService := room.NewService(roomRepo, redisProvider, eventBus, logger)
	userService := user.NewService(userRepo, cfg.AdminPassword, logger)
	messageService := message.NewService(messageRepo, roomRepo, userRepo, redisProvider, eventBus, logger)

	hub := websocket.NewHub(logger, roomService, messageService, eventBus)
	go hub.Run()

	healthHandler := health.NewHandler(&utils.HealthChecker{
		DB:    dbConn,
		Redis: redisProvider.Client,
	})
	roomHandler := room.NewHandler(roomService)
	userHandler := user.NewHandler(userService)
	uploadHandler := upload.NewHandler(minioProvider, logger)

	r := router.NewRouter(logger)

	r.RegisterHealthRoutes(healthHandler)
	r.RegisterWebSocketRoutes(hub)
	r.RegisterRoomRoutes(roomHandler)
	r.RegisterUserRoutes(userHandler)
	r.RegisterUploadRoutes(uploadHandler)

	return &Application{
		Router: r,
		DB:     dbConn,
	}, nil
}
