package router

import (
	"net/http"

	"chatserver/internal/app/health"
	"chatserver/internal/app/room"
	"chatserver/internal/app/upload"
	"chatserver/internal/app/user"
	"chatserver/internal/gateways/websocket"
	"chatserver/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(logger *zap.Logger) *Router {
	engine := gin.New()
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.LoggerMiddleware(logger))
	engine.Use(gin.Recovery())

	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "Chat API is running")
	})

	return &Router{Engine: engine}
}

func (r *Router) RegisterHealthRoutes(handler health.Handler) {
	health.RegisterRoutes(r.Engine.Group("/api"), handler)
}

func (r *Router) RegisterWebSocketRoutes(hub *websocket.Hub) {
	websocket.RegisterRoutes(r.Engine, hub)
}

func (r *Router) RegisterRoomRoutes(handler room.Handler) {
	room.RegisterRoutes(r.Engine, handler)
}

func (r *Router) RegisterUserRoutes(handler user.Handler) {
	user.RegisterRoutes(r.Engine, handler)
}

func (r *Router) RegisterUploadRoutes(handler *upload.Handler) {
	upload.RegisterRoutes(r.Engine.Group("/api"), handler)
}

func (r *Router) Serve(addr string) error {
	return r.Engine.Run(addr)
}
