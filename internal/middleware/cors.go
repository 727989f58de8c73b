package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSMiddleware allows the chat frontend's origin(s), taken from the
// comma-separated FRONTEND_URL. The method list matches the HTTP
// surface; everything stateful goes over the websocket.
func CORSMiddleware() gin.HandlerFunc {
	allowedOrigins := []string{"http://localhost:5173", "http://localhost:3000"}
	if raw := os.Getenv("FRONTEND_URL"); raw != "" {
		allowedOrigins = strings.Split(raw, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
