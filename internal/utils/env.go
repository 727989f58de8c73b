package utils

import (
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// LoadEnv pulls a local .env into the process environment. Absence is
// normal in containerized deployments where everything arrives as real
// environment variables.
func LoadEnv(logger *zap.Logger) {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using process environment")
		return
	}
	logger.Info(".env file loaded")
}
