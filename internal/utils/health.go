package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const probeTimeout = 2 * time.Second

type HealthStatus struct {
	Status       string      `json:"status"`
	Timestamp    time.Time   `json:"timestamp"`
	Dependencies []DepStatus `json:"dependencies"`
}

type DepStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker probes the gateway's two backends: the message store
// and the history cache.
type HealthChecker struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	}

	if h.DB != nil {
		dep := h.probe(ctx, "message-store", func(ctx context.Context) error {
			sqlDB, err := h.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
		if dep.Status != "up" {
			status.Status = "degraded"
		}
		status.Dependencies = append(status.Dependencies, dep)
	}

	if h.Redis != nil {
		dep := h.probe(ctx, "cache", func(ctx context.Context) error {
			return h.Redis.Ping(ctx).Err()
		})
		if dep.Status != "up" {
			status.Status = "degraded"
		}
		status.Dependencies = append(status.Dependencies, dep)
	}

	return status
}

func (h *HealthChecker) probe(ctx context.Context, name string, ping func(context.Context) error) DepStatus {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	dep := DepStatus{Name: name, Status: "up"}
	if err := ping(ctx); err != nil {
		dep.Status = "down"
		dep.Message = err.Error()
	}
	return dep
}
