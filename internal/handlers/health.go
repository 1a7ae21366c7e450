package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// HealthCheck returns service health status (basic)
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "stock-reconciliation-service",
	})
}

type HealthHandler struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthHandler(db *gorm.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

// ReadinessCheck returns detailed health status including backing stores
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	health := gin.H{
		"status":  "healthy",
		"service": "stock-reconciliation-service",
		"checks":  gin.H{},
	}
	checks := health["checks"].(gin.H)
	status := http.StatusOK

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["postgres"] = gin.H{"status": "unhealthy", "error": err.Error()}
		health["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	} else {
		checks["postgres"] = gin.H{"status": "healthy"}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = gin.H{"status": "unhealthy", "error": err.Error()}
			if health["status"] == "healthy" {
				health["status"] = "degraded"
			}
		} else {
			checks["redis"] = gin.H{"status": "healthy"}
		}
	}

	c.JSON(status, health)
}
