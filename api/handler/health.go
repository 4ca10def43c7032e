package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/fraudlens/models"
)

// StatsSource reports scan admission and cache occupancy.
type StatsSource interface {
	Stats() (models.GateStats, int)
}

// Health returns a handler for GET /health.
func Health(src StatsSource, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		gs, cacheItems := src.Stats()
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     "ok",
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			Gate:       gs,
			CacheItems: cacheItems,
		})
	}
}
