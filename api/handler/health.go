package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/truthlens/cache"
	"github.com/use-agent/truthlens/models"
)

// Version is reported by GET /health.
const Version = "0.1.0"

// Health returns a handler for GET /health. cc may be nil.
func Health(cc *cache.Cache, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries := 0
		if cc != nil {
			entries = cc.Len()
		}
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:       "healthy",
			Uptime:       time.Since(startTime).Round(time.Second).String(),
			CacheEntries: entries,
			Version:      Version,
		})
	}
}
