// Package api serves the classification endpoint the popup talks to.
package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/truthlens/api/handler"
	"github.com/use-agent/truthlens/api/middleware"
	"github.com/use-agent/truthlens/cache"
	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/webhook"
)

// Deps are the collaborators the routes need. Cache and Notifier may be nil.
type Deps struct {
	Checker   handler.Checker
	Cache     *cache.Cache
	Notifier  *webhook.Notifier
	StartTime time.Time
}

// NewRouter builds the gin engine.
//
// Middleware chain:
//
//	Global:   Recovery → Logger
//	/predict: Auth (if enabled)
//
// Rate limiting happens inside Predict, after the cache lookup. /health
// sits outside auth so load balancers can always reach it.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	r.GET("/health", handler.Health(deps.Cache, deps.StartTime))

	protected := r.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}

	var limiter handler.Limiter
	if l := middleware.NewLimiter(cfg.RateLimit); l != nil {
		limiter = l
	}
	protected.POST("/predict", handler.Predict(deps.Checker, deps.Cache, limiter, deps.Notifier))

	return r
}
