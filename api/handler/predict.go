package handler

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/truthlens/cache"
	"github.com/use-agent/truthlens/models"
	"github.com/use-agent/truthlens/webhook"
)

// Checker produces a verdict for page content. *verify.Verifier satisfies it.
type Checker interface {
	Check(ctx context.Context, content *models.PageContent) (*models.ClassificationResult, error)
}

// Limiter decides whether the caller may start a fresh verification.
// *middleware.Limiter satisfies it.
type Limiter interface {
	AllowRequest(c *gin.Context) (bool, time.Duration)
}

// Predict returns a handler for POST /predict.
//
// The body is {header, body} and the response {label, percentage,
// explanation}. Only cache misses are charged to limiter. cc, limiter and
// notifier may be nil.
func Predict(checker Checker, cc *cache.Cache, limiter Limiter, notifier *webhook.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		var content models.PageContent
		if err := c.ShouldBindJSON(&content); err != nil {
			respondError(c, models.NewError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		key := cache.Key(&content)
		if cc != nil {
			if cached, hit := cc.Get(key); hit {
				c.Header("X-Cache", "hit")
				notifier.Notify(webhook.NewVerdictEvent(content.Header, cached, true))
				c.JSON(http.StatusOK, cached)
				return
			}
		}

		if limiter != nil {
			if ok, wait := limiter.AllowRequest(c); !ok {
				if wait > 0 {
					c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				}
				respondError(c, models.NewError(models.ErrCodeRateLimited, "rate limit exceeded, please slow down", nil))
				return
			}
		}

		result, err := checker.Check(c.Request.Context(), &content)
		if err != nil {
			slog.Warn("predict failed", "header", content.Header, "error", err)
			respondError(c, err)
			return
		}

		if cc != nil {
			cc.Set(key, result)
			c.Header("X-Cache", "miss")
		}
		notifier.Notify(webhook.NewVerdictEvent(content.Header, result, false))

		slog.Info("predict",
			"header", content.Header,
			"label", result.Label,
			"percentage", result.Percentage,
			"duration", time.Since(start).Round(time.Millisecond).String(),
		)
		c.JSON(http.StatusOK, result)
	}
}
