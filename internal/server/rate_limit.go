package server

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// webhookRateLimit rejects callbacks once a provider and source address exhaust
// their bucket. Limiter failures admit the request.
func (s *Server) webhookRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		provider := c.Param("provider")
		res, err := s.limiter.Allow(c.Request.Context(), provider, c.ClientIP())
		if err != nil {
			s.log.Warn("webhook rate limit check failed",
				zap.String("provider", provider),
				zap.Error(err),
			)
			c.Next()
			return
		}
		if res == nil || res.Allowed {
			c.Next()
			return
		}

		seconds := int(math.Ceil(res.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		s.metrics.RecordWebhookRejected(c.Request.Context(), provider, "rate_limited")
		c.Header("Retry-After", strconv.Itoa(seconds))
		AbortWithError(c, ErrRateLimited)
	}
}
