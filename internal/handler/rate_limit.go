package handler

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hungbv115/education-backend/internal/dto"
	"github.com/hungbv115/education-backend/internal/service"
)

// RateLimitMiddleware rejects requests that exceed limit per window for the
// key derived by keyFunc. Limiter failures other than rejection let the
// request through rather than turning a Redis outage into an outage.
func RateLimitMiddleware(limiter *service.RateLimiter, limit int, window time.Duration, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision, err := limiter.Check(c.Request.Context(), keyFunc(c), limit, window)
		if err != nil {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))

		if !decision.Allowed {
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error:   "Too Many Requests",
				Message: "rate limit exceeded, retry later",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ClientIPKey buckets requests by caller address. gin's ClientIP already
// honors X-Forwarded-For when trusted proxies are configured.
func ClientIPKey(c *gin.Context) string {
	return c.ClientIP()
}
