package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classiccounter/gcserver/pkg/ratelimit"
)

// RateLimit protects the admin HTTP surface with a per-IP token
// bucket; the admin surface has no per-user identity, so the key is
// always the caller's address (adapted from a DefaultKeyFunc/IPKeyFunc
// split this surface has no use for).
func RateLimit(capacity, refillRate int64) gin.HandlerFunc {
	limiter := ratelimit.NewRateLimiter(capacity, refillRate)

	return func(c *gin.Context) {
		key := fmt.Sprintf("ip:%s", c.ClientIP())

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(capacity, 10))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": fmt.Sprintf("too many requests, limit is %d per second", refillRate),
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(capacity, 10))
		c.Next()
	}
}
