package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit caps requests per client IP per minute. Applied to the sync
// trigger so a misfiring webhook or scheduler cannot hammer upstream
// providers through us. A limit of zero disables the middleware.
func RateLimit(requestsPerMinute int) gin.HandlerFunc {
	if requestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{
		Period: time.Minute,
		Limit:  int64(requestsPerMinute),
	})
	return mgin.NewMiddleware(instance, mgin.WithLimitReachedHandler(func(c *gin.Context) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":             "rate_limit_exceeded",
			"error_description": "too many requests, try again later",
		})
		c.Abort()
	}))
}
