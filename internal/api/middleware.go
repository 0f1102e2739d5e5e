package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/hammamikhairi/potionbrew/internal/logger"
)

// RateLimit gives each client IP its own token bucket. Idle buckets are
// dropped after ten minutes.
func RateLimit(limit rate.Limit, burst int) gin.HandlerFunc {
	if burst <= 0 {
		burst = 1
	}
	var mu sync.Mutex
	buckets := cache.New(10*time.Minute, time.Minute)

	limiter := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if v, ok := buckets.Get(ip); ok {
			buckets.SetDefault(ip, v)
			return v.(*rate.Limiter)
		}
		l := rate.NewLimiter(limit, burst)
		buckets.SetDefault(ip, l)
		return l
	}

	return func(c *gin.Context) {
		if !limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// requestLogger logs each request at debug level.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
