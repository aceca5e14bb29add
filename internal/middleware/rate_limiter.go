package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter implements per-IP rate limiting with a stricter budget for
// authentication endpoints.
type RateLimiter struct {
	ipLimiters    map[string]*rate.Limiter
	authLimiters  map[string]*rate.Limiter
	ipMutex       sync.RWMutex
	authMutex     sync.RWMutex
	ipRate        rate.Limit
	authRate      rate.Limit
	ipBurst       int
	authBurst     int
	cleanupTicker *time.Ticker
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(ipRequestsPerSecond, authRequestsPerMinute float64, ipBurst, authBurst int) *RateLimiter {
	limiter := &RateLimiter{
		ipLimiters:    make(map[string]*rate.Limiter),
		authLimiters:  make(map[string]*rate.Limiter),
		ipRate:        rate.Limit(ipRequestsPerSecond),
		authRate:      rate.Limit(authRequestsPerMinute / 60),
		ipBurst:       ipBurst,
		authBurst:     authBurst,
		cleanupTicker: time.NewTicker(5 * time.Minute),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup periodically resets the limiter maps so they cannot grow unbounded
func (rl *RateLimiter) cleanup() {
	for range rl.cleanupTicker.C {
		rl.ipMutex.Lock()
		rl.ipLimiters = make(map[string]*rate.Limiter)
		rl.ipMutex.Unlock()

		rl.authMutex.Lock()
		rl.authLimiters = make(map[string]*rate.Limiter)
		rl.authMutex.Unlock()
	}
}

// Stop stops the rate limiter cleanup
func (rl *RateLimiter) Stop() {
	rl.cleanupTicker.Stop()
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.ipMutex.RLock()
	limiter, exists := rl.ipLimiters[ip]
	rl.ipMutex.RUnlock()

	if !exists {
		rl.ipMutex.Lock()
		limiter = rate.NewLimiter(rl.ipRate, rl.ipBurst)
		rl.ipLimiters[ip] = limiter
		rl.ipMutex.Unlock()
	}

	return limiter
}

func (rl *RateLimiter) getAuthLimiter(ip string) *rate.Limiter {
	rl.authMutex.RLock()
	limiter, exists := rl.authLimiters[ip]
	rl.authMutex.RUnlock()

	if !exists {
		rl.authMutex.Lock()
		limiter = rate.NewLimiter(rl.authRate, rl.authBurst)
		rl.authLimiters[ip] = limiter
		rl.authMutex.Unlock()
	}

	return limiter
}

// IPRateLimiterMiddleware limits requests based on client IP
func (rl *RateLimiter) IPRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getIPLimiter(c.ClientIP()).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthRateLimiterMiddleware applies the stricter auth budget on top of the
// per-IP limit, slowing down credential guessing.
func (rl *RateLimiter) AuthRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !rl.getIPLimiter(ip).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}

		if !rl.getAuthLimiter(ip).Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many authentication attempts, please try again later"})
			c.Abort()
			return
		}

		c.Next()
	}
}
