package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		visitors: map[string]*visitor{},
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiter) sweep(idle time.Duration, now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(l.visitors, ip)
		}
	}
}

type RateLimiter struct {
	general *ipLimiter
	login   *ipLimiter
}

func NewRateLimiter(perMinute, loginPerMinute int) *RateLimiter {
	return &RateLimiter{general: newIPLimiter(perMinute), login: newIPLimiter(loginPerMinute)}
}

// Start drops idle buckets every five minutes until ctx ends.
func (rl *RateLimiter) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.general.sweep(10*time.Minute, now)
				rl.login.sweep(10*time.Minute, now)
			}
		}
	}()
}

func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		ip := c.ClientIP()
		now := time.Now()
		if strings.Contains(c.Request.URL.Path, "login") {
			if !rl.login.allow(ip, now) {
				c.Header("Retry-After", "60")
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Demasiados intentos de inicio de sesión. Intenta de nuevo en un minuto."})
				return
			}
		}
		if !rl.general.allow(ip, now) {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "Demasiadas solicitudes. Intenta de nuevo más tarde."})
			return
		}
		c.Next()
	}
}
