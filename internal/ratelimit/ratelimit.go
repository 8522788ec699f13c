// Package ratelimit implements a fixed-window request admission gate
// keyed by client address. Windows live in a process-local map, so under
// a multi-instance deployment each instance enforces its own quota.
package ratelimit

import (
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type window struct {
	count   int
	resetAt time.Time
}

// Limiter admits at most max requests per key within each window
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	window       time.Duration
	max          int
	trustedHosts []string
	now          func() time.Time
}

// New creates a limiter. trustedHosts are host-header suffixes (e.g.
// preview deployment domains) that bypass limiting entirely.
func New(windowDur time.Duration, max int, trustedHosts []string) *Limiter {
	return &Limiter{
		windows:      make(map[string]*window),
		window:       windowDur,
		max:          max,
		trustedHosts: trustedHosts,
		now:          time.Now,
	}
}

// Allow admits or rejects a request for key. On rejection it reports the
// seconds remaining until the window resets.
func (l *Limiter) Allow(key string) (ok bool, retryAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, exists := l.windows[key]
	if !exists || now.After(w.resetAt) {
		l.windows[key] = &window{count: 1, resetAt: now.Add(l.window)}
		return true, 0
	}

	if w.count >= l.max {
		return false, w.resetAt.Sub(now)
	}

	w.count++
	return true, 0
}

// Sweep drops expired windows and returns how many were removed. Run
// periodically to keep the map from growing without bound.
func (l *Limiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, key)
			removed++
		}
	}
	return removed
}

// Middleware applies the limiter to incoming requests. Loopback and
// private-range addresses bypass it, a deliberate policy exception for
// internal and preview traffic.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientAddr(c)
		if l.bypass(ip, c.Request.Host) {
			c.Next()
			return
		}

		ok, retryAfter := l.Allow(ip)
		if !ok {
			seconds := int(retryAfter.Seconds() + 0.5)
			if seconds < 1 {
				seconds = 1
			}
			log.Printf("[RateLimit] Rejected %s, retry after %ds", ip, seconds)
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":             false,
				"code":                "rate_limited",
				"error":               "Rate limit exceeded. Please try again later.",
				"retry_after_seconds": seconds,
			})
			return
		}

		c.Next()
	}
}

// clientAddr derives the limiting key from forwarded headers, falling
// back to the peer address.
func clientAddr(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		// First hop is the original client
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := c.GetHeader("X-Real-IP"); real != "" {
		return real
	}
	return c.ClientIP()
}

func (l *Limiter) bypass(ip, host string) bool {
	if addr, err := netip.ParseAddr(ip); err == nil {
		// Loopback and RFC 1918 ranges
		if addr.IsLoopback() || addr.IsPrivate() {
			return true
		}
	}
	for _, trusted := range l.trustedHosts {
		if trusted != "" && strings.Contains(host, trusted) {
			return true
		}
	}
	return false
}
