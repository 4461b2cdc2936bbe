// File: internal/middleware/ratelimit.go
package middleware

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"github.com/iyunix/go-muro/internal/ratelimit"
)

// Limiter counts requests per client identifier.
type Limiter interface {
	Allow(identifier string) ratelimit.RateLimitInfo
}

// RateLimitMiddleware rejects clients that exceeded their window with 429.
func RateLimitMiddleware(limiter Limiter, name string, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ratelimit.GetClientIP(r)
			info := limiter.Allow(clientIP)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))

			if !info.Allowed {
				retryAfter := int(math.Ceil(info.RetryAfter.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				logger.Warn("rate limited", "limiter", name, "client_ip", clientIP, "retry_after", retryAfter)

				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"error":      "Too many requests. Please try again later.",
					"retryAfter": retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
