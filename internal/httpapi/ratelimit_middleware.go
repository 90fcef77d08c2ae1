package httpapi

import (
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dot-do/functions-gateway/internal/ratelimiter"
)

// clientIP resolves the rate-limit IP subject per §4.5: CF-Connecting-IP,
// else the first X-Forwarded-For hop (this deployment's load balancer
// appends further hops after the client's own, so the first entry is the
// client — see the Open Question resolution in DESIGN.md), else "unknown".
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return "unknown"
}

// rateLimitMiddleware applies the fixed-window limiter from §4.5, keyed
// on the client IP and, when the route binds a function id, additionally
// on that function id.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Limiter == nil || isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		ipKey := ratelimiter.Key(ratelimiter.SubjectIP, ip)
		res := s.Limiter.CheckAndIncrement(ipKey, s.RateLimitCapacity, s.RateLimitWindow)
		if !res.Allowed {
			retryAfter := int(math.Ceil(time.Until(res.ResetAt).Seconds()))
			writeRateLimited(w, r, retryAfter)
			return
		}

		if fnID := chi.URLParam(r, "id"); fnID != "" {
			fnKey := ratelimiter.Key(ratelimiter.SubjectFunction, fnID)
			fres := s.Limiter.CheckAndIncrement(fnKey, s.RateLimitCapacity, s.RateLimitWindow)
			if !fres.Allowed {
				retryAfter := int(math.Ceil(time.Until(fres.ResetAt).Seconds()))
				writeRateLimited(w, r, retryAfter)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
