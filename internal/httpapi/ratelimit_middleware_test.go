package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/dot-do/functions-gateway/internal/ratelimiter"
)

func TestClientIP_PrefersCFConnectingIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("CF-Connecting-IP", "1.1.1.1")
	req.Header.Set("X-Forwarded-For", "2.2.2.2, 3.3.3.3")
	assert.Equal(t, "1.1.1.1", clientIP(req))
}

func TestClientIP_FallsBackToFirstForwardedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "2.2.2.2, 3.3.3.3")
	assert.Equal(t, "2.2.2.2", clientIP(req))
}

func TestClientIP_UnknownWhenAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "unknown", clientIP(req))
}

func TestRateLimitMiddleware_BlocksOverCapacity(t *testing.T) {
	s := &Server{
		Limiter:           ratelimiter.New(0),
		RateLimitCapacity: 2,
		RateLimitWindow:   time.Minute,
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := s.rateLimitMiddleware(next)

	mkReq := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/functions", nil)
		req.Header.Set("CF-Connecting-IP", "9.9.9.9")
		return req
	}

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, mkReq())
	assert.Equal(t, http.StatusOK, rec1.Code)

	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, mkReq())
	assert.Equal(t, http.StatusOK, rec2.Code)

	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, mkReq())
	assert.Equal(t, http.StatusTooManyRequests, rec3.Code)
	assert.NotEmpty(t, rec3.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_PublicPathBypassesLimiter(t *testing.T) {
	s := &Server{Limiter: ratelimiter.New(0), RateLimitCapacity: 0, RateLimitWindow: time.Minute}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := s.rateLimitMiddleware(next)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitMiddleware_ScopesFunctionIDSeparately(t *testing.T) {
	s := &Server{
		Limiter:           ratelimiter.New(0),
		RateLimitCapacity: 1,
		RateLimitWindow:   time.Minute,
	}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := s.rateLimitMiddleware(next)

	withFnID := func(ip, fnID string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/functions/"+fnID+"/invoke", nil)
		req.Header.Set("CF-Connecting-IP", ip)
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", fnID)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	rec1 := httptest.NewRecorder()
	handler.ServeHTTP(rec1, withFnID("5.5.5.5", "fn-a"))
	assert.Equal(t, http.StatusOK, rec1.Code)

	// Same IP, different function: IP bucket now at capacity (1), so this
	// still gets blocked by the IP-level check before the function check runs.
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, withFnID("5.5.5.5", "fn-b"))
	assert.Equal(t, http.StatusTooManyRequests, rec2.Code)

	// Different IP, same function id already seen: IP bucket is fresh, but
	// the function bucket for fn-a is already at capacity.
	rec3 := httptest.NewRecorder()
	handler.ServeHTTP(rec3, withFnID("6.6.6.6", "fn-a"))
	assert.Equal(t, http.StatusTooManyRequests, rec3.Code)
}
