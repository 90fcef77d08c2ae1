package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot-do/functions-gateway/internal/storage"
)

func TestRoutes_HealthIsPublicUnderBothPrefixes(t *testing.T) {
	s := &Server{StorageResolver: &storage.Resolver{Default: &storage.Facade{Registry: storage.NewMemRegistry(), Code: storage.NewMemCodeStore()}}}
	handler := s.Routes()

	for _, path := range []string{"/health", "/v1/health", "/", "/api/status"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "path %s", path)
		assert.Contains(t, rec.Body.String(), "Functions.do")
	}
}

func TestRoutes_UnauthenticatedFunctionsRouteRejected(t *testing.T) {
	s := &Server{StorageResolver: &storage.Resolver{Default: &storage.Facade{Registry: storage.NewMemRegistry(), Code: storage.NewMemCodeStore()}}}
	handler := s.Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestRoutes_UnknownPathReturnsCanonicalNotFoundEnvelope(t *testing.T) {
	s := &Server{StorageResolver: &storage.Resolver{Default: &storage.Facade{Registry: storage.NewMemRegistry(), Code: storage.NewMemCodeStore()}}}
	handler := s.Routes()

	req := httptest.NewRequest(http.MethodGet, "/no/such/route", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestRoutes_CORSPreflightSetsAllowOrigin(t *testing.T) {
	s := &Server{StorageResolver: &storage.Resolver{Default: &storage.Facade{Registry: storage.NewMemRegistry(), Code: storage.NewMemCodeStore()}}}
	handler := s.Routes()

	req := httptest.NewRequest(http.MethodOptions, "/api/functions", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
