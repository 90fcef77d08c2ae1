package httpapi

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSConfig configures the cross-origin wrapper. Grounded on the
// teacher's go.mod, which carries github.com/rs/cors as an indirect
// dependency; promoted here to direct use for the gateway's public HTTP
// surface.
type CORSConfig struct {
	AllowedOrigins []string
	AllowedHeaders []string
}

// WrapCORS wraps handler with rs/cors using cfg, defaulting to a
// permissive-but-explicit header allowlist covering the auth/correlation
// headers this gateway reads.
func WrapCORS(handler http.Handler, cfg CORSConfig) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	headers := cfg.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{
			"Content-Type", "Authorization", "X-API-Key",
			"X-Request-ID", "X-CSRF-Token", "Accept-Version", "X-API-Version",
		}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   headers,
		ExposedHeaders:   []string{"X-API-Version", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
	})
	return c.Handler(handler)
}
