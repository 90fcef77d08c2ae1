package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/auth"
	"github.com/dot-do/functions-gateway/internal/model"
	"github.com/dot-do/functions-gateway/internal/storage"
)

// publicPaths bypasses the auth stage entirely, per §4.1 step 5.
var publicPaths = map[string]bool{
	"/":           true,
	"/health":     true,
	"/api/status": true,
}

// isPublicPath checks both the bare path and its /v1-prefixed twin, since
// every route is registered under both per §6.
func isPublicPath(path string) bool {
	if publicPaths[path] {
		return true
	}
	trimmed := versionPathPrefix.ReplaceAllString(path, "/")
	return publicPaths[trimmed]
}

func tokenHint(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// authMiddleware implements §4.1 step 5's credential stage: API key or
// OAuth bearer verification, attaching an immutable AuthContext on
// success. 401 on invalid/missing credentials; 501 when no credential
// backend is configured at all.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if s.Verifier == nil && s.APIKeys == nil {
			writeError(w, r, apperr.New("NO_CREDENTIAL_BACKEND", http.StatusNotImplemented, "no credential backend configured"))
			return
		}

		var authCtx *model.AuthContext

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			rec, err := s.lookupAPIKey(r.Context(), apiKey)
			if err != nil {
				writeError(w, r, apperr.NewCode(apperr.CodeUnauthenticated, "invalid API key"))
				return
			}
			authCtx = &model.AuthContext{UserID: rec.UserID, Scopes: rec.Scopes, IsAPIKey: true, TokenHint: tokenHint(apiKey)}
		} else {
			authHeader := r.Header.Get("Authorization")
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == "" || token == authHeader {
				writeError(w, r, apperr.NewCode(apperr.CodeUnauthenticated, "missing credentials"))
				return
			}

			if auth.IsAPIKeyToken(token) {
				rec, err := s.lookupAPIKey(r.Context(), token)
				if err != nil {
					writeError(w, r, apperr.NewCode(apperr.CodeUnauthenticated, "invalid API key"))
					return
				}
				authCtx = &model.AuthContext{UserID: rec.UserID, Scopes: rec.Scopes, IsAPIKey: true, TokenHint: tokenHint(token)}
			} else {
				if s.Verifier == nil {
					writeError(w, r, apperr.New("NO_CREDENTIAL_BACKEND", http.StatusNotImplemented, "no OAuth credential backend configured"))
					return
				}
				claims, err := s.Verifier.VerifyBearer(token)
				if err != nil {
					writeError(w, r, apperr.NewCode(apperr.CodeUnauthenticated, "invalid or expired token"))
					return
				}
				authCtx = auth.BuildAuthContext(claims, false, tokenHint(token))
			}
		}

		ctx := context.WithValue(r.Context(), authContextKey, authCtx)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) lookupAPIKey(ctx context.Context, key string) (storage.APIKeyRecord, error) {
	if s.APIKeys == nil {
		return storage.APIKeyRecord{}, apperr.NewCode(apperr.CodeUnauthenticated, "API keys not configured")
	}
	rec, err := s.APIKeys.Lookup(ctx, key)
	if err != nil {
		return storage.APIKeyRecord{}, err
	}
	if rec.Revoked {
		return storage.APIKeyRecord{}, apperr.NewCode(apperr.CodeUnauthenticated, "API key revoked")
	}
	return rec, nil
}
