package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstantTimeEqual(t *testing.T) {
	assert.True(t, constantTimeEqual("abc", "abc"))
	assert.False(t, constantTimeEqual("abc", "abd"))
	assert.False(t, constantTimeEqual("abc", "abcd"))
	assert.False(t, constantTimeEqual("abcd", "abc"))
	assert.True(t, constantTimeEqual("", ""))
}

func TestGenerateCSRFToken_Unique64CharHex(t *testing.T) {
	a, err := GenerateCSRFToken()
	require.NoError(t, err)
	b, err := GenerateCSRFToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Len(t, b, 64)
	assert.NotEqual(t, a, b)
}

func TestMatchesExclude(t *testing.T) {
	patterns := []string{"/healthz", "/webhooks/*", "/public/**"}

	assert.True(t, matchesExclude("/healthz", patterns))
	assert.False(t, matchesExclude("/healthzzz", patterns))
	assert.True(t, matchesExclude("/webhooks/stripe", patterns))
	assert.False(t, matchesExclude("/webhooks/stripe/nested", patterns))
	assert.True(t, matchesExclude("/public/assets/app.js", patterns))
	assert.False(t, matchesExclude("/other", patterns))
}

func TestCSRFBypass(t *testing.T) {
	cfg := CSRFConfig{ExcludePatterns: []string{"/webhooks/*"}}

	get := httptest.NewRequest(http.MethodGet, "/functions", nil)
	assert.True(t, csrfBypass(get, cfg))

	apiKey := httptest.NewRequest(http.MethodPost, "/functions", nil)
	apiKey.Header.Set("X-API-Key", "fn_abc")
	assert.True(t, csrfBypass(apiKey, cfg))

	bearer := httptest.NewRequest(http.MethodPost, "/functions", nil)
	bearer.Header.Set("Authorization", "Bearer xyz")
	assert.True(t, csrfBypass(bearer, cfg))

	excluded := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", nil)
	assert.True(t, csrfBypass(excluded, cfg))

	browser := httptest.NewRequest(http.MethodPost, "/functions", nil)
	assert.False(t, csrfBypass(browser, cfg))
}

func TestCSRFMiddleware_RejectsMissingOrMismatchedToken(t *testing.T) {
	cfg := CSRFConfig{CookieName: "csrf"}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := requestIDMiddleware(csrfMiddleware(cfg)(next))

	t.Run("missing both", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/functions", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("mismatched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/functions", nil)
		req.Header.Set("X-CSRF-Token", "aaa")
		req.AddCookie(&http.Cookie{Name: "csrf", Value: "bbb"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("matched", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/functions", nil)
		req.Header.Set("X-CSRF-Token", "matching-token")
		req.AddCookie(&http.Cookie{Name: "csrf", Value: "matching-token"})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
