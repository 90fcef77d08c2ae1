package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot-do/functions-gateway/internal/model"
)

func TestRequestIDMiddleware_GeneratesWhenAbsent(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	requestIDMiddleware(next).ServeHTTP(rec, req)

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDMiddleware_ReusesInbound(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "fixed-id-123")
	rec := httptest.NewRecorder()
	requestIDMiddleware(next).ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id-123", seen)
	assert.Equal(t, "fixed-id-123", rec.Header().Get("X-Request-ID"))
}

func TestAPIVersionMiddleware_Priority(t *testing.T) {
	cases := []struct {
		name       string
		path       string
		query      string
		acceptVer  string
		xAPIVer    string
		wantVer    string
		wantSource model.APIVersionSource
	}{
		{name: "default", path: "/functions", wantVer: "v1", wantSource: model.APIVersionSourceDefault},
		{name: "x-api-version header", path: "/functions", xAPIVer: "2", wantVer: "v2", wantSource: model.APIVersionSourceXAPIVersion},
		{name: "accept-version header wins over x-api-version", path: "/functions", acceptVer: "v3", xAPIVer: "2", wantVer: "v3", wantSource: model.APIVersionSourceAcceptVersion},
		{name: "query wins over headers", path: "/functions", query: "version=4", acceptVer: "v3", wantVer: "v4", wantSource: model.APIVersionSourceQuery},
		{name: "path prefix wins over everything", path: "/v5/functions", query: "version=4", wantVer: "v5", wantSource: model.APIVersionSourcePath},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var gotVer string
			var gotSource model.APIVersionSource
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotVer = APIVersion(r.Context())
				gotSource = APIVersionSource(r.Context())
			})

			url := tc.path
			if tc.query != "" {
				url += "?" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, url, nil)
			if tc.acceptVer != "" {
				req.Header.Set("Accept-Version", tc.acceptVer)
			}
			if tc.xAPIVer != "" {
				req.Header.Set("X-API-Version", tc.xAPIVer)
			}
			rec := httptest.NewRecorder()
			apiVersionMiddleware(next).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantVer, gotVer)
			assert.Equal(t, tc.wantSource, gotSource)
			assert.Equal(t, tc.wantVer, rec.Header().Get("X-API-Version"))
		})
	}
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, "", normalizeVersion(""))
	assert.Equal(t, "v2", normalizeVersion("2"))
	assert.Equal(t, "v2", normalizeVersion("v2"))
	assert.Equal(t, "latest", normalizeVersion("latest"))
}

func TestAccessLogMiddleware_PropagatesStatus(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	req := httptest.NewRequest(http.MethodPost, "/functions", nil)
	rec := httptest.NewRecorder()
	requestIDMiddleware(accessLogMiddleware(next)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRecovererMiddleware_ConvertsPanicToEnvelope(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/functions", nil)
	rec := httptest.NewRecorder()
	requestIDMiddleware(recovererMiddleware(next)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
