package httpapi

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/model"
	"github.com/dot-do/functions-gateway/internal/obslog"
)

// requestIDMiddleware generates or reuses the request's correlation id,
// per §4.1 step 1: honor an inbound X-Request-ID, else mint a fresh UUID.
// Grounded on the teacher's CorrelationMiddleware (X-Correlation-ID),
// renamed to the gateway's X-Request-ID header convention.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := obslog.WithCorrelation(context.WithValue(r.Context(), requestIDKey, id), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

var versionPathPrefix = regexp.MustCompile(`^/(v\d+)/`)

// normalizeVersion turns a bare numeric value ("2") into "v2"; anything
// else passes through unchanged.
func normalizeVersion(v string) string {
	if v == "" {
		return v
	}
	if strings.HasPrefix(v, "v") {
		return v
	}
	for _, c := range v {
		if c < '0' || c > '9' {
			return v
		}
	}
	return "v" + v
}

// apiVersionMiddleware resolves the API version per §4.1 step 2's strict
// priority (path prefix > query > Accept-Version > X-API-Version >
// default) and pre-sets the X-API-Version response header so that, per
// step 9, a handler's own explicit write of that header overrides the
// default (headers are last-write-wins; the handler always runs after
// this middleware sets the default).
func apiVersionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v1"
		source := model.APIVersionSourceDefault

		switch {
		case versionPathPrefix.MatchString(r.URL.Path):
			version = versionPathPrefix.FindStringSubmatch(r.URL.Path)[1]
			source = model.APIVersionSourcePath
		case r.URL.Query().Get("version") != "":
			version = normalizeVersion(r.URL.Query().Get("version"))
			source = model.APIVersionSourceQuery
		case r.Header.Get("Accept-Version") != "":
			version = normalizeVersion(r.Header.Get("Accept-Version"))
			source = model.APIVersionSourceAcceptVersion
		case r.Header.Get("X-API-Version") != "":
			version = normalizeVersion(r.Header.Get("X-API-Version"))
			source = model.APIVersionSourceXAPIVersion
		}

		w.Header().Set("X-API-Version", version)

		ctx := context.WithValue(r.Context(), apiVersionKey, version)
		ctx = context.WithValue(ctx, apiVersionSourceKey, source)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLogMiddleware logs one structured line per request, grounded on
// the teacher's use of chi/middleware.Logger but emitting through zerolog
// to match the rest of the gateway's structured-logging convention.
func accessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: 200}
		next.ServeHTTP(rw, r)
		obslog.From(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// recovererMiddleware converts a panicking handler into the canonical
// INTERNAL_ERROR envelope instead of chi's default plaintext stack dump,
// per §4.1 step 8 and the ambient error-handling design.
func recovererMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				obslog.From(r.Context()).Error().Interface("panic", rec).Msg("recovered panic")
				writeError(w, r, apperr.NewCode(apperr.CodeInternal, "internal error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
