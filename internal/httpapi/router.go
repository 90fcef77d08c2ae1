// Package httpapi implements the Router & Middleware Chain from §4.1:
// request pipeline, route registration, and the handler groups for
// functions CRUD, invoke, cascade, human tasks, and auth introspection.
// Grounded on the teacher's internal/httpapi/router.go (chi.Mux-based
// Server with route groups and a writeJSON/writeError helper pair),
// generalized from a single-tenant sync API to this gateway's
// functions/invoke/cascade/task surface.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/dot-do/functions-gateway/internal/agentic"
	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/auth"
	"github.com/dot-do/functions-gateway/internal/cascade"
	"github.com/dot-do/functions-gateway/internal/classifier"
	"github.com/dot-do/functions-gateway/internal/compiler"
	"github.com/dot-do/functions-gateway/internal/dispatch"
	"github.com/dot-do/functions-gateway/internal/humantask"
	"github.com/dot-do/functions-gateway/internal/logstore"
	"github.com/dot-do/functions-gateway/internal/ratelimiter"
	"github.com/dot-do/functions-gateway/internal/storage"
)

type storageFacade = storage.Facade

// Server holds every collaborator the HTTP surface dispatches into. Any
// field may be left nil in tests; handlers degrade to the per-tier 501/503
// contracts described in §4.3 rather than panicking.
type Server struct {
	Verifier *auth.Verifier
	APIKeys  storage.APIKeyStore
	OrgCache *auth.OrgCache

	StorageResolver *storage.Resolver

	Limiter           *ratelimiter.Limiter
	RateLimitCapacity int
	RateLimitWindow   time.Duration

	CSRF CSRFConfig
	CORS CORSConfig

	Dispatcher *dispatch.Dispatcher
	Classifier *classifier.Classifier
	Compiler   *compiler.Service
	Tasks      *humantask.Store
	ToolPool   *agentic.Pool
	LogStore   *logstore.Store
}

// cascadeEngineFor builds a cascade.Engine bound to f so each step's
// resolver sees the same per-request storage facade (per-user or
// default, per §4.9's resolution rule) that resolved the top-level
// cascade function itself.
func (s *Server) cascadeEngineFor(f *storageFacade) *cascade.Engine {
	return cascade.New(s.Dispatcher, &cascadeResolver{facade: f})
}

// Routes assembles the full chi router: global middleware, then the
// route table registered identically under /v1 and the bare root, per
// §6's "every path also exists without the /v1 prefix" rule.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestIDMiddleware)
	r.Use(apiVersionMiddleware)
	r.Use(accessLogMiddleware)
	r.Use(recovererMiddleware)
	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	mount := func(r chi.Router) {
		r.NotFound(notFoundHandler)
		r.MethodNotAllowed(methodNotAllowedHandler)

		r.Get("/health", s.Health)
		r.Get("/", s.Health)
		r.Get("/api/status", s.Health)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.rateLimitMiddleware)

			r.Get("/api/functions", s.ListFunctions)
			r.Post("/api/functions", s.DeployFunction)
			r.Get("/api/functions/{id}", s.GetFunction)
			r.Patch("/api/functions/{id}", s.UpdateFunction)
			r.Delete("/api/functions/{id}", s.DeleteFunction)

			r.Post("/functions/{id}", s.Invoke)
			r.Post("/functions/{id}/invoke", s.Invoke)
			r.Get("/functions/{id}/logs", s.Logs)
			r.Get("/functions/{id}/logs/stream", s.LogsStream)

			r.Post("/cascade/{id}", s.Cascade)

			r.Get("/api/auth/validate", s.AuthValidate)
			r.Get("/api/auth/me", s.AuthMe)
			r.Get("/api/auth/orgs", s.AuthOrgs)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Use(s.rateLimitMiddleware)
			r.Use(csrfMiddleware(s.CSRF))

			r.Get("/tasks", s.ListTasks)
			r.Get("/tasks/{id}", s.GetTask)
			r.Post("/tasks/{id}/respond", s.RespondTask)
			r.Delete("/tasks/{id}", s.CancelTask)
		})
	}

	r.Route("/v1", mount)
	mount(r)

	log.Info().Msg("HTTP routes registered")
	return WrapCORS(r, s.CORS)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.NewCode(apperr.CodeNotFound, "no route matches "+r.URL.Path))
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.NewCode(apperr.CodeMethodNotAllowed, "method not allowed for "+r.URL.Path))
}

// Health handles GET /health, /, and /api/status — always public.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "Functions.do"})
}

func storageListOptions(cursor string, limit int) storage.ListOptions {
	return storage.ListOptions{Cursor: cursor, Limit: limit}
}

// notFoundOrInternal maps a storage-layer ErrNotFound to the canonical
// FUNCTION_NOT_FOUND 404, and anything else to INTERNAL_ERROR.
func notFoundOrInternal(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NewCode(apperr.CodeFunctionNotFound, "Function not found")
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err)
}

func compileOptionsDefault() compiler.Options {
	return compiler.Options{Loader: compiler.LoaderTS, Format: compiler.FormatESM}
}
