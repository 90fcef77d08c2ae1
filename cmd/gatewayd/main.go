// Command gatewayd is the Functions.do gateway's HTTP entrypoint,
// replacing the teacher's cmd/server: structured logging setup, graceful
// shutdown, and collaborator wiring follow the same shape, generalized
// from a single Postgres-backed sync API to the gateway's storage facade,
// rate limiter, human task store, classifier, compiler, and dispatcher.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dot-do/functions-gateway/internal/agentic"
	"github.com/dot-do/functions-gateway/internal/auth"
	"github.com/dot-do/functions-gateway/internal/classifier"
	"github.com/dot-do/functions-gateway/internal/compiler"
	"github.com/dot-do/functions-gateway/internal/config"
	"github.com/dot-do/functions-gateway/internal/dispatch"
	"github.com/dot-do/functions-gateway/internal/grpcapi"
	"github.com/dot-do/functions-gateway/internal/httpapi"
	"github.com/dot-do/functions-gateway/internal/humantask"
	"github.com/dot-do/functions-gateway/internal/logstore"
	"github.com/dot-do/functions-gateway/internal/model"
	"github.com/dot-do/functions-gateway/internal/obslog"
	"github.com/dot-do/functions-gateway/internal/ratelimiter"
	"github.com/dot-do/functions-gateway/internal/storage"
	"github.com/dot-do/functions-gateway/internal/storage/pgstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	obslog.Init("functions-gateway", cfg.Env)

	ctx := context.Background()

	facade, err := buildFacade(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}

	verifier := auth.NewVerifier(auth.JWTCfg{
		HS256Secret:       cfg.JWTHS256Secret,
		DevMode:           cfg.JWTDevMode,
		Issuer:            cfg.JWTIssuer,
		JWKSURL:           cfg.JWKSURL,
		Audience:          cfg.JWTAudience,
		AcceptedAudiences: cfg.AcceptedAudiences,
	})

	classifierSvc, err := buildClassifier(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("classifier unavailable; deploys without an explicit type default to the code type")
	}

	compilerSvc := compiler.NewService(compiler.NewEsbuildRunner(cfg.EsbuildPath))

	webhooks := humantask.NewHTTPWebhookSender()
	tasks := humantask.NewStore(webhooks)

	taskSweepCtx, stopSweeper := context.WithCancel(ctx)
	go tasks.Sweeper(taskSweepCtx, time.Minute)
	defer stopSweeper()

	toolPool := agentic.NewPool()

	// The code-sandbox runtime and generative/agentic LLM providers are
	// external, non-goal collaborators (§4.3); left nil, each tier
	// reports its documented 501/503 instead of panicking.
	dispatcher := dispatch.New(nil, nil, nil, toolPool, tasks)
	dispatcher.SetFunctionResolver(functionResolver(dispatcher, facade))

	logs := logstore.New()

	limiter := ratelimiter.New(10 * time.Minute)

	srv := &httpapi.Server{
		Verifier:          verifier,
		APIKeys:           facade.APIKeys,
		OrgCache:          auth.NewOrgCache(5 * time.Minute),
		StorageResolver:   &storage.Resolver{Default: facade},
		Limiter:           limiter,
		RateLimitCapacity: cfg.RateLimitCapacity,
		RateLimitWindow:   cfg.RateLimitWindow,
		CSRF:              httpapi.CSRFConfig{CookieName: cfg.CSRFCookieName, ExcludePatterns: cfg.CSRFExcludePaths},
		CORS:              httpapi.CORSConfig{AllowedOrigins: []string{"*"}, AllowedHeaders: []string{"*"}},
		Dispatcher:        dispatcher,
		Classifier:        classifierSvc,
		Compiler:          compilerSvc,
		Tasks:             tasks,
		ToolPool:          toolPool,
		LogStore:          logs,
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	adminGRPC := grpcapi.NewServer()
	grpcCtx, stopGRPC := context.WithCancel(ctx)
	defer stopGRPC()
	go func() {
		if err := adminGRPC.Serve(grpcCtx, cfg.GRPCAddr); err != nil {
			log.Error().Err(err).Msg("admin gRPC server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")
	adminGRPC.SetServing(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	stopGRPC()
	log.Info().Msg("server stopped")
}

// buildFacade wires the Postgres-backed storage adapters when DATABASE_URL
// is set, falling back to the in-memory adapters for local/dev use.
func buildFacade(ctx context.Context, cfg config.Config) (*storage.Facade, error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set; using in-memory storage (state is lost on restart)")
		return &storage.Facade{
			Registry: storage.NewMemRegistry(),
			Code:     storage.NewMemCodeStore(),
			APIKeys:  storage.NewMemAPIKeyStore(),
		}, nil
	}

	pool, err := pgstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := pgstore.EnsureSchema(ctx, pool); err != nil {
		return nil, err
	}
	return &storage.Facade{
		Registry: pgstore.NewRegistry(pool),
		Code:     pgstore.NewCodeStore(pool),
		APIKeys:  storage.NewMemAPIKeyStore(),
	}, nil
}

func buildClassifier(cfg config.Config) (*classifier.Classifier, error) {
	var providers []classifier.Provider
	for _, name := range cfg.ClassifierProviders {
		if p := classifier.NewHTTPProvider(name); p != nil {
			providers = append(providers, p)
		}
	}
	if len(providers) == 0 {
		log.Warn().Msg("no classifier provider credentials configured; deploys without an explicit type default to the code type")
		return nil, nil
	}
	return classifier.New(providers, cfg.ClassifierCacheSize, cfg.MaxRetriesPerProvider)
}

// functionResolver closes over the dispatcher and default facade to
// satisfy the dispatcher's recursive ToolKindFunction dispatch (§4.3):
// load the target function, re-run it through the same dispatcher, and
// return its JSON-encoded output. Tenant scoping for a recursively
// dispatched function always uses the default facade's tenant, since the
// agentic tool-call path carries no per-user identity of its own.
func functionResolver(dispatcher *dispatch.Dispatcher, facade *storage.Facade) func(ctx context.Context, functionID string, input json.RawMessage) (json.RawMessage, error) {
	return func(ctx context.Context, functionID string, input json.RawMessage) (json.RawMessage, error) {
		const tenant = ""
		meta, err := facade.Registry.Get(ctx, tenant, functionID)
		if err != nil {
			return nil, err
		}
		var code *model.FunctionCode
		if meta.EffectiveKind() == model.KindCode {
			if c, cerr := facade.Code.Get(ctx, tenant, functionID); cerr == nil {
				code = &c
			}
		}
		result := dispatcher.Dispatch(ctx, dispatch.Request{
			TenantID: tenant,
			Metadata: meta,
			Code:     code,
			Input:    input,
		})
		return json.Marshal(result.Body.Output)
	}
}
