// Package config collects gateway configuration from the environment,
// following the teacher's plain env()-lookup-plus-fail-fast-validation
// idiom rather than a struct-tag-driven loader.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the gateway's fully-resolved runtime configuration.
type Config struct {
	Env      string // "dev" enables verbose/console logging and permits the default HS256 JWT secret
	HTTPAddr string
	GRPCAddr string

	DatabaseURL string

	JWTHS256Secret    string
	JWTDevMode        bool
	JWTIssuer         string
	JWKSURL           string
	JWTAudience       string
	AcceptedAudiences []string

	CSRFCookieName   string
	CSRFExcludePaths []string

	RateLimitCapacity int
	RateLimitWindow   time.Duration

	ClassifierCacheSize int
	ClassifierProviders []string
	MaxRetriesPerProvider int

	MaxCascadeSteps int

	EsbuildPath string
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Load reads configuration from the environment and validates the
// combinations the teacher's main.go already guards (JWKS/issuer must be
// set together; a non-dev deployment must not run with the default HS256
// secret).
func Load() (Config, error) {
	cfg := Config{
		Env:                 env("ENV", ""),
		HTTPAddr:            env("HTTP_ADDR", ":8080"),
		GRPCAddr:            env("GRPC_ADDR", ":9090"),
		DatabaseURL:         env("DATABASE_URL", ""),
		JWTHS256Secret:      env("JWT_HS256_SECRET", "dev-secret-change-in-production"),
		JWTIssuer:           env("JWT_ISSUER", ""),
		JWKSURL:             env("JWT_JWKS_URL", ""),
		JWTAudience:         env("JWT_AUDIENCE", ""),
		CSRFCookieName:      env("CSRF_COOKIE_NAME", "csrf"),
		RateLimitCapacity:   envInt("RATE_LIMIT_CAPACITY", 120),
		RateLimitWindow:     time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,
		ClassifierCacheSize: envInt("CLASSIFIER_CACHE_SIZE", 1000),
		MaxRetriesPerProvider: envInt("CLASSIFIER_MAX_RETRIES", 2),
		MaxCascadeSteps:     envInt("MAX_CASCADE_STEPS", 32),
		EsbuildPath:         env("ESBUILD_PATH", "esbuild"),
	}

	cfg.JWTDevMode = cfg.Env == "dev"

	if mcpAud := strings.TrimSpace(env("MCP_OAUTH_AUDIENCE", "")); mcpAud != "" {
		cfg.AcceptedAudiences = append(cfg.AcceptedAudiences, mcpAud)
	}
	if providers := strings.TrimSpace(env("CLASSIFIER_PROVIDERS", "primary")); providers != "" {
		cfg.ClassifierProviders = strings.Split(providers, ",")
	}
	if excl := strings.TrimSpace(env("CSRF_EXCLUDE_PATHS", "")); excl != "" {
		cfg.CSRFExcludePaths = strings.Split(excl, ",")
	}

	if (cfg.JWKSURL != "" && cfg.JWTIssuer == "") || (cfg.JWKSURL == "" && cfg.JWTIssuer != "") {
		return cfg, fmt.Errorf("JWT_ISSUER and JWT_JWKS_URL must both be set or both be empty")
	}

	if !cfg.JWTDevMode {
		if cfg.JWTHS256Secret == "" || cfg.JWTHS256Secret == "dev-secret-change-in-production" {
			return cfg, fmt.Errorf("cannot start outside dev mode with default or missing JWT_HS256_SECRET")
		}
	}

	return cfg, nil
}
