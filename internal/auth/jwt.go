// Package auth implements §4.1 step 5's auth stage: API-key and OAuth
// bearer-token verification, producing an immutable model.AuthContext.
// JWKS caching and RS256/HS256 dual-mode verification are grounded on the
// teacher's internal/auth/jwt.go; the per-request upsert into a
// relational app_user table is dropped since this gateway's storage is a
// black-box per-tenant K/V (§4.9), not a row-oriented user table.
package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/dot-do/functions-gateway/internal/model"
)

// JWTCfg holds JWT authentication configuration.
type JWTCfg struct {
	HS256Secret       string
	DevMode           bool
	Issuer            string
	JWKSURL           string
	Audience          string
	AcceptedAudiences []string
}

// apiKeyPrefix matches §4.1's API-key detection rule for bearer tokens:
// a token beginning with any of these prefixes is treated as an API key
// rather than forwarded to OAuth verification.
var apiKeyPrefix = regexp.MustCompile(`^(sk_|pk_|fn_|api_|key_)`)

// jwksCache caches an upstream IdP's RS256 public keys by kid.
type jwksCache struct {
	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	lastFetch  time.Time
	cacheTTL   time.Duration
	jwksURL    string
	httpClient *http.Client
}

type jwksResponse struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (c *jwksCache) fetchJWKS(forceRefresh bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh && time.Since(c.lastFetch) < c.cacheTTL && len(c.keys) > 0 {
		return nil
	}

	resp, err := c.httpClient.Get(c.jwksURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read JWKS response: %w", err)
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return fmt.Errorf("failed to parse JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey)
	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Use != "sig" {
			continue
		}
		nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
		if err != nil {
			continue
		}
		eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
		if err != nil {
			continue
		}
		var eInt int
		for _, b := range eBytes {
			eInt = eInt<<8 | int(b)
		}
		keys[key.Kid] = &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: eInt}
	}

	if len(keys) == 0 {
		return errors.New("no valid RSA signing keys found in JWKS")
	}

	c.keys = keys
	c.lastFetch = time.Now()
	log.Info().Int("key_count", len(keys)).Msg("refreshed JWKS cache")
	return nil
}

func (c *jwksCache) getPublicKey(kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	expired := time.Since(c.lastFetch) >= c.cacheTTL
	c.mu.RUnlock()

	if expired {
		if err := c.fetchJWKS(false); err != nil {
			log.Warn().Err(err).Msg("failed to refresh expired JWKS cache, using stale keys")
		}
	}

	c.mu.RLock()
	key, ok := c.keys[kid]
	c.mu.RUnlock()
	if ok {
		return key, nil
	}

	if err := c.fetchJWKS(true); err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS for missing key %s: %w", kid, err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if key, ok := c.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("key ID %s not found in JWKS even after refresh", kid)
}

// Verifier validates bearer tokens and builds the claims this gateway
// needs to populate a model.AuthContext.
type Verifier struct {
	cfg  JWTCfg
	jwks *jwksCache
}

// NewVerifier constructs a Verifier, pre-fetching the JWKS set if an
// upstream IdP is configured.
func NewVerifier(cfg JWTCfg) *Verifier {
	v := &Verifier{cfg: cfg}
	if cfg.JWKSURL != "" {
		v.jwks = &jwksCache{
			keys:       make(map[string]*rsa.PublicKey),
			cacheTTL:   time.Hour,
			jwksURL:    cfg.JWKSURL,
			httpClient: &http.Client{Timeout: 10 * time.Second},
		}
		if err := v.jwks.fetchJWKS(false); err != nil {
			log.Warn().Err(err).Msg("failed to pre-fetch JWKS (will retry on first request)")
		}
	}
	return v
}

// Claims is the subset of standard + custom JWT claims this gateway
// reads off a verified token.
type Claims struct {
	Sub           string
	Scopes        []string
	ExpiresAt     time.Time
	CurrentOrg    string
	Organizations []string
}

// VerifyBearer validates an OAuth bearer token (RS256 via JWKS, or HS256
// for backend/dev tokens) and returns the claims needed to build an
// AuthContext.
func (v *Verifier) VerifyBearer(tokenString string) (Claims, error) {
	if tokenString == "" {
		return Claims{}, errors.New("token is empty")
	}

	raw := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tokenString, raw, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodRSA:
			if v.jwks == nil {
				return nil, errors.New("JWKS not configured")
			}
			kid, ok := t.Header["kid"].(string)
			if !ok || kid == "" {
				return nil, errors.New("missing kid in token header")
			}
			return v.jwks.getPublicKey(kid)
		case *jwt.SigningMethodHMAC:
			if v.cfg.HS256Secret == "" {
				return nil, errors.New("HS256 secret not configured")
			}
			return []byte(v.cfg.HS256Secret), nil
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
	})
	if err != nil || !t.Valid {
		return Claims{}, fmt.Errorf("jwt validation failed: %w", err)
	}

	tokenType, _ := raw["token_type"].(string)
	issuer, _ := raw["iss"].(string)
	isBackendToken := tokenType == "backend" || (tokenType == "" && issuer == "functions-gateway")

	if !isBackendToken {
		if v.cfg.Issuer != "" && issuer != v.cfg.Issuer {
			return Claims{}, fmt.Errorf("invalid issuer: expected %s, got %v", v.cfg.Issuer, raw["iss"])
		}
		skipAudience := v.cfg.Issuer != "" && issuer == v.cfg.Issuer && v.cfg.Audience == "" && len(v.cfg.AcceptedAudiences) == 0
		if !skipAudience && (v.cfg.Audience != "" || len(v.cfg.AcceptedAudiences) > 0) {
			accepted := []string{}
			if v.cfg.Audience != "" {
				accepted = append(accepted, v.cfg.Audience)
			}
			accepted = append(accepted, v.cfg.AcceptedAudiences...)
			if !audienceMatches(raw["aud"], accepted) {
				return Claims{}, fmt.Errorf("invalid audience: expected one of %v, got %v", accepted, raw["aud"])
			}
		}
	}

	sub, ok := raw["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, errors.New("missing or invalid sub claim")
	}

	c := Claims{Sub: sub}
	if exp, ok := raw["exp"].(float64); ok {
		c.ExpiresAt = time.Unix(int64(exp), 0)
	}
	if scopesRaw, ok := raw["scope"].(string); ok {
		c.Scopes = strings.Fields(scopesRaw)
	}
	if org, ok := raw["current_org"].(string); ok {
		c.CurrentOrg = org
	}
	if orgs, ok := raw["organizations"].([]interface{}); ok {
		for _, o := range orgs {
			if s, ok := o.(string); ok {
				c.Organizations = append(c.Organizations, s)
			}
		}
	}

	return c, nil
}

func audienceMatches(aud any, accepted []string) bool {
	switch v := aud.(type) {
	case string:
		for _, a := range accepted {
			if v == a {
				return true
			}
		}
	case []interface{}:
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			for _, a := range accepted {
				if s == a {
					return true
				}
			}
		}
	}
	return false
}

// IsAPIKeyToken reports whether a bearer token's prefix marks it as an
// API key rather than an OAuth token, per §4.1 step 5.
func IsAPIKeyToken(token string) bool {
	return apiKeyPrefix.MatchString(token)
}

// BuildAuthContext converts verified claims into the request's immutable
// AuthContext.
func BuildAuthContext(c Claims, isAPIKey bool, tokenHint string) *model.AuthContext {
	return &model.AuthContext{
		UserID:        c.Sub,
		Scopes:        c.Scopes,
		ExpiresAt:     c.ExpiresAt,
		TokenHint:     tokenHint,
		IsAPIKey:      isAPIKey,
		CurrentOrg:    c.CurrentOrg,
		Organizations: c.Organizations,
	}
}
