// Package classifier implements the Function Classifier from §4.7:
// multi-provider AI classification with heuristic fallback and an LRU
// result cache.
package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"github.com/dot-do/functions-gateway/internal/model"
)

// Classifier orchestrates cache lookup, provider fan-out, and heuristic
// fallback.
type Classifier struct {
	cache                 *lru
	providers             []Provider
	maxRetriesPerProvider uint64
}

// New constructs a Classifier. providers must be non-empty; the first
// entry is the primary provider, the rest are fallbacks (added by the
// caller when their credential env vars are set, per §4.7).
func New(providers []Provider, cacheSize int, maxRetriesPerProvider int) (*Classifier, error) {
	if len(providers) == 0 {
		return nil, errors.New("classifier: at least one provider is required")
	}
	for _, p := range providers {
		if p == nil {
			return nil, errors.New("classifier: nil provider")
		}
	}
	if maxRetriesPerProvider < 0 {
		maxRetriesPerProvider = 0
	}
	return &Classifier{
		cache:                 newLRU(cacheSize),
		providers:             providers,
		maxRetriesPerProvider: uint64(maxRetriesPerProvider),
	}, nil
}

// CacheKey derives the cache key from (functionName, description,
// inputSchemaHash) per §3's ClassificationEntry model.
func CacheKey(name, description string, inputSchema any) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(description))
	h.Write([]byte{0})
	if inputSchema != nil {
		b, _ := json.Marshal(inputSchema)
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Classify implements the full §4.7 strategy.
func (c *Classifier) Classify(ctx context.Context, name, description string, inputSchema any) model.ClassificationEntry {
	key := CacheKey(name, description, inputSchema)
	if cached, ok := c.cache.get(key); ok {
		return cached
	}

	for _, provider := range c.providers {
		entry, ok := c.tryProvider(ctx, provider, name, description, inputSchema)
		if ok {
			c.cache.put(key, entry)
			return entry
		}
	}

	entry := heuristicClassify(name, description)
	c.cache.put(key, entry)
	return entry
}

func (c *Classifier) tryProvider(ctx context.Context, provider Provider, name, description string, inputSchema any) (model.ClassificationEntry, bool) {
	var reply string
	var latency time.Duration

	op := func() error {
		start := time.Now()
		r, err := provider.Classify(ctx, name, description, inputSchema)
		latency = time.Since(start)
		if err != nil {
			if errors.Is(err, ErrTransient) {
				return err
			}
			return backoff.Permanent(err)
		}
		reply = r
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	withRetries := backoff.WithMaxRetries(bo, c.maxRetriesPerProvider)

	if err := backoff.Retry(op, withRetries); err != nil {
		log.Warn().Err(err).Str("provider", provider.Name()).Msg("classifier provider failed")
		return model.ClassificationEntry{}, false
	}

	return parseReply(reply, provider.Name(), latency)
}

// Clear empties the classifier cache. Test-only, per Design Notes §9.
func (c *Classifier) Clear() { c.cache.clear() }

// CacheLen reports the current cache size, for tests/metrics.
func (c *Classifier) CacheLen() int { return c.cache.len() }

// Errorf is a small helper providers can use to build ErrTransient-wrapped
// errors without importing fmt+errors.Is boilerplate at every call site.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTransient, fmt.Sprintf(format, args...))
}
