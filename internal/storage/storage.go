// Package storage defines the per-tenant storage façade: a uniform
// interface the rest of the gateway programs against, with a Postgres-
// backed adapter (pgstore) modeling the spec's "black-box K/V with
// list-by-prefix" non-goal, and an in-memory adapter for tests and the
// legacy migration path the spec allows for.
package storage

import (
	"context"
	"errors"

	"github.com/dot-do/functions-gateway/internal/model"
)

// ErrNotFound is returned by Get/GetVersion when the key is absent.
var ErrNotFound = errors.New("storage: not found")

// ErrNotConfigured is returned by Resolve when no backend is reachable for
// the request's auth context — mirrors §4.9's "storage not configured".
var ErrNotConfigured = errors.New("storage not configured")

// ListOptions bounds a prefix listing.
type ListOptions struct {
	Cursor string
	Limit  int
}

// ListResult is a page of registry entries.
type ListResult struct {
	Items      []model.FunctionMetadata
	NextCursor string
	HasMore    bool
}

// Registry stores FunctionMetadata keyed by (tenant, functionId[, version]).
type Registry interface {
	Put(ctx context.Context, tenant string, meta model.FunctionMetadata) error
	Get(ctx context.Context, tenant, functionID string) (model.FunctionMetadata, error)
	Update(ctx context.Context, tenant, functionID string, patch map[string]any) (model.FunctionMetadata, error)
	Delete(ctx context.Context, tenant, functionID string) error
	List(ctx context.Context, tenant string, opts ListOptions) (ListResult, error)

	PutVersion(ctx context.Context, tenant, functionID, version string, meta model.FunctionMetadata) error
	GetVersion(ctx context.Context, tenant, functionID, version string) (model.FunctionMetadata, error)
	ListVersions(ctx context.Context, tenant, functionID string) ([]string, error)

	// Rollback sets the current pointer for functionID to version and
	// records a {from,to,at} history entry (§9 Open Questions).
	Rollback(ctx context.Context, tenant, functionID, version string) (RollbackRecord, error)
	History(ctx context.Context, tenant, functionID string) ([]RollbackRecord, error)
}

// RollbackRecord is one entry in a function's rollback history.
type RollbackRecord struct {
	From string `json:"from"`
	To   string `json:"to"`
	At   string `json:"at"`
}

// CodeStore stores FunctionCode (source/compiled artifact/source map).
type CodeStore interface {
	Put(ctx context.Context, tenant, functionID string, code model.FunctionCode) error
	Get(ctx context.Context, tenant, functionID string) (model.FunctionCode, error)
	Delete(ctx context.Context, tenant, functionID string) error

	PutCompiled(ctx context.Context, tenant, functionID, artifact string) error
	GetCompiled(ctx context.Context, tenant, functionID string) (string, error)

	PutSourceMap(ctx context.Context, tenant, functionID, sourceMap string) error
	GetSourceMap(ctx context.Context, tenant, functionID string) (string, error)

	ListVersions(ctx context.Context, tenant, functionID string) ([]string, error)
}

// APIKeyRecord is an issued API key's metadata.
type APIKeyRecord struct {
	Key       string
	TenantID  string
	UserID    string
	Scopes    []string
	Revoked   bool
}

// APIKeyStore is the optional API-key collaborator.
type APIKeyStore interface {
	Lookup(ctx context.Context, key string) (APIKeyRecord, error)
}

// Facade bundles the three collaborators behind the resolution rule in
// §4.9: per-user coordinators win when configured and the caller is
// authenticated; otherwise the Resolver's Default is used, and resolution
// fails with ErrNotConfigured only when there is no Default.
type Facade struct {
	Registry Registry
	Code     CodeStore
	APIKeys  APIKeyStore
}

// Resolver selects a Facade for a request: the PerUser entry for an
// authenticated user id when one exists, else Default; with neither it
// returns ErrNotConfigured.
type Resolver struct {
	PerUser map[string]*Facade // keyed on user id; populated lazily in practice
	Default *Facade
}

func (r *Resolver) Resolve(userID string) (*Facade, error) {
	if userID != "" && r.PerUser != nil {
		if f, ok := r.PerUser[userID]; ok {
			return f, nil
		}
	}
	if r.Default != nil {
		return r.Default, nil
	}
	return nil, ErrNotConfigured
}
