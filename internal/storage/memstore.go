package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dot-do/functions-gateway/internal/model"
)

// MemRegistry is the legacy in-memory Registry adapter, kept for tests and
// the migration path alongside the Postgres-backed adapter — grounded on
// the teacher's mutex-guarded SessionStore map idiom.
type MemRegistry struct {
	mu       sync.RWMutex
	current  map[string]model.FunctionMetadata            // functionID -> current metadata
	versions map[string]map[string]model.FunctionMetadata // functionID -> version -> metadata
	history  map[string][]RollbackRecord
}

func NewMemRegistry() *MemRegistry {
	return &MemRegistry{
		current:  make(map[string]model.FunctionMetadata),
		versions: make(map[string]map[string]model.FunctionMetadata),
		history:  make(map[string][]RollbackRecord),
	}
}

func (m *MemRegistry) Put(_ context.Context, tenant string, meta model.FunctionMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	meta.TenantID = tenant
	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	m.current[key(tenant, meta.ID)] = meta
	return nil
}

func (m *MemRegistry) Get(_ context.Context, tenant, functionID string) (model.FunctionMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.current[key(tenant, functionID)]
	if !ok {
		return model.FunctionMetadata{}, ErrNotFound
	}
	return meta, nil
}

func (m *MemRegistry) Update(_ context.Context, tenant, functionID string, patch map[string]any) (model.FunctionMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenant, functionID)
	meta, ok := m.current[k]
	if !ok {
		return model.FunctionMetadata{}, ErrNotFound
	}
	applyPatch(&meta, patch)
	meta.UpdatedAt = time.Now().UTC()
	m.current[k] = meta
	return meta, nil
}

func (m *MemRegistry) Delete(_ context.Context, tenant, functionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenant, functionID)
	if _, ok := m.current[k]; !ok {
		return ErrNotFound
	}
	delete(m.current, k)
	return nil
}

func (m *MemRegistry) List(_ context.Context, tenant string, opts ListOptions) (ListResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []model.FunctionMetadata
	prefix := tenant + "/"
	for k, v := range m.current {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			all = append(all, v)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	start := 0
	if opts.Cursor != "" {
		for i, v := range all {
			if v.ID > opts.Cursor {
				start = i
				break
			}
			start = i + 1
		}
	}
	end := start + limit
	hasMore := false
	if end < len(all) {
		hasMore = true
	} else {
		end = len(all)
	}
	page := all[start:end]
	next := ""
	if hasMore && len(page) > 0 {
		next = page[len(page)-1].ID
	}
	return ListResult{Items: page, NextCursor: next, HasMore: hasMore}, nil
}

func (m *MemRegistry) PutVersion(_ context.Context, tenant, functionID, version string, meta model.FunctionMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenant, functionID)
	if m.versions[k] == nil {
		m.versions[k] = make(map[string]model.FunctionMetadata)
	}
	meta.TenantID = tenant
	meta.Version = version
	m.versions[k][version] = meta
	return nil
}

func (m *MemRegistry) GetVersion(_ context.Context, tenant, functionID, version string) (model.FunctionMetadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k := key(tenant, functionID)
	vs, ok := m.versions[k]
	if !ok {
		return model.FunctionMetadata{}, ErrNotFound
	}
	meta, ok := vs[version]
	if !ok {
		return model.FunctionMetadata{}, ErrNotFound
	}
	return meta, nil
}

func (m *MemRegistry) ListVersions(_ context.Context, tenant, functionID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vs, ok := m.versions[key(tenant, functionID)]
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(vs))
	for v := range vs {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// Rollback sets current = requested version and records {from,to,at} in
// history, per §9's resolution of the rollback Open Question.
func (m *MemRegistry) Rollback(_ context.Context, tenant, functionID, version string) (RollbackRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(tenant, functionID)
	vs, ok := m.versions[k]
	if !ok {
		return RollbackRecord{}, ErrNotFound
	}
	target, ok := vs[version]
	if !ok {
		return RollbackRecord{}, ErrNotFound
	}
	from := m.current[k].Version
	rec := RollbackRecord{From: from, To: version, At: time.Now().UTC().Format(time.RFC3339)}
	target.UpdatedAt = time.Now().UTC()
	m.current[k] = target
	m.history[k] = append(m.history[k], rec)
	return rec, nil
}

func (m *MemRegistry) History(_ context.Context, tenant, functionID string) ([]RollbackRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]RollbackRecord(nil), m.history[key(tenant, functionID)]...), nil
}

func key(tenant, functionID string) string { return tenant + "/" + functionID }

func applyPatch(meta *model.FunctionMetadata, patch map[string]any) {
	if v, ok := patch["language"].(string); ok {
		meta.Language = v
	}
	if v, ok := patch["entryPoint"].(string); ok {
		meta.EntryPoint = v
	}
	if v, ok := patch["type"].(string); ok {
		meta.Type = model.FunctionKind(v)
	}
	if v, ok := patch["model"].(string); ok {
		meta.Model = v
	}
	if v, ok := patch["goal"].(string); ok {
		meta.Goal = v
	}
	if v, ok := patch["callbackUrl"].(string); ok {
		meta.CallbackURL = v
	}
}

// MemCodeStore is the in-memory CodeStore adapter.
type MemCodeStore struct {
	mu   sync.RWMutex
	code map[string]model.FunctionCode
}

func NewMemCodeStore() *MemCodeStore {
	return &MemCodeStore{code: make(map[string]model.FunctionCode)}
}

func (c *MemCodeStore) Put(_ context.Context, tenant, functionID string, code model.FunctionCode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	code.TenantID = tenant
	code.FunctionID = functionID
	c.code[key(tenant, functionID)] = code
	return nil
}

func (c *MemCodeStore) Get(_ context.Context, tenant, functionID string) (model.FunctionCode, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.code[key(tenant, functionID)]
	if !ok {
		return model.FunctionCode{}, ErrNotFound
	}
	return v, nil
}

func (c *MemCodeStore) Delete(_ context.Context, tenant, functionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(tenant, functionID)
	if _, ok := c.code[k]; !ok {
		return ErrNotFound
	}
	delete(c.code, k)
	return nil
}

func (c *MemCodeStore) PutCompiled(_ context.Context, tenant, functionID, artifact string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(tenant, functionID)
	v := c.code[k]
	v.Artifact = artifact
	c.code[k] = v
	return nil
}

func (c *MemCodeStore) GetCompiled(_ context.Context, tenant, functionID string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.code[key(tenant, functionID)]
	if !ok {
		return "", ErrNotFound
	}
	return v.Artifact, nil
}

func (c *MemCodeStore) PutSourceMap(_ context.Context, tenant, functionID, sourceMap string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(tenant, functionID)
	v := c.code[k]
	v.SourceMap = sourceMap
	c.code[k] = v
	return nil
}

func (c *MemCodeStore) GetSourceMap(_ context.Context, tenant, functionID string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.code[key(tenant, functionID)]
	if !ok {
		return "", ErrNotFound
	}
	return v.SourceMap, nil
}

func (c *MemCodeStore) ListVersions(_ context.Context, _, _ string) ([]string, error) {
	return nil, nil
}

// MemAPIKeyStore is a static, in-memory APIKeyStore seeded at startup —
// a bootstrap/dev stand-in for a real key-management backend, per §4.9's
// "APIKeys collaborator is optional" allowance.
type MemAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]APIKeyRecord
}

func NewMemAPIKeyStore() *MemAPIKeyStore {
	return &MemAPIKeyStore{keys: make(map[string]APIKeyRecord)}
}

// Seed registers a key record, overwriting any existing entry for the
// same key.
func (m *MemAPIKeyStore) Seed(rec APIKeyRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[rec.Key] = rec
}

func (m *MemAPIKeyStore) Lookup(_ context.Context, key string) (APIKeyRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.keys[key]
	if !ok {
		return APIKeyRecord{}, ErrNotFound
	}
	return rec, nil
}
