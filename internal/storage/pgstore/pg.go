// Package pgstore is the Postgres-backed adapter for the per-tenant
// storage façade. It models the spec's "black-box K/V with list-by-prefix"
// non-goal as a single (tenant_id, key) -> jsonb value table, adapted from
// the teacher's pgxpool connection-pool construction in internal/db.
package pgstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/dot-do/functions-gateway/internal/model"
	"github.com/dot-do/functions-gateway/internal/storage"
)

// Open creates a new PostgreSQL connection pool, mirroring the teacher's
// internal/db.Open: bounded pool size, health-checked on startup.
func Open(ctx context.Context, url string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Int32("max_conns", cfg.MaxConns).
		Int32("min_conns", cfg.MinConns).
		Msg("postgres connection pool created")

	return pool, nil
}

// schema creates the single K/V table this adapter needs. Called once at
// startup; migrations beyond this are out of scope (deployment tooling is
// a non-goal).
const schema = `
CREATE TABLE IF NOT EXISTS gateway_kv (
	tenant_id  text NOT NULL,
	key        text NOT NULL,
	value      jsonb NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (tenant_id, key)
);
CREATE INDEX IF NOT EXISTS gateway_kv_prefix_idx ON gateway_kv (tenant_id, key text_pattern_ops);
`

// EnsureSchema creates the backing table if it does not already exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

// Registry is the Postgres-backed storage.Registry implementation. Current
// metadata is stored under key "fn:<id>", versions under
// "fn:<id>:v:<version>", and rollback history under "fn:<id>:history".
type Registry struct {
	pool *pgxpool.Pool
}

func NewRegistry(pool *pgxpool.Pool) *Registry { return &Registry{pool: pool} }

func (r *Registry) put(ctx context.Context, tenant, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO gateway_kv (tenant_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant_id, key) DO UPDATE SET value = excluded.value, updated_at = now()
	`, tenant, key, b)
	return err
}

func (r *Registry) get(ctx context.Context, tenant, key string, dst any) error {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT value FROM gateway_kv WHERE tenant_id=$1 AND key=$2`, tenant, key).Scan(&raw)
	if err != nil {
		return storage.ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

func (r *Registry) Put(ctx context.Context, tenant string, meta model.FunctionMetadata) error {
	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	meta.UpdatedAt = now
	meta.TenantID = tenant
	return r.put(ctx, tenant, "fn:"+meta.ID, meta)
}

func (r *Registry) Get(ctx context.Context, tenant, functionID string) (model.FunctionMetadata, error) {
	var meta model.FunctionMetadata
	if err := r.get(ctx, tenant, "fn:"+functionID, &meta); err != nil {
		return model.FunctionMetadata{}, err
	}
	return meta, nil
}

func (r *Registry) Update(ctx context.Context, tenant, functionID string, patch map[string]any) (model.FunctionMetadata, error) {
	meta, err := r.Get(ctx, tenant, functionID)
	if err != nil {
		return model.FunctionMetadata{}, err
	}
	raw, _ := json.Marshal(meta)
	var generic map[string]any
	_ = json.Unmarshal(raw, &generic)
	for k, v := range patch {
		generic[k] = v
	}
	merged, _ := json.Marshal(generic)
	var out model.FunctionMetadata
	if err := json.Unmarshal(merged, &out); err != nil {
		return model.FunctionMetadata{}, err
	}
	out.UpdatedAt = time.Now().UTC()
	if err := r.put(ctx, tenant, "fn:"+functionID, out); err != nil {
		return model.FunctionMetadata{}, err
	}
	return out, nil
}

func (r *Registry) Delete(ctx context.Context, tenant, functionID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM gateway_kv WHERE tenant_id=$1 AND key=$2`, tenant, "fn:"+functionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *Registry) List(ctx context.Context, tenant string, opts storage.ListOptions) (storage.ListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT key, value FROM gateway_kv
		WHERE tenant_id=$1 AND key LIKE 'fn:%' AND key NOT LIKE '%:v:%' AND key NOT LIKE '%:history'
		AND key > $2
		ORDER BY key
		LIMIT $3
	`, tenant, "fn:"+opts.Cursor, limit+1)
	if err != nil {
		return storage.ListResult{}, err
	}
	defer rows.Close()

	var items []model.FunctionMetadata
	var lastKey string
	for rows.Next() {
		var k string
		var raw []byte
		if err := rows.Scan(&k, &raw); err != nil {
			return storage.ListResult{}, err
		}
		var meta model.FunctionMetadata
		if err := json.Unmarshal(raw, &meta); err != nil {
			return storage.ListResult{}, err
		}
		items = append(items, meta)
		lastKey = k
	}

	hasMore := false
	if len(items) > limit {
		items = items[:limit]
		hasMore = true
	}
	next := ""
	if hasMore && len(items) > 0 {
		next = items[len(items)-1].ID
	}
	_ = lastKey
	return storage.ListResult{Items: items, NextCursor: next, HasMore: hasMore}, nil
}

func (r *Registry) PutVersion(ctx context.Context, tenant, functionID, version string, meta model.FunctionMetadata) error {
	meta.Version = version
	return r.put(ctx, tenant, "fn:"+functionID+":v:"+version, meta)
}

func (r *Registry) GetVersion(ctx context.Context, tenant, functionID, version string) (model.FunctionMetadata, error) {
	var meta model.FunctionMetadata
	if err := r.get(ctx, tenant, "fn:"+functionID+":v:"+version, &meta); err != nil {
		return model.FunctionMetadata{}, err
	}
	return meta, nil
}

func (r *Registry) ListVersions(ctx context.Context, tenant, functionID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT key FROM gateway_kv WHERE tenant_id=$1 AND key LIKE $2`,
		tenant, "fn:"+functionID+":v:%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	prefix := "fn:" + functionID + ":v:"
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k[len(prefix):])
	}
	return out, nil
}

func (r *Registry) Rollback(ctx context.Context, tenant, functionID, version string) (storage.RollbackRecord, error) {
	target, err := r.GetVersion(ctx, tenant, functionID, version)
	if err != nil {
		return storage.RollbackRecord{}, err
	}
	current, _ := r.Get(ctx, tenant, functionID)
	rec := storage.RollbackRecord{From: current.Version, To: version, At: time.Now().UTC().Format(time.RFC3339)}

	if err := r.Put(ctx, tenant, target); err != nil {
		return storage.RollbackRecord{}, err
	}

	hist, _ := r.History(ctx, tenant, functionID)
	hist = append(hist, rec)
	if err := r.put(ctx, tenant, "fn:"+functionID+":history", hist); err != nil {
		return storage.RollbackRecord{}, err
	}
	return rec, nil
}

func (r *Registry) History(ctx context.Context, tenant, functionID string) ([]storage.RollbackRecord, error) {
	var hist []storage.RollbackRecord
	if err := r.get(ctx, tenant, "fn:"+functionID+":history", &hist); err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return hist, nil
}

// CodeStore is the Postgres-backed storage.CodeStore implementation,
// stored under key "code:<id>" in the same gateway_kv table.
type CodeStore struct {
	pool *pgxpool.Pool
}

func NewCodeStore(pool *pgxpool.Pool) *CodeStore { return &CodeStore{pool: pool} }

func (c *CodeStore) codeKey(functionID string) string { return "code:" + functionID }

func (c *CodeStore) Put(ctx context.Context, tenant, functionID string, code model.FunctionCode) error {
	b, err := json.Marshal(code)
	if err != nil {
		return err
	}
	_, err = c.pool.Exec(ctx, `
		INSERT INTO gateway_kv (tenant_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (tenant_id, key) DO UPDATE SET value = excluded.value, updated_at = now()
	`, tenant, c.codeKey(functionID), b)
	return err
}

func (c *CodeStore) Get(ctx context.Context, tenant, functionID string) (model.FunctionCode, error) {
	var raw []byte
	err := c.pool.QueryRow(ctx, `SELECT value FROM gateway_kv WHERE tenant_id=$1 AND key=$2`,
		tenant, c.codeKey(functionID)).Scan(&raw)
	if err != nil {
		return model.FunctionCode{}, storage.ErrNotFound
	}
	var code model.FunctionCode
	if err := json.Unmarshal(raw, &code); err != nil {
		return model.FunctionCode{}, err
	}
	return code, nil
}

func (c *CodeStore) Delete(ctx context.Context, tenant, functionID string) error {
	ct, err := c.pool.Exec(ctx, `DELETE FROM gateway_kv WHERE tenant_id=$1 AND key=$2`, tenant, c.codeKey(functionID))
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (c *CodeStore) PutCompiled(ctx context.Context, tenant, functionID, artifact string) error {
	code, err := c.Get(ctx, tenant, functionID)
	if err != nil {
		code = model.FunctionCode{}
	}
	code.Artifact = artifact
	return c.Put(ctx, tenant, functionID, code)
}

func (c *CodeStore) GetCompiled(ctx context.Context, tenant, functionID string) (string, error) {
	code, err := c.Get(ctx, tenant, functionID)
	if err != nil {
		return "", err
	}
	return code.Artifact, nil
}

func (c *CodeStore) PutSourceMap(ctx context.Context, tenant, functionID, sourceMap string) error {
	code, err := c.Get(ctx, tenant, functionID)
	if err != nil {
		code = model.FunctionCode{}
	}
	code.SourceMap = sourceMap
	return c.Put(ctx, tenant, functionID, code)
}

func (c *CodeStore) GetSourceMap(ctx context.Context, tenant, functionID string) (string, error) {
	code, err := c.Get(ctx, tenant, functionID)
	if err != nil {
		return "", err
	}
	return code.SourceMap, nil
}

func (c *CodeStore) ListVersions(ctx context.Context, tenant, functionID string) ([]string, error) {
	return nil, nil
}
