package agentic

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dot-do/functions-gateway/internal/model"
)

// Executor is one agentic function's bound tool handlers, registered by
// tool name. Instances cache only handler bindings derived from
// metadata, never execution state, so recreating one is always safe
// (§5's "cold map is always safe" invariant).
type Executor struct {
	functionID string
	mu         sync.RWMutex
	handlers   map[string]Handler
	ordering   []string
}

func newExecutor(functionID string, tools []model.ToolSpec) *Executor {
	e := &Executor{functionID: functionID, handlers: make(map[string]Handler)}
	for _, t := range tools {
		e.handlers[t.Name] = HandlerFactory(t)
		e.ordering = append(e.ordering, t.Name)
	}
	return e
}

// Call invokes a registered tool by name.
func (e *Executor) Call(ctx context.Context, tc *ToolContext, name string, args json.RawMessage) (any, error) {
	e.mu.RLock()
	h, ok := e.handlers[name]
	e.mu.RUnlock()
	if !ok {
		return notAvailable{Error: fmt.Sprintf("tool %q not registered for function %q", name, e.functionID)}, nil
	}
	return h(ctx, tc, args)
}

// ToolNames returns the registered tool names in declaration order.
func (e *Executor) ToolNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.ordering))
	copy(out, e.ordering)
	return out
}

// Pool is the process-wide, function-id-keyed agentic executor pool
// described in §5: a single guarded map with explicit Clear() semantics
// for tests, no ambient singleton.
type Pool struct {
	mu        sync.RWMutex
	executors map[string]*Executor
}

// NewPool constructs an empty executor pool.
func NewPool() *Pool {
	return &Pool{executors: make(map[string]*Executor)}
}

// GetOrCreate returns the existing executor for functionID, or builds and
// registers one from the given tool specs. Once an executor exists, the
// tools argument is ignored, so changed tool specs take effect only after
// Invalidate removes the registered executor.
func (p *Pool) GetOrCreate(functionID string, tools []model.ToolSpec) *Executor {
	p.mu.RLock()
	e, ok := p.executors[functionID]
	p.mu.RUnlock()
	if ok {
		return e
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.executors[functionID]; ok {
		return e
	}
	e = newExecutor(functionID, tools)
	p.executors[functionID] = e
	return e
}

// Invalidate drops a function's cached executor, forcing a rebuild on the
// next GetOrCreate (used after a redeploy changes its tool list).
func (p *Pool) Invalidate(functionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.executors, functionID)
}

// Clear empties the pool. Test-only, per §5.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executors = make(map[string]*Executor)
}

// Len reports the number of cached executors.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.executors)
}
