package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dot-do/functions-gateway/internal/agentic"
	"github.com/dot-do/functions-gateway/internal/model"
)

// agenticExecutor implements §4.3c. Requires an LLMChat collaborator
// exposing a chat capability. Tool handlers are produced by the agentic
// package's per-function-id executor pool.
type agenticExecutor struct {
	llm  LLMChat
	pool *agentic.Pool
	// recursiveDispatch backs ToolKindFunction tool calls; wired by the
	// top-level Dispatcher to avoid an import cycle.
	recursiveDispatch func(ctx context.Context, functionID string, input json.RawMessage) (json.RawMessage, error)
}

func (e *agenticExecutor) run(ctx context.Context, meta model.FunctionMetadata, input json.RawMessage, tenantID, correlationID string) Result {
	start := time.Now()

	if e.llm == nil {
		return Result{Status: 503, Body: Body{Error: "agentic LLM collaborator not configured", Meta: durationMeta(start, "agentic", 3)}}
	}

	executor := e.pool.GetOrCreate(meta.ID, meta.Tools)
	tc := &agentic.ToolContext{
		TenantID:      tenantID,
		CorrelationID: correlationID,
		Dispatch:      e.recursiveDispatch,
	}

	caller := func(callCtx context.Context, name string, args json.RawMessage) (any, error) {
		return executor.Call(callCtx, tc, name, args)
	}

	res, err := e.llm.Chat(ctx, meta.Goal, input, executor.ToolNames(), caller)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Status: 408, Body: Body{Error: "agentic execution timed out", Meta: durationMeta(start, "agentic", 3)}}
		}
		return Result{Status: 500, Body: Body{Error: err.Error(), Meta: durationMeta(start, "agentic", 3)}}
	}

	m := durationMeta(start, "agentic", 3)
	m.AgenticExecution = &AgenticExecution{
		ToolCalls:  res.ToolCalls,
		ToolsUsed:  res.ToolsUsed,
		StopReason: res.StopReason,
	}
	return Result{Status: 200, Body: Body{Output: res.Output, Meta: m}}
}
