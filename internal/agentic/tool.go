// Package agentic implements the Agentic tier executor from §4.3c: a
// per-function-id pool of tool-equipped reasoning loop handlers.
package agentic

import (
	"context"
	"encoding/json"

	"github.com/dot-do/functions-gateway/internal/model"
)

// ToolContext carries the request-scoped collaborators a tool handler may
// need: the correlation id for logging, the tenant/auth context, and a
// recursive dispatch hook for ToolKindFunction.
type ToolContext struct {
	TenantID      string
	CorrelationID string
	// Dispatch recursively invokes another deployed function by id, for
	// ToolKindFunction tools. It returns the raw output without _meta, per
	// §4.3c.
	Dispatch func(ctx context.Context, functionID string, input json.RawMessage) (json.RawMessage, error)
}

// Handler executes one tool invocation and returns its JSON-serializable
// result (never an error for "tool not available"; that case is surfaced
// as a structured {error:...} result instead, per §4.3c).
type Handler func(ctx context.Context, tc *ToolContext, args json.RawMessage) (any, error)

// HandlerFactory produces a Handler for a given ToolSpec, dispatching by
// implementation kind. Inline always resolves to the rejecting handler.
func HandlerFactory(spec model.ToolSpec) Handler {
	switch spec.Kind {
	case model.ToolKindBuiltin:
		return builtinHandler(spec.Name)
	case model.ToolKindAPI:
		return apiHandler(spec.Endpoint)
	case model.ToolKindFunction:
		return functionHandler(spec.FunctionID)
	case model.ToolKindInline:
		return inlineHandler()
	default:
		return notAvailableHandler(string(spec.Kind))
	}
}

// notAvailable is the structured (not thrown) error shape §4.3c requires
// for tools that can't run in this environment.
type notAvailable struct {
	Error string `json:"error"`
}

func notAvailableHandler(kind string) Handler {
	return func(ctx context.Context, tc *ToolContext, args json.RawMessage) (any, error) {
		return notAvailable{Error: kind + " not available in this environment"}, nil
	}
}

func inlineHandler() Handler {
	return func(ctx context.Context, tc *ToolContext, args json.RawMessage) (any, error) {
		return notAvailable{Error: "inline tools are not supported; deploy a function and reference it via a function-kind tool"}, nil
	}
}

func functionHandler(functionID string) Handler {
	return func(ctx context.Context, tc *ToolContext, args json.RawMessage) (any, error) {
		if tc == nil || tc.Dispatch == nil {
			return notAvailable{Error: "recursive function dispatch not available in this environment"}, nil
		}
		out, err := tc.Dispatch(ctx, functionID, args)
		if err != nil {
			return notAvailable{Error: err.Error()}, nil
		}
		var v any
		if err := json.Unmarshal(out, &v); err != nil {
			return string(out), nil
		}
		return v, nil
	}
}
