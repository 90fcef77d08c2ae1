package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dot-do/functions-gateway/internal/model"
)

// codeExecutor implements §4.3a. Requires FunctionCode to be present and
// a SandboxRuntime collaborator to be configured.
type codeExecutor struct {
	runtime SandboxRuntime
}

func (e *codeExecutor) run(ctx context.Context, meta model.FunctionMetadata, code *model.FunctionCode, input json.RawMessage) Result {
	start := time.Now()

	if code == nil {
		return Result{Status: 404, Body: Body{Error: "Function code not found", Meta: durationMeta(start, "code", 1)}}
	}
	if e.runtime == nil {
		return Result{Status: 501, Body: Body{Error: "code sandbox runtime not configured", Meta: durationMeta(start, "code", 1)}}
	}

	output, err := e.runtime.Run(ctx, code.Source, code.Artifact, input)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Status: 408, Body: Body{Error: "code execution timed out", Meta: durationMeta(start, "code", 1)}}
		}
		return Result{Status: 500, Body: Body{Error: err.Error(), Meta: durationMeta(start, "code", 1)}}
	}

	m := durationMeta(start, "code", 1)
	m.CodeExecution = &CodeExecution{Runtime: "sandbox"}
	return Result{Status: 200, Body: Body{Output: output, Meta: m}}
}
