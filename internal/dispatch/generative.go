package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dot-do/functions-gateway/internal/model"
)

// generativeExecutor implements §4.3b. Requires an LLMMessages
// collaborator exposing messages.create.
type generativeExecutor struct {
	llm LLMMessages
}

func (e *generativeExecutor) run(ctx context.Context, meta model.FunctionMetadata, input json.RawMessage) Result {
	start := time.Now()

	if e.llm == nil {
		return Result{Status: 503, Body: Body{Error: "generative LLM collaborator not configured", Meta: durationMeta(start, "generative", 2)}}
	}

	res, err := e.llm.CreateMessage(ctx, meta.Model, meta.Prompts, input)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{Status: 408, Body: Body{Error: "generative execution timed out", Meta: durationMeta(start, "generative", 2)}}
		}
		return Result{Status: 500, Body: Body{Error: err.Error(), Meta: durationMeta(start, "generative", 2)}}
	}

	m := durationMeta(start, "generative", 2)
	tokens := res.Tokens
	m.GenerativeExecution = &GenerativeExecution{
		Model:          meta.Model,
		Tokens:         &tokens,
		Cached:         res.Cached,
		StopReason:     res.StopReason,
		ModelLatencyMs: res.ModelLatencyMs,
	}
	return Result{Status: 200, Body: Body{Output: res.Output, Meta: m}}
}
