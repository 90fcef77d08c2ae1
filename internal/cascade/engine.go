// Package cascade implements the Cascade Engine from §4.4: sequencing an
// ordered list of tiered steps with fail-fast/fallback/continue error
// policies, recursively reusing the Tier Dispatcher for each step.
package cascade

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dot-do/functions-gateway/internal/dispatch"
	"github.com/dot-do/functions-gateway/internal/model"
)

// StepResolver loads a step's metadata (and code, when its tier is code)
// by function id. Grounded on §4.9's storage façade; the cascade engine
// never talks to storage directly.
type StepResolver interface {
	Resolve(ctx context.Context, tenantID, functionID string) (model.FunctionMetadata, *model.FunctionCode, error)
}

// Engine sequences a cascade function's steps.
type Engine struct {
	dispatcher *dispatch.Dispatcher
	resolver   StepResolver
}

func New(dispatcher *dispatch.Dispatcher, resolver StepResolver) *Engine {
	return &Engine{dispatcher: dispatcher, resolver: resolver}
}

// Run executes meta's cascade steps in order and returns the final
// dispatch.Result with _meta.executorType rewritten to "cascade" and
// tiersAttempted/stepsExecuted populated per §4.4.
func (e *Engine) Run(ctx context.Context, tenantID, correlationID string, meta model.FunctionMetadata, input json.RawMessage) dispatch.Result {
	start := time.Now()
	policy := meta.ErrorHandling.OrDefault()

	var tiersAttempted []string
	stepsExecuted := 0
	piped := input
	var last dispatch.Result
	succeeded := false

	for _, step := range meta.Steps {
		stepMeta, stepCode, err := e.resolver.Resolve(ctx, tenantID, step.FunctionID)
		if err != nil {
			last = dispatch.Result{Status: 404, Body: dispatch.Body{Error: "Function not found: " + step.FunctionID}}
			tiersAttempted = append(tiersAttempted, step.Tier)
			stepsExecuted++
			if policy == model.ErrorHandlingFailFast {
				return finalize(last, tiersAttempted, stepsExecuted, start)
			}
			continue
		}

		res := e.dispatcher.Dispatch(ctx, dispatch.Request{
			TenantID:      tenantID,
			CorrelationID: correlationID,
			Metadata:      stepMeta,
			Code:          stepCode,
			Input:         piped,
		})
		tiersAttempted = append(tiersAttempted, step.Tier)
		stepsExecuted++
		last = res

		if res.Status >= 400 {
			switch policy {
			case model.ErrorHandlingFailFast:
				return finalize(res, tiersAttempted, stepsExecuted, start)
			case model.ErrorHandlingFallback:
				if step.FallbackTo != "" {
					tiersAttempted = append(tiersAttempted, "fallback:"+step.FallbackTo)
				}
				continue
			case model.ErrorHandlingContinue:
				continue
			}
			continue
		}

		succeeded = true
		piped = stripMeta(res)
	}

	if !succeeded {
		return finalize(dispatch.Result{
			Status: 500,
			Body:   dispatch.Body{Error: "Cascade completed with no successful steps"},
		}, tiersAttempted, stepsExecuted, start)
	}

	return finalize(last, tiersAttempted, stepsExecuted, start)
}

// stripMeta converts a step's successful body into the next step's piped
// input: the previous body with _meta removed, per §4.4 step 2.
func stripMeta(res dispatch.Result) json.RawMessage {
	raw, err := json.Marshal(res.Body)
	if err != nil {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	delete(fields, "_meta")
	out, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return out
}

func finalize(res dispatch.Result, tiersAttempted []string, stepsExecuted int, start time.Time) dispatch.Result {
	res.Body.Meta.ExecutorType = "cascade"
	res.Body.Meta.TiersAttempted = tiersAttempted
	res.Body.Meta.StepsExecuted = stepsExecuted
	res.Body.Meta.DurationMs = time.Since(start).Milliseconds()
	return res
}
