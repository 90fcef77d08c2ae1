package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dot-do/functions-gateway/internal/humantask"
	"github.com/dot-do/functions-gateway/internal/model"
)

// humanExecutor implements §4.3d / §4.6: creates a pending task and
// returns 202 with its envelope; the actual completion happens out of
// band via the humantask Store's Respond endpoint.
type humanExecutor struct {
	store *humantask.Store
}

func (e *humanExecutor) run(ctx context.Context, meta model.FunctionMetadata, input json.RawMessage, tenantID string, timeout time.Duration, callbackOverride string) Result {
	start := time.Now()

	if e.store == nil {
		return Result{Status: 503, Body: Body{Error: "human task store not configured", Meta: durationMeta(start, "human", 4)}}
	}

	callback := callbackOverride
	if callback == "" {
		callback = meta.CallbackURL
	}

	res := e.store.Create(ctx, humantask.CreateInput{
		FunctionID:      meta.ID,
		TenantID:        tenantID,
		InteractionType: string(meta.Type),
		UI:              meta.UI,
		Assignees:       meta.Assignees,
		InvocationData:  rawToAny(input),
		Timeout:         timeout,
		CallbackURL:     callback,
	})

	m := durationMeta(start, "human", 4)
	m.HumanExecution = &HumanExecution{ExpiresAt: res.ExpiresAt, CallbackURL: res.CallbackURL}

	return Result{Status: 202, Body: Body{
		TaskID:     res.TaskID,
		TaskURL:    res.TaskURL,
		TaskStatus: res.TaskStatus,
		Meta:       m,
	}}
}

func rawToAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
