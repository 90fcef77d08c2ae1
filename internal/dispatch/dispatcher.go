package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dot-do/functions-gateway/internal/agentic"
	"github.com/dot-do/functions-gateway/internal/humantask"
	"github.com/dot-do/functions-gateway/internal/model"
)

// Tier timeout ladder from §4.3: code=5s, generative=30s, agentic=5m,
// human=24h. Each is threaded as the executor's hard deadline (human's
// "deadline" is instead the task's expiry, since the request itself
// returns immediately with 202).
var TierTimeouts = map[int]time.Duration{
	1: 5 * time.Second,
	2: 30 * time.Second,
	3: 5 * time.Minute,
	4: 24 * time.Hour,
}

// Dispatcher is the Tier Dispatcher entry point from §4.3.
type Dispatcher struct {
	code       *codeExecutor
	generative *generativeExecutor
	agentic    *agenticExecutor
	human      *humanExecutor
}

// New constructs a Dispatcher. Any collaborator may be nil; the relevant
// tier then reports 501/503 per §4.3's per-tier contract instead of
// panicking.
func New(sandbox SandboxRuntime, messages LLMMessages, chat LLMChat, pool *agentic.Pool, tasks *humantask.Store) *Dispatcher {
	if pool == nil {
		pool = agentic.NewPool()
	}
	d := &Dispatcher{
		code:       &codeExecutor{runtime: sandbox},
		generative: &generativeExecutor{llm: messages},
		agentic:    &agenticExecutor{llm: chat, pool: pool},
		human:      &humanExecutor{store: tasks},
	}
	d.agentic.recursiveDispatch = func(ctx context.Context, functionID string, input json.RawMessage) (json.RawMessage, error) {
		return nil, fmt.Errorf("recursive function dispatch requires a function resolver; not wired for %q", functionID)
	}
	return d
}

// SetFunctionResolver wires ToolKindFunction's recursive dispatch: given a
// function id it must load that function's metadata (and code, if tier 1)
// and re-invoke Dispatch, returning the JSON-encoded output. Wired
// separately from New to avoid a storage-package import cycle; cmd/gatewayd
// supplies the closure at startup.
func (d *Dispatcher) SetFunctionResolver(resolve func(ctx context.Context, functionID string, input json.RawMessage) (json.RawMessage, error)) {
	d.agentic.recursiveDispatch = resolve
}

// Request bundles Dispatch's inputs.
type Request struct {
	TenantID      string
	CorrelationID string
	Metadata      model.FunctionMetadata
	Code          *model.FunctionCode
	Input         json.RawMessage
	// CallbackOverride overrides the human tier's registered callback URL
	// for this invocation only.
	CallbackOverride string
}

// Dispatch routes req to the tier executor for req.Metadata's effective
// kind, applying the tier's timeout ladder as a context deadline (except
// for the human tier, whose deadline is the task's own expiry).
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	kind := req.Metadata.EffectiveKind()
	tier := kind.Tier()

	switch kind {
	case model.KindCode:
		cctx, cancel := context.WithTimeout(ctx, TierTimeouts[1])
		defer cancel()
		return d.code.run(cctx, req.Metadata, req.Code, req.Input)

	case model.KindGenerative:
		cctx, cancel := context.WithTimeout(ctx, TierTimeouts[2])
		defer cancel()
		return d.generative.run(cctx, req.Metadata, req.Input)

	case model.KindAgentic:
		cctx, cancel := context.WithTimeout(ctx, TierTimeouts[3])
		defer cancel()
		return d.agentic.run(cctx, req.Metadata, req.Input, req.TenantID, req.CorrelationID)

	case model.KindHuman:
		timeout := parseSLA(req.Metadata.SLA, TierTimeouts[4])
		return d.human.run(ctx, req.Metadata, req.Input, req.TenantID, timeout, req.CallbackOverride)

	default:
		// Cascade is handled by the cascade package, which recursively
		// calls Dispatch per step; it should never reach here directly.
		start := time.Now()
		return Result{Status: 500, Body: Body{
			Error: fmt.Sprintf("dispatcher cannot directly execute kind %q", kind),
			Meta:  durationMeta(start, "unknown", tier),
		}}
	}
}

// parseSLA parses the "NNs|NNm|NNh|NNd" timeout grammar from §4.6,
// falling back to def when sla is empty or malformed.
func parseSLA(sla string, def time.Duration) time.Duration {
	if sla == "" {
		return def
	}
	unit := sla[len(sla)-1]
	var mult time.Duration
	switch unit {
	case 's':
		mult = time.Second
	case 'm':
		mult = time.Minute
	case 'h':
		mult = time.Hour
	case 'd':
		mult = 24 * time.Hour
	default:
		return def
	}
	n, err := strconv.Atoi(strings.TrimSuffix(sla, string(unit)))
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * mult
}
