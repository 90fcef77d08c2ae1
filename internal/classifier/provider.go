package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/dot-do/functions-gateway/internal/model"
)

// Provider is the external AI collaborator used to classify a function.
// The actual LLM endpoint is a non-goal; callers inject an implementation
// (direct API client, routed through openrouter, etc).
type Provider interface {
	Name() string
	Classify(ctx context.Context, name, description string, inputSchema any) (reply string, err error)
}

// ErrTransient marks a provider error as retryable.
var ErrTransient = errors.New("classifier: transient provider error")

// rawReply is the expected shape of a well-behaved provider reply, after
// stripping fenced code blocks.
type rawReply struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// unwrapFence strips a leading/trailing ``` fenced code block, if present.
func unwrapFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	// Drop the opening fence (possibly with a language tag) and a
	// trailing fence line, if present.
	lines = lines[1:]
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// parseReply implements §4.7 step 3: unwrap fences, parse JSON, validate
// type, clamp confidence, or fall back to substring keyword inference.
func parseReply(reply, provider string, latency time.Duration) (model.ClassificationEntry, bool) {
	unwrapped := unwrapFence(reply)

	var raw rawReply
	if err := json.Unmarshal([]byte(unwrapped), &raw); err == nil && validKind(raw.Type) {
		conf := raw.Confidence
		if conf == 0 {
			conf = 0.5
		}
		if conf < 0 {
			conf = 0
		}
		if conf > 1 {
			conf = 1
		}
		return model.ClassificationEntry{
			Type:       model.FunctionKind(raw.Type),
			Confidence: conf,
			Reasoning:  raw.Reasoning,
			Provider:   provider,
			LatencyMs:  latency.Milliseconds(),
		}, true
	}

	// JSON parse failed or type invalid: infer by substring match against
	// the four tier keywords, confidence fixed at 0.5.
	lower := strings.ToLower(unwrapped)
	for _, kind := range []model.FunctionKind{model.KindCode, model.KindGenerative, model.KindAgentic, model.KindHuman} {
		if strings.Contains(lower, string(kind)) {
			return model.ClassificationEntry{
				Type:       kind,
				Confidence: 0.5,
				Reasoning:  "inferred from non-JSON reply by substring match",
				Provider:   provider,
				LatencyMs:  latency.Milliseconds(),
			}, true
		}
	}

	return model.ClassificationEntry{}, false
}

func validKind(s string) bool {
	switch model.FunctionKind(s) {
	case model.KindCode, model.KindGenerative, model.KindAgentic, model.KindHuman:
		return true
	default:
		return false
	}
}
