// Package dispatch implements the Tier Dispatcher from §4.3: a single
// entry point that routes a classified function to one of four tier
// executors and threads metadata through a uniform result envelope.
package dispatch

import "time"

// Result is the uniform dispatch envelope from §4.3.
type Result struct {
	Status int  `json:"status"`
	Body   Body `json:"body"`
}

// Body is the response payload, mapping to the wire shape described in
// §4.3 with tier-specific _meta variants.
type Body struct {
	Output      any    `json:"output,omitempty"`
	TaskID      string `json:"taskId,omitempty"`
	TaskURL     string `json:"taskUrl,omitempty"`
	TaskStatus  string `json:"taskStatus,omitempty"`
	Error       string `json:"error,omitempty"`
	Meta        Meta   `json:"_meta"`
}

// Meta carries execution bookkeeping common to every tier, plus the
// tier-specific execution detail and cascade-only fields.
type Meta struct {
	DurationMs  int64  `json:"duration"`
	ExecutorType string `json:"executorType"`
	Tier        int    `json:"tier"`

	CodeExecution       *CodeExecution       `json:"codeExecution,omitempty"`
	GenerativeExecution *GenerativeExecution `json:"generativeExecution,omitempty"`
	AgenticExecution    *AgenticExecution    `json:"agenticExecution,omitempty"`
	HumanExecution      *HumanExecution      `json:"humanExecution,omitempty"`

	TiersAttempted []string `json:"tiersAttempted,omitempty"`
	StepsExecuted  int      `json:"stepsExecuted,omitempty"`
}

// CodeExecution is §4.3a's per-tier detail.
type CodeExecution struct {
	Runtime string `json:"runtime,omitempty"`
}

// TokenUsage is the input/output token pair reported by the generative
// tier's LLM collaborator.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// GenerativeExecution is §4.3b's per-tier detail.
type GenerativeExecution struct {
	Model          string      `json:"model"`
	Tokens         *TokenUsage `json:"tokens,omitempty"`
	Cached         bool        `json:"cached,omitempty"`
	StopReason     string      `json:"stopReason,omitempty"`
	ModelLatencyMs int64       `json:"modelLatencyMs,omitempty"`
}

// AgenticExecution is §4.3c's per-tier detail.
type AgenticExecution struct {
	ToolCalls  int      `json:"toolCalls"`
	ToolsUsed  []string `json:"toolsUsed,omitempty"`
	StopReason string   `json:"stopReason,omitempty"`
}

// HumanExecution is §4.3d's per-tier detail.
type HumanExecution struct {
	ExpiresAt time.Time `json:"expiresAt"`
	CallbackURL string  `json:"callbackUrl,omitempty"`
}

// durationMeta builds the wall-clock portion of Meta from a start time.
func durationMeta(start time.Time, executorType string, tier int) Meta {
	return Meta{
		DurationMs:   time.Since(start).Milliseconds(),
		ExecutorType: executorType,
		Tier:         tier,
	}
}
