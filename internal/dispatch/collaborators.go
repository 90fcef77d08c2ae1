package dispatch

import (
	"context"
	"encoding/json"
)

// SandboxRuntime is the code-sandbox collaborator (non-goal: "the actual
// code-sandbox runtime" is specified only by interface).
type SandboxRuntime interface {
	// Run executes compiled/source code with the given input and returns
	// its output, or an error on executor-side failure.
	Run(ctx context.Context, code, artifact string, input json.RawMessage) (output any, err error)
}

// LLMMessages is the generative tier's LLM collaborator, exposing
// messages.create (non-goal: AI/LLM provider endpoints are external).
type LLMMessages interface {
	CreateMessage(ctx context.Context, model string, prompts []string, input json.RawMessage) (CreateMessageResult, error)
}

// CreateMessageResult is the generative collaborator's reply shape.
type CreateMessageResult struct {
	Output         any
	Tokens         TokenUsage
	Cached         bool
	StopReason     string
	ModelLatencyMs int64
}

// LLMChat is the agentic tier's LLM collaborator, exposing a chat
// capability with tool-call support.
type LLMChat interface {
	Chat(ctx context.Context, goal string, input json.RawMessage, tools []string, callTool ToolCaller) (ChatResult, error)
}

// ToolCaller invokes a named tool during an agentic reasoning loop.
type ToolCaller func(ctx context.Context, name string, args json.RawMessage) (any, error)

// ChatResult is the agentic collaborator's reply shape.
type ChatResult struct {
	Output     any
	ToolCalls  int
	ToolsUsed  []string
	StopReason string
}
