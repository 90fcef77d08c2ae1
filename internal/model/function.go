package model

import (
	"time"

	"github.com/Masterminds/semver/v3"
)

// FunctionKind is the tagged variant a FunctionMetadata dispatches on. An
// absent type on the wire always defaults to KindCode.
type FunctionKind string

const (
	KindCode       FunctionKind = "code"
	KindGenerative FunctionKind = "generative"
	KindAgentic    FunctionKind = "agentic"
	KindHuman      FunctionKind = "human"
	KindCascade    FunctionKind = "cascade"
)

// Tier maps a FunctionKind to its numeric execution tier. Cascade has no
// tier of its own; it orchestrates tiers 1-4.
func (k FunctionKind) Tier() int {
	switch k {
	case KindCode, "":
		return 1
	case KindGenerative:
		return 2
	case KindAgentic:
		return 3
	case KindHuman:
		return 4
	default:
		return 0
	}
}

func (k FunctionKind) Valid() bool {
	switch k {
	case KindCode, KindGenerative, KindAgentic, KindHuman, KindCascade, "":
		return true
	default:
		return false
	}
}

// NormalizedKind returns the effective kind, defaulting an absent type to code.
func (k FunctionKind) NormalizedKind() FunctionKind {
	if k == "" {
		return KindCode
	}
	return k
}

// ToolSpec describes one tool an agentic function may invoke.
type ToolSpec struct {
	Name string   `json:"name"`
	Kind ToolKind `json:"kind"`
	// Endpoint is used by ToolKindAPI.
	Endpoint string `json:"endpoint,omitempty"`
	// FunctionID is used by ToolKindFunction.
	FunctionID string `json:"functionId,omitempty"`
	// Inline is used (and always rejected) by ToolKindInline.
	Inline string `json:"inline,omitempty"`
}

type ToolKind string

const (
	ToolKindBuiltin  ToolKind = "builtin"
	ToolKindAPI      ToolKind = "api"
	ToolKindFunction ToolKind = "function"
	ToolKindInline   ToolKind = "inline"
)

// CascadeStep is one entry in a cascade function's steps list.
type CascadeStep struct {
	FunctionID string `json:"functionId"`
	Tier       string `json:"tier"`
	FallbackTo string `json:"fallbackTo,omitempty"`
}

// ErrorHandling is the cascade's step-failure policy.
type ErrorHandling string

const (
	ErrorHandlingFailFast ErrorHandling = "fail-fast"
	ErrorHandlingFallback ErrorHandling = "fallback"
	ErrorHandlingContinue ErrorHandling = "continue"
)

func (e ErrorHandling) OrDefault() ErrorHandling {
	if e == "" {
		return ErrorHandlingFailFast
	}
	return e
}

// FunctionMetadata is keyed by (tenant, functionId) with an optional version
// dimension. Tier-specific fields are populated according to Type.
type FunctionMetadata struct {
	TenantID  string       `json:"-"`
	ID        string       `json:"id"`
	Version   string       `json:"version,omitempty"`
	Language  string       `json:"language,omitempty"`
	EntryPoint string      `json:"entryPoint,omitempty"`
	Type      FunctionKind `json:"type,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`

	// Generative tier
	Model   string   `json:"model,omitempty"`
	Prompts []string `json:"prompts,omitempty"`
	Schema  any      `json:"schema,omitempty"`

	// Agentic tier
	Tools []ToolSpec `json:"tools,omitempty"`
	Goal  string     `json:"goal,omitempty"`

	// Human tier
	UI        any      `json:"ui,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
	SLA       string   `json:"sla,omitempty"`

	// Cascade tier
	Steps         []CascadeStep `json:"steps,omitempty"`
	ErrorHandling ErrorHandling `json:"errorHandling,omitempty"`

	// Human tier callback override
	CallbackURL string `json:"callbackUrl,omitempty"`
}

// EffectiveKind returns Type, defaulting to code when absent.
func (m FunctionMetadata) EffectiveKind() FunctionKind {
	return m.Type.NormalizedKind()
}

// Validate checks the invariants from the data model section: id slug
// constraints and (if present) a parseable semver version.
func (m FunctionMetadata) Validate() error {
	if !ValidFunctionID(m.ID) {
		return ErrInvalidFunctionID
	}
	if m.Version != "" {
		if _, err := semver.NewVersion(m.Version); err != nil {
			return ErrInvalidVersion
		}
	}
	if !m.Type.Valid() {
		return ErrInvalidFunctionType
	}
	return nil
}

// FunctionCode is the per (tenant, functionId, version?) source/artifact
// triple. Source is UTF-8; Artifact is produced deterministically from
// Source by the compile service.
type FunctionCode struct {
	TenantID   string `json:"-"`
	FunctionID string `json:"-"`
	Version    string `json:"version,omitempty"`
	Source     string `json:"source"`
	Artifact   string `json:"artifact,omitempty"`
	SourceMap  string `json:"sourceMap,omitempty"`
}
