package model

// ClassificationEntry is the result of classifying an unlabeled function.
type ClassificationEntry struct {
	Type       FunctionKind `json:"type"`
	Confidence float64      `json:"confidence"`
	Reasoning  string       `json:"reasoning,omitempty"`
	Provider   string       `json:"provider"`
	LatencyMs  int64        `json:"latencyMs"`
}
