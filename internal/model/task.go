package model

import "time"

// TaskStatus is a state in the human task lifecycle state machine.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
	TaskExpired    TaskStatus = "expired"
)

// Terminal reports whether the status accepts no further transitions.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskCompleted, TaskCancelled, TaskExpired:
		return true
	default:
		return false
	}
}

// HumanTask is a human-in-the-loop work item, keyed by TaskID.
type HumanTask struct {
	TaskID          string         `json:"taskId"`
	FunctionID      string         `json:"functionId"`
	TenantID        string         `json:"-"`
	InteractionType string         `json:"interactionType,omitempty"`
	UI              any            `json:"ui,omitempty"`
	Assignees       []string       `json:"assignees,omitempty"`
	InvocationData  any            `json:"invocationData,omitempty"`
	Response        map[string]any `json:"response,omitempty"`
	Status          TaskStatus     `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	AssignedAt      *time.Time     `json:"assignedAt,omitempty"`
	CompletedAt     *time.Time     `json:"completedAt,omitempty"`
	CancelledAt     *time.Time     `json:"cancelledAt,omitempty"`
	ExpiredAt       *time.Time     `json:"expiredAt,omitempty"`
	ExpiresAt       time.Time      `json:"expiresAt"`
	CallbackURL     string         `json:"callbackUrl,omitempty"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}
