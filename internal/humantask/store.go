// Package humantask implements the human task state machine from §4.6,
// grounded on the teacher's SessionStore (internal/httpapi/sessions.go):
// a mutex-guarded in-memory map keyed by ID, generalized from a flat
// session record into the full pending/assigned/in_progress/completed/
// cancelled/expired state machine, with per-task single-writer discipline.
package humantask

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/model"
)

// Default tier-4 timeout, used when no per-invocation timeout is given.
const DefaultTimeout = 24 * time.Hour

// taskEntry wraps a HumanTask with its own mutex so every mutation
// (respond/cancel/expire) on a given taskId is strictly serialized,
// independent of any other task.
type taskEntry struct {
	mu   sync.Mutex
	task model.HumanTask
}

// Store is the process-wide, mutex-guarded task map.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*taskEntry

	webhooks WebhookSender
}

// WebhookSender delivers the completed task record to a callback URL.
// Delivery is best-effort, at-least-once; implementations must not block
// the request path (see Deliver below).
type WebhookSender interface {
	Deliver(ctx context.Context, url string, task model.HumanTask)
}

func NewStore(webhooks WebhookSender) *Store {
	return &Store{tasks: make(map[string]*taskEntry), webhooks: webhooks}
}

// CreateInput carries the fields needed to create a task.
type CreateInput struct {
	FunctionID      string
	TenantID        string
	InteractionType string
	UI              any
	Assignees       []string
	InvocationData  any
	Timeout         time.Duration
	CallbackURL     string
}

// CreateResult is the envelope returned to the dispatcher's human executor.
type CreateResult struct {
	TaskID      string    `json:"taskId"`
	TaskURL     string    `json:"taskUrl"`
	TaskStatus  string    `json:"taskStatus"`
	CallbackURL string    `json:"callbackUrl,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// baseURL is prefixed onto generated task URLs; overridable for tests/deploys.
var baseURL = "https://functions.do"

func SetBaseURL(u string) { baseURL = u }

// Create assigns a fresh taskId, persists the task, and returns its envelope.
func (s *Store) Create(_ context.Context, in CreateInput) CreateResult {
	now := time.Now().UTC()
	timeout := in.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	task := model.HumanTask{
		TaskID:          uuid.NewString(),
		FunctionID:      in.FunctionID,
		TenantID:        in.TenantID,
		InteractionType: in.InteractionType,
		UI:              in.UI,
		Assignees:       in.Assignees,
		InvocationData:  in.InvocationData,
		Status:          model.TaskPending,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       now.Add(timeout),
		CallbackURL:     in.CallbackURL,
	}

	s.mu.Lock()
	s.tasks[task.TaskID] = &taskEntry{task: task}
	s.mu.Unlock()

	return CreateResult{
		TaskID:      task.TaskID,
		TaskURL:     fmt.Sprintf("%s/api/tasks/%s", baseURL, task.TaskID),
		TaskStatus:  string(task.Status),
		CallbackURL: task.CallbackURL,
		ExpiresAt:   task.ExpiresAt,
	}
}

func (s *Store) entry(taskID string) (*taskEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.tasks[taskID]
	return e, ok
}

// Get returns the full task record, or an apperr NOT_FOUND error.
func (s *Store) Get(_ context.Context, taskID string) (model.HumanTask, error) {
	e, ok := s.entry(taskID)
	if !ok {
		return model.HumanTask{}, apperr.NewCode(apperr.CodeNotFound, "task not found")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.task, nil
}

// List filters tasks by functionId and optional status.
func (s *Store) List(_ context.Context, functionID, status string) []model.HumanTask {
	s.mu.RLock()
	entries := make([]*taskEntry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []model.HumanTask
	for _, e := range entries {
		e.mu.Lock()
		t := e.task
		e.mu.Unlock()
		if functionID != "" && t.FunctionID != functionID {
			continue
		}
		if status != "" && string(t.Status) != status {
			continue
		}
		out = append(out, t)
	}
	return out
}

// requiredUIFields extracts the list of required field names declared in
// a task's UI form, if any (the UI document is a black-box to the gateway
// beyond this minimal "required" convention).
func requiredUIFields(ui any) []string {
	m, ok := ui.(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := m["required"].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func validateResponse(ui any, response map[string]any) error {
	for _, field := range requiredUIFields(ui) {
		if _, ok := response[field]; !ok {
			return apperr.NewCode(apperr.CodeValidationFailed, "missing required response field: "+field)
		}
	}
	return nil
}

// Respond validates response against the task's UI form and transitions
// the task to completed. Forbidden unless the task is pending, assigned,
// or in_progress.
func (s *Store) Respond(ctx context.Context, taskID string, response map[string]any) (model.HumanTask, error) {
	e, ok := s.entry(taskID)
	if !ok {
		return model.HumanTask{}, apperr.NewCode(apperr.CodeNotFound, "task not found")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.task
	now := time.Now().UTC()

	if t.Status.Terminal() {
		if t.Status == model.TaskExpired {
			return model.HumanTask{}, apperr.NewCode(apperr.CodeTaskGone, "task has expired")
		}
		return model.HumanTask{}, apperr.NewCode(apperr.CodeTaskTerminal, fmt.Sprintf("task is already %s", t.Status))
	}
	if now.After(t.ExpiresAt) || now.Equal(t.ExpiresAt) {
		t.Status = model.TaskExpired
		t.ExpiredAt = &now
		t.UpdatedAt = now
		e.task = t
		return model.HumanTask{}, apperr.NewCode(apperr.CodeTaskGone, "task has expired")
	}

	if err := validateResponse(t.UI, response); err != nil {
		return model.HumanTask{}, err
	}

	t.Response = response
	t.CompletedAt = &now
	t.Status = model.TaskCompleted
	t.UpdatedAt = now
	e.task = t

	if t.CallbackURL != "" && s.webhooks != nil {
		s.webhooks.Deliver(ctx, t.CallbackURL, t)
	}

	return t, nil
}

// Cancel transitions a non-terminal task to cancelled.
func (s *Store) Cancel(_ context.Context, taskID string) (model.HumanTask, error) {
	e, ok := s.entry(taskID)
	if !ok {
		return model.HumanTask{}, apperr.NewCode(apperr.CodeNotFound, "task not found")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	t := e.task
	if t.Status.Terminal() {
		return model.HumanTask{}, apperr.NewCode(apperr.CodeTaskTerminal, fmt.Sprintf("task is already %s", t.Status))
	}
	now := time.Now().UTC()
	t.Status = model.TaskCancelled
	t.CancelledAt = &now
	t.UpdatedAt = now
	e.task = t
	return t, nil
}

// ExpireDue transitions every non-terminal task whose deadline has passed
// to expired. Intended to be driven by a background ticker (see Sweeper).
func (s *Store) ExpireDue(_ context.Context, now time.Time) int {
	s.mu.RLock()
	entries := make([]*taskEntry, 0, len(s.tasks))
	for _, e := range s.tasks {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	expired := 0
	for _, e := range entries {
		e.mu.Lock()
		t := e.task
		if !t.Status.Terminal() && !now.Before(t.ExpiresAt) {
			t.Status = model.TaskExpired
			t.ExpiredAt = &now
			t.UpdatedAt = now
			e.task = t
			expired++
		}
		e.mu.Unlock()
	}
	return expired
}

// Sweeper runs ExpireDue on an interval until ctx is cancelled.
func (s *Store) Sweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.ExpireDue(ctx, now)
		}
	}
}

// Clear removes all tasks. Test-only, per Design Notes §9.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]*taskEntry)
}
