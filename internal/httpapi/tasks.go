package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dot-do/functions-gateway/internal/apperr"
)

// ListTasks handles GET /tasks, optionally filtered by functionId/status.
func (s *Server) ListTasks(w http.ResponseWriter, r *http.Request) {
	if s.Tasks == nil {
		writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, http.StatusServiceUnavailable, "task store not configured"))
		return
	}
	q := r.URL.Query()
	tasks := s.Tasks.List(r.Context(), q.Get("functionId"), q.Get("status"))
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// GetTask handles GET /tasks/{id}.
func (s *Server) GetTask(w http.ResponseWriter, r *http.Request) {
	if s.Tasks == nil {
		writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, http.StatusServiceUnavailable, "task store not configured"))
		return
	}
	id := chi.URLParam(r, "id")
	task, err := s.Tasks.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// RespondTask handles POST /tasks/{id}/respond, completing a pending task.
func (s *Server) RespondTask(w http.ResponseWriter, r *http.Request) {
	if s.Tasks == nil {
		writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, http.StatusServiceUnavailable, "task store not configured"))
		return
	}
	id := chi.URLParam(r, "id")

	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var response map[string]any
	if err := decodeJSON(body, &response); err != nil {
		writeError(w, r, err)
		return
	}

	task, err := s.Tasks.Respond(r.Context(), id, response)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// CancelTask handles DELETE /tasks/{id}.
func (s *Server) CancelTask(w http.ResponseWriter, r *http.Request) {
	if s.Tasks == nil {
		writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, http.StatusServiceUnavailable, "task store not configured"))
		return
	}
	id := chi.URLParam(r, "id")
	task, err := s.Tasks.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}
