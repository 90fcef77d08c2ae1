package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/logstore"
	"github.com/dot-do/functions-gateway/internal/model"
)

// Logs handles GET /functions/{id}/logs: a paginated snapshot of the
// function's recent log lines, per §6.
func (s *Server) Logs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.ValidFunctionID(id) {
		writeError(w, r, apperr.NewCode(apperr.CodeInvalidFunctionID, "invalid function id"))
		return
	}
	if s.LogStore == nil {
		writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, http.StatusServiceUnavailable, "log store not configured"))
		return
	}

	q := r.URL.Query()
	limit := 100
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	page := s.LogStore.Query(r.Context(), id, logstore.Query{
		Since: q.Get("since"),
		Level: q.Get("level"),
		Limit: limit,
	})
	writeJSON(w, http.StatusOK, page)
}
