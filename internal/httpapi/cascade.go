package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/model"
)

// cascadeResolver adapts the request's storage facade into the
// cascade.StepResolver interface, resolving each step's metadata (and
// code, for code-tier steps) by function id within the same tenant.
type cascadeResolver struct {
	facade *storageFacade
}

func (r *cascadeResolver) Resolve(ctx context.Context, tenantID, functionID string) (model.FunctionMetadata, *model.FunctionCode, error) {
	meta, err := r.facade.Registry.Get(ctx, tenantID, functionID)
	if err != nil {
		return model.FunctionMetadata{}, nil, err
	}
	if meta.EffectiveKind() != model.KindCode {
		return meta, nil, nil
	}
	code, err := r.facade.Code.Get(ctx, tenantID, functionID)
	if err != nil {
		return meta, nil, nil
	}
	return meta, &code, nil
}

// Cascade handles POST /cascade/{id}, sequencing the function's steps
// through the Cascade Engine per §4.4.
func (s *Server) Cascade(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.ValidFunctionID(id) {
		writeError(w, r, apperr.NewCode(apperr.CodeInvalidFunctionID, "invalid function id"))
		return
	}

	var input json.RawMessage
	input, err := readJSONInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := s.facadeForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenant := tenantFromAuth(r)

	meta, err := f.Registry.Get(r.Context(), tenant, id)
	if err != nil {
		writeError(w, r, apperr.NewCode(apperr.CodeFunctionNotFound, "Function not found"))
		return
	}
	if meta.EffectiveKind() != model.KindCascade {
		writeError(w, r, apperr.NewCode(apperr.CodeValidationFailed, "function is not a cascade"))
		return
	}

	if s.Dispatcher == nil {
		writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, http.StatusServiceUnavailable, "dispatcher not configured"))
		return
	}

	engine := s.cascadeEngineFor(f)
	result := engine.Run(r.Context(), tenant, RequestID(r.Context()), meta, input)
	writeJSON(w, result.Status, result.Body)
}
