package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/dispatch"
	"github.com/dot-do/functions-gateway/internal/model"
)

// Invoke handles POST /functions/{id} and /functions/{id}/invoke, the
// Tier Dispatcher's HTTP entry point per §4.3.
func (s *Server) Invoke(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.ValidFunctionID(id) {
		writeError(w, r, apperr.NewCode(apperr.CodeInvalidFunctionID, "invalid function id"))
		return
	}

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

	var code *model.FunctionCode
	if meta.EffectiveKind() == model.KindCode {
		if c, cerr := f.Code.Get(r.Context(), tenant, id); cerr == nil {
			code = &c
		}
	}

	var result dispatch.Result
	switch {
	case meta.EffectiveKind() == model.KindCascade:
		if s.Dispatcher == nil {
			writeError(w, r, apperr.New(apperr.CodeServiceUnavailable, http.StatusServiceUnavailable, "dispatcher not configured"))
			return
		}
		engine := s.cascadeEngineFor(f)
		result = engine.Run(r.Context(), tenant, RequestID(r.Context()), meta, input)
	default:
		if s.Dispatcher == nil {
			writeError(w, r, apperr.New(apperr.CodeExecutorUnavailable, http.StatusNotImplemented, "dispatcher not configured"))
			return
		}
		result = s.Dispatcher.Dispatch(r.Context(), dispatch.Request{
			TenantID:         tenant,
			CorrelationID:    RequestID(r.Context()),
			Metadata:         meta,
			Code:             code,
			Input:            input,
			CallbackOverride: r.URL.Query().Get("callbackUrl"),
		})
	}

	writeJSON(w, result.Status, result.Body)
}
