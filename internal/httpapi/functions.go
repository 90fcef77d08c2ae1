package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dot-do/functions-gateway/internal/apperr"
	"github.com/dot-do/functions-gateway/internal/model"
)

// deployRequest is the wire shape accepted by POST /api/functions. Only
// Type is special-cased: when absent, the classifier infers it from Name/
// Description/Schema before the metadata is validated and stored.
type deployRequest struct {
	ID            string              `json:"id"`
	Language      string              `json:"language,omitempty"`
	EntryPoint    string              `json:"entryPoint,omitempty"`
	Type          model.FunctionKind  `json:"type,omitempty"`
	Description   string              `json:"description,omitempty"`
	Code          string              `json:"code,omitempty"`
	Model         string              `json:"model,omitempty"`
	Prompts       []string            `json:"prompts,omitempty"`
	Schema        any                 `json:"schema,omitempty"`
	Tools         []model.ToolSpec    `json:"tools,omitempty"`
	Goal          string              `json:"goal,omitempty"`
	UI            any                 `json:"ui,omitempty"`
	Assignees     []string            `json:"assignees,omitempty"`
	SLA           string              `json:"sla,omitempty"`
	Steps         []model.CascadeStep `json:"steps,omitempty"`
	ErrorHandling model.ErrorHandling `json:"errorHandling,omitempty"`
	CallbackURL   string              `json:"callbackUrl,omitempty"`
}

func (s *Server) facadeForRequest(r *http.Request) (*storageFacade, error) {
	authCtx := GetAuthContext(r.Context())
	userID := ""
	if authCtx != nil {
		userID = authCtx.UserID
	}
	if s.StorageResolver == nil {
		return nil, apperr.NewCode(apperr.CodeServiceUnavailable, "storage not configured")
	}
	f, err := s.StorageResolver.Resolve(userID)
	if err != nil {
		return nil, apperr.NewCode(apperr.CodeServiceUnavailable, "storage not configured")
	}
	return f, nil
}

// ListFunctions handles GET /api/functions.
func (s *Server) ListFunctions(w http.ResponseWriter, r *http.Request) {
	f, err := s.facadeForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	opts := storageListOptions(q.Get("cursor"), parseLimit(q.Get("limit"), 100, 1000))

	res, err := f.Registry.List(r.Context(), tenantFromAuth(r), opts)
	if err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeployFunction handles POST /api/functions.
func (s *Server) DeployFunction(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req deployRequest
	if err := decodeJSON(body, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ID == "" {
		writeError(w, r, apperr.NewCode(apperr.CodeMissingRequired, "id is required"))
		return
	}
	if !model.ValidFunctionID(req.ID) {
		writeError(w, r, apperr.NewCode(apperr.CodeInvalidFunctionID, "invalid function id"))
		return
	}

	if req.Type == "" && s.Classifier != nil {
		entry := s.Classifier.Classify(r.Context(), req.ID, req.Description, req.Schema)
		req.Type = entry.Type
	}

	now := time.Now().UTC()
	meta := model.FunctionMetadata{
		ID:            req.ID,
		Language:      req.Language,
		EntryPoint:    req.EntryPoint,
		Type:          req.Type,
		CreatedAt:     now,
		UpdatedAt:     now,
		Model:         req.Model,
		Prompts:       req.Prompts,
		Schema:        req.Schema,
		Tools:         req.Tools,
		Goal:          req.Goal,
		UI:            req.UI,
		Assignees:     req.Assignees,
		SLA:           req.SLA,
		Steps:         req.Steps,
		ErrorHandling: req.ErrorHandling,
		CallbackURL:   req.CallbackURL,
	}
	if err := meta.Validate(); err != nil {
		writeError(w, r, apperr.NewCode(apperr.CodeValidationFailed, err.Error()))
		return
	}

	f, err := s.facadeForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tenant := tenantFromAuth(r)

	if err := f.Registry.Put(r.Context(), tenant, meta); err != nil {
		writeError(w, r, apperr.Internal(err))
		return
	}

	if meta.EffectiveKind() == model.KindCode && req.Code != "" {
		code := model.FunctionCode{Source: req.Code}
		if s.Compiler != nil {
			result := s.Compiler.Compile(r.Context(), req.Code, compileOptionsDefault())
			if result.Success {
				code.Artifact = result.Code
				code.SourceMap = result.Map
			}
		}
		if err := f.Code.Put(r.Context(), tenant, meta.ID, code); err != nil {
			writeError(w, r, apperr.Internal(err))
			return
		}
	}

	writeJSON(w, http.StatusOK, meta)
}

// GetFunction handles GET /api/functions/{id}.
func (s *Server) GetFunction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.ValidFunctionID(id) {
		writeError(w, r, apperr.NewCode(apperr.CodeInvalidFunctionID, "invalid function id"))
		return
	}
	f, err := s.facadeForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	meta, err := f.Registry.Get(r.Context(), tenantFromAuth(r), id)
	if err != nil {
		writeError(w, r, notFoundOrInternal(err))
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// UpdateFunction handles PATCH /api/functions/{id}.
func (s *Server) UpdateFunction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.ValidFunctionID(id) {
		writeError(w, r, apperr.NewCode(apperr.CodeInvalidFunctionID, "invalid function id"))
		return
	}
	body, err := readBody(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch map[string]any
	if err := decodeJSON(body, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	f, err := s.facadeForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	meta, err := f.Registry.Update(r.Context(), tenantFromAuth(r), id, patch)
	if err != nil {
		writeError(w, r, notFoundOrInternal(err))
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// DeleteFunction handles DELETE /api/functions/{id}.
func (s *Server) DeleteFunction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !model.ValidFunctionID(id) {
		writeError(w, r, apperr.NewCode(apperr.CodeInvalidFunctionID, "invalid function id"))
		return
	}
	f, err := s.facadeForRequest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := f.Registry.Delete(r.Context(), tenantFromAuth(r), id); err != nil {
		writeError(w, r, notFoundOrInternal(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tenantFromAuth(r *http.Request) string {
	if a := GetAuthContext(r.Context()); a != nil {
		return a.CurrentOrg
	}
	return ""
}

func parseLimit(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	n := 0
	for _, c := range raw {
		if c < '0' || c > '9' {
			return def
		}
		n = n*10 + int(c-'0')
	}
	if n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
