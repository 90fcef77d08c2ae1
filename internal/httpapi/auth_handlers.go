package httpapi

import (
	"net/http"

	"github.com/dot-do/functions-gateway/internal/apperr"
)

// AuthValidate handles GET /api/auth/validate, confirming the credential
// the auth stage already verified is still valid.
func (s *Server) AuthValidate(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, r, apperr.NewCode(apperr.CodeUnauthenticated, "missing credentials"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"valid": true, "userId": authCtx.UserID, "isApiKey": authCtx.IsAPIKey})
}

// AuthMe handles GET /api/auth/me, returning the caller's identity and
// scopes resolved during the auth stage.
func (s *Server) AuthMe(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, r, apperr.NewCode(apperr.CodeUnauthenticated, "missing credentials"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId":     authCtx.UserID,
		"scopes":     authCtx.Scopes,
		"currentOrg": authCtx.CurrentOrg,
		"isApiKey":   authCtx.IsAPIKey,
		"tokenHint":  authCtx.TokenHint,
	})
}

// AuthOrgs handles GET /api/auth/orgs, returning the caller's organization
// memberships, filling the OrgCache on miss.
func (s *Server) AuthOrgs(w http.ResponseWriter, r *http.Request) {
	authCtx := GetAuthContext(r.Context())
	if authCtx == nil {
		writeError(w, r, apperr.NewCode(apperr.CodeUnauthenticated, "missing credentials"))
		return
	}

	orgs, currentOrg := authCtx.Organizations, authCtx.CurrentOrg
	if s.OrgCache != nil {
		if cached, cachedCurrent, ok := s.OrgCache.Get(authCtx.UserID); ok {
			orgs, currentOrg = cached, cachedCurrent
		} else {
			s.OrgCache.Put(authCtx.UserID, orgs, currentOrg)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"organizations": orgs, "currentOrg": currentOrg})
}
