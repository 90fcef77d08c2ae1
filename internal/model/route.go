package model

import "time"

// APIVersionSource records which priority tier resolved the API version.
type APIVersionSource string

const (
	APIVersionSourcePath          APIVersionSource = "path"
	APIVersionSourceQuery         APIVersionSource = "query"
	APIVersionSourceAcceptVersion APIVersionSource = "accept-version"
	APIVersionSourceXAPIVersion   APIVersionSource = "x-api-version"
	APIVersionSourceDefault       APIVersionSource = "default"
)

// RouteContext is built once per request after route matching.
type RouteContext struct {
	Params           map[string]string
	FunctionID       string
	Version          string
	APIVersion       string
	APIVersionSource APIVersionSource
	AuthContext      *AuthContext
}

// AuthContext is produced by the auth stage and is immutable for the
// lifetime of the request.
type AuthContext struct {
	UserID        string
	Scopes        []string
	ExpiresAt     time.Time
	TokenHint     string
	IsAPIKey      bool
	CurrentOrg    string
	Organizations []string
}

// HasScope reports whether scope is present in the auth context.
func (a *AuthContext) HasScope(scope string) bool {
	if a == nil {
		return false
	}
	for _, s := range a.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
