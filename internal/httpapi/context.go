package httpapi

import (
	"context"

	"github.com/dot-do/functions-gateway/internal/model"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	apiVersionKey
	apiVersionSourceKey
	authContextKey
)

// RequestID returns the correlation/request id attached by requestIDMiddleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// APIVersion returns the resolved API version for the request.
func APIVersion(ctx context.Context) string {
	v, _ := ctx.Value(apiVersionKey).(string)
	return v
}

// APIVersionSource returns which priority tier resolved the API version.
func APIVersionSource(ctx context.Context) model.APIVersionSource {
	v, _ := ctx.Value(apiVersionSourceKey).(model.APIVersionSource)
	return v
}

// GetAuthContext returns the request's AuthContext, or nil on public routes.
func GetAuthContext(ctx context.Context) *model.AuthContext {
	a, _ := ctx.Value(authContextKey).(*model.AuthContext)
	return a
}
