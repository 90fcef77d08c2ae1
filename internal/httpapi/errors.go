package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dot-do/functions-gateway/internal/apperr"
)

// errorEnvelope is the canonical error body from §7.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	CorrelationID string `json:"correlationId"`
	RequestID     string `json:"requestId"`
	RetryAfter    int    `json:"retryAfter,omitempty"`
}

// writeJSON writes a JSON response, grounded on the teacher's
// router.go writeJSON helper.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as the canonical envelope, mapping an *apperr.Error
// to its status/code/message and falling back to INTERNAL_ERROR for any
// other error type, per §7's propagation policy.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}
	id := RequestID(r.Context())
	env := errorEnvelope{CorrelationID: id, RequestID: id}
	env.Error.Code = string(appErr.Code)
	env.Error.Message = appErr.Message
	writeJSON(w, appErr.Status, env)
}

// writeRateLimited renders the 429 envelope with Retry-After, per §4.5.
func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfterSeconds int) {
	if retryAfterSeconds < 0 {
		retryAfterSeconds = 0
	}
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	id := RequestID(r.Context())
	env := errorEnvelope{CorrelationID: id, RequestID: id, RetryAfter: retryAfterSeconds}
	env.Error.Code = string(apperr.CodeRateLimited)
	env.Error.Message = "rate limit exceeded"
	writeJSON(w, http.StatusTooManyRequests, env)
}
