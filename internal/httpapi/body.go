package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dot-do/functions-gateway/internal/apperr"
)

// MaxBodyBytes is the request size limit from §6: over-limit returns 413.
const MaxBodyBytes = 10 * 1024 * 1024

// readBody enforces the 10 MB limit and returns a 413 apperr.Error when
// the body exceeds it.
func readBody(r *http.Request) ([]byte, error) {
	limited := io.LimitReader(r.Body, MaxBodyBytes+1)
	b, err := io.ReadAll(limited)
	if err != nil {
		return nil, apperr.NewCode(apperr.CodeInternal, "failed to read request body")
	}
	if len(b) > MaxBodyBytes {
		return nil, apperr.NewCode(apperr.CodePayloadTooLarge, "Request body too large")
	}
	return b, nil
}

// readJSONInput implements §6's content-type handling: a JSON content-type
// (or none, defaulting to JSON for API endpoints) is parsed directly;
// invalid JSON is a 400; any other content-type is treated as text/plain
// and wrapped as {"text": "<body>"}.
func readJSONInput(r *http.Request) (json.RawMessage, error) {
	b, err := readBody(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return json.RawMessage(`{}`), nil
	}

	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.Contains(ct, "json") {
		wrapped, merr := json.Marshal(map[string]string{"text": string(b)})
		if merr != nil {
			return nil, apperr.Internal(merr)
		}
		return wrapped, nil
	}

	var probe any
	if err := json.Unmarshal(b, &probe); err != nil {
		return nil, apperr.NewCode(apperr.CodeInvalidJSON, "Invalid JSON body")
	}
	return json.RawMessage(b), nil
}

// decodeJSON parses body into v, surfacing apperr.CodeInvalidJSON on failure.
func decodeJSON(body []byte, v any) error {
	if len(body) == 0 {
		return apperr.NewCode(apperr.CodeInvalidJSON, "Invalid JSON body")
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.NewCode(apperr.CodeInvalidJSON, "Invalid JSON body")
		}
		return apperr.NewCode(apperr.CodeInvalidJSON, "Invalid JSON body")
	}
	return nil
}
