package agentic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpClient is shared by web_fetch and the api-kind tool handler. A
// bounded timeout keeps a stalled upstream from pinning an agentic
// executor's goroutine past the tier's own deadline.
var httpClient = &http.Client{Timeout: 10 * time.Second}

// builtinHandlers maps the builtin tool names this gateway recognizes to
// their handlers. Only web_fetch performs real work; web_search and the
// file, shell, database and messaging entries return a not-available
// result. Unlisted names fall through to the generic not-available
// response.
var builtinHandlers = map[string]Handler{
	"web_search":      webSearchHandler,
	"web_fetch":       webFetchHandler,
	"file_read":       fileNotAvailable("file_read"),
	"file_write":      fileNotAvailable("file_write"),
	"shell_exec":      fileNotAvailable("shell_exec"),
	"database_query":  fileNotAvailable("database_query"),
	"email_send":      fileNotAvailable("email_send"),
	"slack_send":      fileNotAvailable("slack_send"),
}

func builtinHandler(name string) Handler {
	if h, ok := builtinHandlers[name]; ok {
		return h
	}
	return notAvailableHandler("builtin tool " + name)
}

// fileNotAvailable returns a handler for builtins this gateway recognizes
// by name but deliberately does not implement: sandboxed filesystem,
// shell, database, and messaging access are outside a multi-tenant
// gateway's trust boundary without a per-deployment credential model,
// which is a non-goal here.
func fileNotAvailable(name string) Handler {
	return func(ctx context.Context, tc *ToolContext, args json.RawMessage) (any, error) {
		return notAvailable{Error: name + " not available in this environment"}, nil
	}
}

type webSearchArgs struct {
	Query string `json:"query"`
}

// webSearchHandler has no search backend wired (a non-goal: "AI/LLM
// provider endpoints" are external collaborators), so it reports the
// structured not-available shape rather than performing a real search.
func webSearchHandler(ctx context.Context, tc *ToolContext, args json.RawMessage) (any, error) {
	var a webSearchArgs
	_ = json.Unmarshal(args, &a)
	return notAvailable{Error: "web_search not available in this environment"}, nil
}

type webFetchArgs struct {
	URL    string `json:"url"`
	Method string `json:"method,omitempty"`
}

type webFetchResult struct {
	Error   string `json:"error,omitempty"`
	Blocked bool   `json:"blocked,omitempty"`
	Status  int    `json:"status,omitempty"`
	Body    string `json:"body,omitempty"`
}

// webFetchHandler implements §4.3c's web_fetch: SSRF-validated outbound
// GET/POST with the response body passed through as text.
func webFetchHandler(ctx context.Context, tc *ToolContext, args json.RawMessage) (any, error) {
	var a webFetchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return webFetchResult{Error: "invalid arguments: " + err.Error()}, nil
	}

	if blocked, reason := ssrfCheck(a.URL); blocked {
		return webFetchResult{Error: reason, Blocked: true}, nil
	}

	method := a.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, a.URL, nil)
	if err != nil {
		return webFetchResult{Error: err.Error()}, nil
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return webFetchResult{Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return webFetchResult{Error: err.Error()}, nil
	}

	return webFetchResult{Status: resp.StatusCode, Body: string(body)}, nil
}

// apiHandler implements the ToolKindAPI contract: POST the input JSON to
// the declared endpoint, passing the response through as decoded JSON
// when the body parses as JSON and as raw text otherwise. The response's
// Content-Type header is not consulted.
func apiHandler(endpoint string) Handler {
	return func(ctx context.Context, tc *ToolContext, args json.RawMessage) (any, error) {
		if blocked, reason := ssrfCheck(endpoint); blocked {
			return webFetchResult{Error: reason, Blocked: true}, nil
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(args))
		if err != nil {
			return notAvailable{Error: err.Error()}, nil
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := httpClient.Do(req)
		if err != nil {
			return notAvailable{Error: fmt.Sprintf("api tool request failed: %v", err)}, nil
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return notAvailable{Error: err.Error()}, nil
		}

		var v any
		if json.Unmarshal(body, &v) == nil {
			return v, nil
		}
		return string(body), nil
	}
}
