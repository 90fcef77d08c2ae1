package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot-do/functions-gateway/internal/logstore"
)

func TestLogs_InvalidFunctionID(t *testing.T) {
	s := &Server{LogStore: logstore.New()}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/functions/bad id/logs", nil), "id", "bad id")
	rec := httptest.NewRecorder()
	s.Logs(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogs_ServiceUnavailableWithoutStore(t *testing.T) {
	s := &Server{}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/functions/fn-a/logs", nil), "id", "fn-a")
	rec := httptest.NewRecorder()
	s.Logs(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogs_ReturnsAppendedEntries(t *testing.T) {
	store := logstore.New()
	store.Append("fn-a", logstore.Entry{Level: "info", Message: "hello"})
	s := &Server{LogStore: store}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/functions/fn-a/logs", nil), "id", "fn-a")
	rec := httptest.NewRecorder()
	s.Logs(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello")
}

func TestLogs_LimitQueryParam(t *testing.T) {
	store := logstore.New()
	for i := 0; i < 5; i++ {
		store.Append("fn-b", logstore.Entry{Level: "info", Message: "line"})
	}
	s := &Server{LogStore: store}

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/functions/fn-b/logs?limit=2", nil), "id", "fn-b")
	rec := httptest.NewRecorder()
	s.Logs(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hasMore":true`)
}
