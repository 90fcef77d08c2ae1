package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dot-do/functions-gateway/internal/model"
	"github.com/dot-do/functions-gateway/internal/storage"
)

func newTestServer() *Server {
	facade := &storage.Facade{Registry: storage.NewMemRegistry(), Code: storage.NewMemCodeStore()}
	return &Server{StorageResolver: &storage.Resolver{Default: facade}}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestDeployFunction_RejectsMissingID(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/functions", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	s.DeployFunction(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployFunction_RejectsInvalidID(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/api/functions", bytes.NewBufferString(`{"id":"-bad-id"}`))
	rec := httptest.NewRecorder()
	s.DeployFunction(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployFunction_StoresMetadataAndCode(t *testing.T) {
	s := newTestServer()
	body := `{"id":"my-fn","language":"typescript","entryPoint":"index.ts","code":"export default () => 1;"}`
	req := httptest.NewRequest(http.MethodPost, "/api/functions", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	s.DeployFunction(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	facade, err := s.StorageResolver.Resolve("")
	require.NoError(t, err)
	meta, err := facade.Registry.Get(context.Background(), "", "my-fn")
	require.NoError(t, err)
	assert.Equal(t, model.KindCode, meta.EffectiveKind())

	code, err := facade.Code.Get(context.Background(), "", "my-fn")
	require.NoError(t, err)
	assert.Equal(t, "export default () => 1;", code.Source)
}

func TestGetFunction_NotFound(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/functions/nope", nil)
	req = withURLParam(req, "id", "nope")
	rec := httptest.NewRecorder()
	s.GetFunction(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetFunction_InvalidID(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/functions/bad id", nil)
	req = withURLParam(req, "id", "bad id")
	rec := httptest.NewRecorder()
	s.GetFunction(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeployThenGetFunction_RoundTrips(t *testing.T) {
	s := newTestServer()
	deployReq := httptest.NewRequest(http.MethodPost, "/api/functions", bytes.NewBufferString(`{"id":"rt-fn"}`))
	s.DeployFunction(httptest.NewRecorder(), deployReq)

	getReq := withURLParam(httptest.NewRequest(http.MethodGet, "/api/functions/rt-fn", nil), "id", "rt-fn")
	rec := httptest.NewRecorder()
	s.GetFunction(rec, getReq)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rt-fn"`)
}

func TestUpdateFunction_AppliesPatch(t *testing.T) {
	s := newTestServer()
	s.DeployFunction(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/functions", bytes.NewBufferString(`{"id":"patchable"}`)))

	patchReq := withURLParam(httptest.NewRequest(http.MethodPatch, "/api/functions/patchable", bytes.NewBufferString(`{"language":"python"}`)), "id", "patchable")
	rec := httptest.NewRecorder()
	s.UpdateFunction(rec, patchReq)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"python"`)
}

func TestDeleteFunction_ThenGetReturns404(t *testing.T) {
	s := newTestServer()
	s.DeployFunction(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/functions", bytes.NewBufferString(`{"id":"deletable"}`)))

	delReq := withURLParam(httptest.NewRequest(http.MethodDelete, "/api/functions/deletable", nil), "id", "deletable")
	delRec := httptest.NewRecorder()
	s.DeleteFunction(delRec, delReq)
	assert.Equal(t, http.StatusNoContent, delRec.Code)

	getReq := withURLParam(httptest.NewRequest(http.MethodGet, "/api/functions/deletable", nil), "id", "deletable")
	getRec := httptest.NewRecorder()
	s.GetFunction(getRec, getReq)
	assert.Equal(t, http.StatusNotFound, getRec.Code)
}

func TestListFunctions_ReturnsDeployed(t *testing.T) {
	s := newTestServer()
	s.DeployFunction(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/functions", bytes.NewBufferString(`{"id":"list-a"}`)))
	s.DeployFunction(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/functions", bytes.NewBufferString(`{"id":"list-b"}`)))

	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	s.ListFunctions(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "list-a")
	assert.Contains(t, rec.Body.String(), "list-b")
}

func TestFacadeForRequest_ServiceUnavailableWhenUnresolved(t *testing.T) {
	s := &Server{StorageResolver: &storage.Resolver{}}
	req := httptest.NewRequest(http.MethodGet, "/api/functions", nil)
	rec := httptest.NewRecorder()
	s.ListFunctions(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 100, parseLimit("", 100, 1000))
	assert.Equal(t, 50, parseLimit("50", 100, 1000))
	assert.Equal(t, 1000, parseLimit("5000", 100, 1000))
	assert.Equal(t, 100, parseLimit("not-a-number", 100, 1000))
	assert.Equal(t, 100, parseLimit("-5", 100, 1000))
}
