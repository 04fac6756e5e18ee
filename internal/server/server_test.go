package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/homemade/remap/internal/rulesource"
	"github.com/homemade/remap/internal/rulestore"
	"github.com/homemade/remap/mapping"
)

const orderDocument = `{"code":"order","mappings":[
	{"sourcePath":"customer.name","targetPath":"name","processors":["uppercase"]},
	{"sourcePath":"lines[*].amount","targetPath":"total","aggregationStrategies":["sum"]},
	{"sourcePath":"customer.phone","targetPath":"phone"}
]}`

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServer struct {
	*Server
	registry *mapping.Registry
	store    *rulestore.Store
}

func newTestServer(t *testing.T, withStore bool, opts ...Option) testServer {
	t.Helper()
	registry := mapping.NewRegistry()
	executor := mapping.NewExecutor(registry, mapping.WithLogger(quietLogger()))
	ts := testServer{registry: registry}
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	if withStore {
		db, err := rulestore.Open("sqlite://" + filepath.Join(t.TempDir(), "rules.db"))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		ts.store, err = rulestore.New(db, rulestore.WithLogger(quietLogger()))
		require.NoError(t, err)
		require.NoError(t, ts.store.Migrate(context.Background()))
		opts = append(opts, WithStore(ts.store))
	}
	ts.Server = New(registry, executor, opts...)
	return ts
}

func (ts testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func registerOrder(t *testing.T, registry *mapping.Registry) {
	t.Helper()
	cfg, err := mapping.ParseRuleSetJSON([]byte(orderDocument))
	require.NoError(t, err)
	set, err := cfg.Compile()
	require.NoError(t, err)
	require.NoError(t, registry.Register(set))
}

func TestProcess(t *testing.T) {
	ts := newTestServer(t, false)
	registerOrder(t, ts.registry)

	rec := ts.do(t, http.MethodPost, "/mapping/process?code=order",
		`{"source":{"customer":{"name":"ada"},"lines":[{"amount":1.5},{"amount":2.25}]},"targetTemplate":{"kind":"order"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Equal(t, "order", gjson.Get(body, "code").String())
	assert.JSONEq(t, `{"kind":"order","name":"ADA","total":3.75}`, gjson.Get(body, "result").Raw)
	assert.JSONEq(t, `["customer.phone"]`, gjson.Get(body, "invalidFields").Raw)
}

func TestProcess_Errors(t *testing.T) {
	ts := newTestServer(t, false)
	registerOrder(t, ts.registry)

	tests := []struct {
		name   string
		target string
		body   string
		status int
		code   string
	}{
		{"missing code", "/mapping/process", `{"source":{}}`, http.StatusBadRequest, "missing_code"},
		{"empty body", "/mapping/process?code=order", "", http.StatusBadRequest, "invalid_body"},
		{"invalid json", "/mapping/process?code=order", `{"source":`, http.StatusBadRequest, "invalid_body"},
		{"missing source", "/mapping/process?code=order", `{"targetTemplate":{}}`, http.StatusBadRequest, "invalid_body"},
		{"unknown code", "/mapping/process?code=refund", `{"source":{}}`, http.StatusNotFound, "rule_set_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, gjson.Get(rec.Body.String(), "error.code").String())
		})
	}
}

func TestRuleLifecycle(t *testing.T) {
	ts := newTestServer(t, true)

	rec := ts.do(t, http.MethodPost, "/mapping/rule", orderDocument)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(3), gjson.Get(rec.Body.String(), "mappings").Int())
	assert.Equal(t, 1, ts.registry.Len())

	rec = ts.do(t, http.MethodPost, "/mapping/rule", orderDocument)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodGet, "/mapping/rule", "")
	assert.JSONEq(t, `{"codes":["order"]}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/mapping/rule/order", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Rule-Set-Version"))
	assert.JSONEq(t, orderDocument, rec.Body.String())

	replaced := `{"code":"order","mappings":[{"sourcePath":"id","targetPath":"orderId"}]}`
	rec = ts.do(t, http.MethodPut, "/mapping/rule/order", replaced)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	set, ok := ts.registry.Get("order")
	require.True(t, ok)
	assert.Equal(t, 1, set.Len())

	rec = ts.do(t, http.MethodPut, "/mapping/rule/invoice", replaced)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "code_mismatch", gjson.Get(rec.Body.String(), "error.code").String())

	rec = ts.do(t, http.MethodDelete, "/mapping/rule/order", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, ts.registry.Len())

	rec = ts.do(t, http.MethodGet, "/mapping/rule/order", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/mapping/rule/order", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRule_InvalidDocument(t *testing.T) {
	ts := newTestServer(t, true)

	for _, doc := range []string{
		`{"code":"order"}`,
		`{"code":"order","mappings":[{"sourcePath":"a..b","targetPath":"c"}]}`,
		`not json`,
	} {
		rec := ts.do(t, http.MethodPost, "/mapping/rule", doc)
		assert.Equal(t, http.StatusBadRequest, rec.Code, doc)
		assert.Equal(t, "invalid_rule_set", gjson.Get(rec.Body.String(), "error.code").String(), doc)
	}
	assert.Equal(t, 0, ts.registry.Len())
}

func TestMappingEdits(t *testing.T) {
	ts := newTestServer(t, true)
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/mapping/rule", orderDocument).Code)

	rec := ts.do(t, http.MethodPut, "/mapping/rule/order/mapping",
		`{"sourcePath":"customer.email","targetPath":"email","processors":["lowercase"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(4), gjson.Get(rec.Body.String(), "mappings.#").Int())
	set, _ := ts.registry.Get("order")
	assert.Equal(t, 4, set.Len())

	stored, err := ts.store.Get(context.Background(), "order")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)

	rec = ts.do(t, http.MethodDelete, "/mapping/rule/order/mapping?targetPath=phone", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	set, _ = ts.registry.Get("order")
	assert.Equal(t, 3, set.Len())

	rec = ts.do(t, http.MethodDelete, "/mapping/rule/order/mapping?targetPath=phone", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "mapping_not_found", gjson.Get(rec.Body.String(), "error.code").String())

	rec = ts.do(t, http.MethodDelete, "/mapping/rule/order/mapping", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/mapping/rule/refund/mapping", `{"sourcePath":"a","targetPath":"b"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuleWrites_NeedStore(t *testing.T) {
	ts := newTestServer(t, false)
	registerOrder(t, ts.registry)

	assert.Equal(t, http.StatusNotImplemented, ts.do(t, http.MethodPost, "/mapping/rule", orderDocument).Code)
	assert.Equal(t, http.StatusNotImplemented, ts.do(t, http.MethodDelete, "/mapping/rule/order", "").Code)

	rec := ts.do(t, http.MethodGet, "/mapping/rule", "")
	assert.JSONEq(t, `{"codes":["order"]}`, rec.Body.String())

	rec = ts.do(t, http.MethodGet, "/mapping/rule/order", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "order", gjson.Get(rec.Body.String(), "code").String())
}

func TestRuleDoc(t *testing.T) {
	ts := newTestServer(t, false)
	registerOrder(t, ts.registry)

	rec := ts.do(t, http.MethodGet, "/mapping/rule/order/doc.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "# Rule set: order", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Target Path,Source Path"))

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/mapping/rule/refund/doc.csv", "").Code)
}

func TestHealthAndRequestID(t *testing.T) {
	ts := newTestServer(t, false)
	registerOrder(t, ts.registry)

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.JSONEq(t, `{"status":"ok","ruleSets":1}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, false)
	registerOrder(t, ts.registry)

	ts.do(t, http.MethodPost, "/mapping/process?code=order", `{"source":{"customer":{"name":"ada"}}}`)
	ts.do(t, http.MethodPost, "/mapping/process?code=refund", `{"source":{}}`)

	body := ts.do(t, http.MethodGet, "/metrics", "").Body.String()
	assert.Contains(t, body, `remap_executions_total{code="order",outcome="ok"} 1`)
	assert.Contains(t, body, `remap_executions_total{code="refund",outcome="not_found"} 1`)
	assert.Contains(t, body, `remap_skipped_fields_total{code="order"} 2`)
	assert.Contains(t, body, "remap_execution_seconds")
}

type stubReloader struct {
	result rulesource.ReloadResult
	err    error
}

func (s stubReloader) Reload(context.Context) (rulesource.ReloadResult, error) {
	return s.result, s.err
}

func TestReload(t *testing.T) {
	ts := newTestServer(t, false)
	assert.Equal(t, http.StatusNotImplemented, ts.do(t, http.MethodPost, "/admin/reload", "").Code)

	ts = newTestServer(t, false, WithReloader(stubReloader{result: rulesource.ReloadResult{
		Loaded:  []string{"order"},
		Invalid: map[string]error{"bad": errors.New("malformed path")},
	}}))
	rec := ts.do(t, http.MethodPost, "/admin/reload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"loaded":["order"],"invalid":{"bad":"malformed path"}}`, rec.Body.String())

	ts = newTestServer(t, false, WithReloader(stubReloader{err: errors.New("unavailable")}))
	assert.Equal(t, http.StatusBadGateway, ts.do(t, http.MethodPost, "/admin/reload", "").Code)
}
