package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qr "github.com/jpmoresmau/queryrunner"
	"github.com/jpmoresmau/queryrunner/internal/engine"
	"github.com/jpmoresmau/queryrunner/internal/pluginhost"
)

// stubAdapter feeds one row ("John Doe", "john.doe@example.com") through
// the handle and returns End's aggregation, reproducing the test_collect2
// fixture the reference server's integration tests assert against.
type stubAdapter struct{}

func (stubAdapter) Execute(ctx context.Context, conn qr.Connection, handle qr.ExecutionHandle) (*qr.QueryResult, error) {
	if _, err := handle.Row(ctx, []qr.NamedValue{
		{Name: "name", Value: qr.StringValue("John Doe")},
		{Name: "email", Value: qr.StringValue("john.doe@example.com")},
	}); err != nil {
		return nil, err
	}
	return handle.End(ctx, []string{"name", "email"})
}

func newTestHandler() http.Handler {
	plugins := map[string]pluginhost.Module{
		"test_collect2": pluginhost.NewCollectorModule(
			"test_collect2",
			"test plugin collecting results",
			"select name, email from users where name = {{user_name}}",
			[]qr.Parameter{{Name: "user_name", Kind: qr.KindString}},
			nil,
		),
	}
	connections := map[string]qr.Connection{
		"postgres1": {Name: "postgres1", Kind: qr.ConnectionPostgres},
	}
	adapters := map[qr.ConnectionKind]qr.Adapter{qr.ConnectionPostgres: stubAdapter{}}
	eng := engine.New(plugins, connections, adapters, nil)
	return NewHandler(eng, nil)
}

func TestPluginExecuteSuccess(t *testing.T) {
	handler := newTestHandler()
	body := strings.NewReader(`{"user_name":"john"}`)
	req := httptest.NewRequest(http.MethodPost, "/plugins/test_collect2/postgres1", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got qr.QueryResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"name", "email"}, got.Names)
	assert.Equal(t, "John Doe", got.Values[0][0].Str)
	assert.Equal(t, "john.doe@example.com", got.Values[0][1].Str)
}

func TestPluginExecuteMissingPlugin(t *testing.T) {
	handler := newTestHandler()
	body := strings.NewReader(`{"user_name":"john"}`)
	req := httptest.NewRequest(http.MethodPost, "/plugins/missing/postgres1", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, "{\"error\":\"plugin `missing` not found\"}", rec.Body.String())
}

func TestPluginExecuteMissingConnection(t *testing.T) {
	handler := newTestHandler()
	body := strings.NewReader(`{"user_name":"john"}`)
	req := httptest.NewRequest(http.MethodPost, "/plugins/test_collect2/missing", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, "{\"error\":\"connection `missing` not found\"}", rec.Body.String())
}

func TestPluginExecuteMissingParameter(t *testing.T) {
	handler := newTestHandler()
	body := strings.NewReader(`{"unknown":"john"}`)
	req := httptest.NewRequest(http.MethodPost, "/plugins/test_collect2/postgres1", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, "{\"error\":\"plugin `test_collect2` failed on connection `postgres1` while parsing parameters: no value provided for parameter `user_name`\"}", rec.Body.String())
}

func TestPluginMetadataEndpoint(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/plugins/test_collect2", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got pluginMetadataDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "test_collect2", got.Name)
	assert.Equal(t, "test plugin collecting results", got.Description)
	assert.Equal(t, []qr.Parameter{{Name: "user_name", Kind: qr.KindString}}, got.Parameters)
}

func TestPluginMetadataMissing(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/plugins/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, "{\"error\":\"plugin `missing` not found\"}", rec.Body.String())
}

func TestListConnections(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/connections", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"postgres1","db_type":"postgres"}]`, rec.Body.String())
}

func TestListPlugins(t *testing.T) {
	handler := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/plugins", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"test_collect2","description":"test plugin collecting results"}]`, rec.Body.String())
}
