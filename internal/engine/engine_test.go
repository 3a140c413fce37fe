package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qr "github.com/jpmoresmau/queryrunner"
	"github.com/jpmoresmau/queryrunner/internal/pluginhost"
)

// stubAdapter drives a handle by feeding it zero rows and returning End's
// result directly, enough to exercise the orchestrator without a real
// database.
type stubAdapter struct {
	executeErr error
}

func (a *stubAdapter) Execute(ctx context.Context, conn qr.Connection, handle qr.ExecutionHandle) (*qr.QueryResult, error) {
	if a.executeErr != nil {
		return nil, a.executeErr
	}
	if _, err := handle.QueryString(ctx); err != nil {
		return nil, err
	}
	if _, err := handle.Variables(ctx); err != nil {
		return nil, err
	}
	return handle.End(ctx, nil)
}

func newTestEngine(t *testing.T) (*Engine, *pluginhost.CollectorModule) {
	t.Helper()
	module := pluginhost.NewCollectorModule(
		"test_collect",
		"test plugin collecting results",
		"select 1",
		[]qr.Parameter{{Name: "customer_id", Kind: qr.KindInteger}},
		[]string{"id"},
	)
	plugins := map[string]pluginhost.Module{"test_collect": module}
	connections := map[string]qr.Connection{
		"memory": {Name: "memory", Kind: qr.ConnectionSQLite, SQLitePath: qr.MemoryPath},
	}
	adapters := map[qr.ConnectionKind]qr.Adapter{qr.ConnectionSQLite: &stubAdapter{}}
	return New(plugins, connections, adapters, nil), module
}

func TestRunResolvesAndCoercesParameters(t *testing.T) {
	eng, _ := newTestEngine(t)
	result, err := eng.Run(context.Background(), "test_collect", "memory", map[string]string{"customer_id": "42"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{"id"}, result.Names)
}

func TestRunMissingPlugin(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Run(context.Background(), "missing", "memory", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, qr.ErrPluginMissing)
	assert.Equal(t, "plugin `missing` not found", err.Error())
}

func TestRunMissingConnection(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Run(context.Background(), "test_collect", "missing", map[string]string{"customer_id": "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, qr.ErrConnectionMissing)
	assert.Equal(t, "connection `missing` not found", err.Error())
}

func TestRunMissingParameterIsBadRequestClass(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.Run(context.Background(), "test_collect", "memory", map[string]string{})
	require.Error(t, err)
	assert.ErrorIs(t, err, qr.ErrBadParameter)
	assert.Equal(t, "plugin `test_collect` failed on connection `memory` while parsing parameters: no value provided for parameter `customer_id`", err.Error())
}

func TestRunAdapterExecutionFailureIsPluginExecutionClass(t *testing.T) {
	plugins := map[string]pluginhost.Module{
		"test_collect": pluginhost.NewCollectorModule("test_collect", "d", "select 1", nil, []string{"id"}),
	}
	connections := map[string]qr.Connection{
		"memory": {Name: "memory", Kind: qr.ConnectionSQLite, SQLitePath: qr.MemoryPath},
	}
	boom := errors.New("boom")
	adapters := map[qr.ConnectionKind]qr.Adapter{qr.ConnectionSQLite: &stubAdapter{executeErr: boom}}
	eng := New(plugins, connections, adapters, nil)

	_, err := eng.Run(context.Background(), "test_collect", "memory", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, qr.ErrPluginExecution)
	assert.Equal(t, "plugin `test_collect` failed on connection `memory`: boom", err.Error())
}

func TestListConnectionsSortedByName(t *testing.T) {
	eng, _ := newTestEngine(t)
	infos := eng.ListConnections()
	require.Len(t, infos, 1)
	assert.Equal(t, "memory", infos[0].Name)
	assert.Equal(t, qr.ConnectionSQLite, infos[0].Kind)
}

func TestListPluginsSortedByName(t *testing.T) {
	eng, _ := newTestEngine(t)
	infos, err := eng.ListPlugins(context.Background())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "test_collect", infos[0].Name)
	assert.Equal(t, "test plugin collecting results", infos[0].Description)
}

func TestPluginMetadataMissing(t *testing.T) {
	eng, _ := newTestEngine(t)
	_, err := eng.PluginMetadata(context.Background(), "missing")
	assert.ErrorIs(t, err, qr.ErrPluginMissing)
	assert.Equal(t, "plugin `missing` not found", err.Error())
}
