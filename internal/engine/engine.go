// Package engine implements the execution orchestrator: the single entry
// point that resolves a plugin and a connection, coerces the caller's raw
// parameters, drives the plugin through the adapter bound to the
// connection's kind, and returns the aggregated result.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	qr "github.com/jpmoresmau/queryrunner"
	"github.com/jpmoresmau/queryrunner/internal/pluginhost"
	"github.com/jpmoresmau/queryrunner/internal/rlog"
)

// ConnectionInfo is the listing shape for GET /connections.
type ConnectionInfo struct {
	Name string
	Kind qr.ConnectionKind
}

// PluginInfo is the listing shape for GET /plugins.
type PluginInfo struct {
	Name        string
	Description string
}

// Engine ties together the plugin registry, the connection registry, and
// one Adapter per connection kind. Both registries are read-only after
// construction — the only mutable state the engine touches per invocation
// is a fresh plugin instance and a fresh (or pooled) driver connection,
// never anything shared across goroutines.
type Engine struct {
	plugins     map[string]pluginhost.Module
	connections map[string]qr.Connection
	adapters    map[qr.ConnectionKind]qr.Adapter
	logger      *zap.Logger
}

// New builds an Engine from its fully-loaded registries. Callers (the
// config loader, tests) own constructing plugins/connections/adapters;
// the engine never loads anything itself.
func New(plugins map[string]pluginhost.Module, connections map[string]qr.Connection, adapters map[qr.ConnectionKind]qr.Adapter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		plugins:     plugins,
		connections: connections,
		adapters:    adapters,
		logger:      logger.Named("engine"),
	}
}

// ListConnections returns every configured connection, sorted by name.
func (e *Engine) ListConnections() []ConnectionInfo {
	out := make([]ConnectionInfo, 0, len(e.connections))
	for name, conn := range e.connections {
		out = append(out, ConnectionInfo{Name: name, Kind: conn.Kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListPlugins returns every loaded plugin's name and description, sorted
// by name. Fetching the description requires asking each module for its
// metadata.
func (e *Engine) ListPlugins(ctx context.Context) ([]PluginInfo, error) {
	out := make([]PluginInfo, 0, len(e.plugins))
	for name, module := range e.plugins {
		meta, err := module.Metadata(ctx)
		if err != nil {
			return nil, qr.Detailf(qr.ErrPluginMetadata, "Error retrieving plugin metadata")
		}
		out = append(out, PluginInfo{Name: name, Description: meta.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PluginMetadata resolves a plugin by name and returns its metadata.
func (e *Engine) PluginMetadata(ctx context.Context, plugin string) (qr.Metadata, error) {
	module, ok := e.plugins[plugin]
	if !ok {
		return qr.Metadata{}, qr.Detailf(qr.ErrPluginMissing, "plugin `%s` not found", plugin)
	}
	meta, err := module.Metadata(ctx)
	if err != nil {
		return qr.Metadata{}, qr.Detailf(qr.ErrPluginMetadata, "Error retrieving plugin metadata")
	}
	return meta, nil
}

// Run resolves plugin and connection, coerces raw string parameters
// against the plugin's declared schema, and then executes exactly as
// RunTyped does.
func (e *Engine) Run(ctx context.Context, plugin, connection string, raw map[string]string) (*qr.QueryResult, error) {
	module, conn, err := e.resolve(plugin, connection)
	if err != nil {
		return nil, err
	}
	meta, err := module.Metadata(ctx)
	if err != nil {
		return nil, qr.Detailf(qr.ErrPluginMetadata, "Error retrieving plugin metadata")
	}
	params, err := qr.ParseParameters(meta.Parameters, raw)
	if err != nil {
		return nil, qr.Detailf(qr.ErrBadParameter, "plugin `%s` failed on connection `%s` while parsing parameters: %s", plugin, connection, stripBadParameterPrefix(err))
	}
	return e.run(ctx, plugin, connection, module, conn, params)
}

// RunTyped is like Run but skips parameter coercion — the caller already
// has a typed parameter list.
func (e *Engine) RunTyped(ctx context.Context, plugin, connection string, params []qr.NamedValue) (*qr.QueryResult, error) {
	module, conn, err := e.resolve(plugin, connection)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, plugin, connection, module, conn, params)
}

func (e *Engine) resolve(plugin, connection string) (pluginhost.Module, qr.Connection, error) {
	module, ok := e.plugins[plugin]
	if !ok {
		return nil, qr.Connection{}, qr.Detailf(qr.ErrPluginMissing, "plugin `%s` not found", plugin)
	}
	conn, ok := e.connections[connection]
	if !ok {
		return nil, qr.Connection{}, qr.Detailf(qr.ErrConnectionMissing, "connection `%s` not found", connection)
	}
	return module, conn, nil
}

func (e *Engine) run(ctx context.Context, plugin, connection string, module pluginhost.Module, conn qr.Connection, params []qr.NamedValue) (*qr.QueryResult, error) {
	adapter, ok := e.adapters[conn.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no adapter registered for connection kind %q", qr.ErrConfiguration, conn.Kind)
	}

	invocationID := rlog.InvocationID()
	fields := rlog.Fields(invocationID, plugin, connection)
	start := time.Now()
	e.logger.Info("invocation started", fields...)

	handle, err := module.Start(ctx, params)
	if err != nil {
		e.logger.Error("plugin start failed", append(fields, zap.Error(err))...)
		return nil, qr.Detailf(qr.ErrPluginExecution, "plugin `%s` failed on connection `%s`: %s", plugin, connection, err)
	}
	defer handle.Close(ctx)

	result, err := adapter.Execute(ctx, conn, handle)
	if err != nil {
		e.logger.Error("invocation failed", append(fields, zap.Error(err), rlog.Elapsed(start))...)
		return nil, qr.Detailf(qr.ErrPluginExecution, "plugin `%s` failed on connection `%s`: %s", plugin, connection, err)
	}
	e.logger.Info("invocation completed", append(fields, rlog.Elapsed(start))...)
	return result, nil
}

// stripBadParameterPrefix drops ParseParameters' own "bad parameter: "
// prefix so it reads as one sentence inside Run's own
// "... while parsing parameters: <detail>" wrapper.
func stripBadParameterPrefix(err error) string {
	const prefix = "bad parameter: "
	msg := err.Error()
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
