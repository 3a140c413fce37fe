// Package pluginhost loads and drives sandboxed WebAssembly query plugins.
//
// A plugin module is reusable across invocations but owns no long-lived
// host-side state: every Start call gets a freshly instantiated copy of the
// module, so two concurrent invocations of the same plugin never observe
// each other's interior buffers. Module and Handle are interfaces so the
// rest of the engine (the orchestrator, the adapters) never depends on
// wazero directly — tests substitute an in-process fake that speaks the
// same protocol without a compiled .wasm binary.
package pluginhost

import (
	"context"

	qr "github.com/jpmoresmau/queryrunner"
)

// Module is a loaded, sandboxed plugin binary. Metadata may be called any
// number of times; Start must be called once per invocation and returns a
// Handle that is itself single-use.
type Module interface {
	// Metadata asks the plugin for its description and parameter schema.
	Metadata(ctx context.Context) (qr.Metadata, error)

	// Start begins one execution, binding the given variables into a fresh,
	// isolated instance of the module. The returned Handle is owned by
	// exactly one caller and must be closed when the invocation ends.
	Start(ctx context.Context, variables []qr.NamedValue) (Handle, error)

	// Name returns the plugin's registered name (its file stem).
	Name() string

	// Close releases the compiled module. Safe to call once, at shutdown.
	Close(ctx context.Context) error
}

// Handle represents one in-flight plugin invocation. It owns interior
// scratch state (accumulated rows, bound variables, SQL text) for the
// lifetime between Start and End/Close, and must never be shared across
// invocations or reused after Close.
type Handle interface {
	// QueryString returns the plugin-emitted SQL template, placeholders
	// still in {{name}} form.
	QueryString(ctx context.Context) (string, error)

	// Variables returns the NamedValues the plugin wants bound — which may
	// differ from the caller's raw inputs (a plugin can add, drop, or
	// reorder variables relative to what run() received).
	Variables(ctx context.Context) ([]qr.NamedValue, error)

	// Row feeds one database row to the plugin. A nil result means the
	// plugin is still collecting; a non-nil result is a partial aggregation
	// the caller must fold in with qr.AddResult.
	Row(ctx context.Context, row []qr.NamedValue) (*qr.QueryResult, error)

	// End signals that the row stream is exhausted and asks the plugin for
	// its final aggregation. Called exactly once, after the last Row call.
	End(ctx context.Context, columnNames []string) (*qr.QueryResult, error)

	// Close releases the per-invocation module instance. Safe to call
	// after End, and on any error exit path.
	Close(ctx context.Context) error
}
