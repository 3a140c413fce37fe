package pluginhost

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	wasi "github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	qr "github.com/jpmoresmau/queryrunner"
)

// Wire ABI a plugin binary must export (see spec.md §6 "Plugin ABI" and
// DESIGN.md for why the packed-pointer convention below, rather than the
// host-function-import style used elsewhere in the corpus, was chosen):
//
//	alloc(size uint32) uint32
//	dealloc(ptr, size uint32)
//	metadata() uint64                        // packed(ptr,len) JSON Metadata
//	start(varsPtr, varsLen uint32) uint32     // 1 ok, 0 error (see last_error)
//	query_string() uint64                     // packed(ptr,len) UTF-8 SQL
//	variables() uint64                        // packed(ptr,len) JSON []NamedValue
//	row(rowPtr, rowLen uint32) uint64         // packed(ptr,len) JSON QueryResult, (0,0)=None
//	end(namesPtr, namesLen uint32) uint64     // packed(ptr,len) JSON QueryResult, (0,0)=None
//	last_error() uint64                       // packed(ptr,len) UTF-8 message
//
// The host instantiates WASI preview1 with no filesystem mounts and no
// sockets; each instance is connected only to the wall and monotonic
// clocks, a random source and the host's stderr (see instantiate) — per
// spec.md §4.C the reference design imports no host syscalls, so a plugin
// cannot reach the network or the filesystem no matter what it does.
const (
	fnAlloc       = "alloc"
	fnDealloc     = "dealloc"
	fnMetadata    = "metadata"
	fnStart       = "start"
	fnQueryString = "query_string"
	fnVariables   = "variables"
	fnRow         = "row"
	fnEnd         = "end"
	fnLastError   = "last_error"
)

// Runtime owns the wazero runtime shared by every loaded plugin. It is the
// "plugin module registry" of spec.md §5: read-only once plugins finish
// loading, safe for concurrent Start calls across goroutines.
type Runtime struct {
	runtime wazero.Runtime
}

// NewRuntime creates a fresh wazero runtime with WASI preview1 wired in (the
// guest gets clocks, randomness and stderr — no filesystem, no sockets).
func NewRuntime(ctx context.Context) (*Runtime, error) {
	rt := wazero.NewRuntime(ctx)
	if _, err := wasi.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("%w: instantiating WASI: %s", qr.ErrConfiguration, err)
	}
	return &Runtime{runtime: rt}, nil
}

// Close tears down every compiled module and the runtime itself.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// LoadFile compiles a plugin binary from disk. The plugin name is typically
// the file's stem (spec.md §6 "Plugin discovery"); callers in internal/config
// supply it.
func (r *Runtime) LoadFile(ctx context.Context, name, path string) (Module, error) {
	binary, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading plugin %q: %s", qr.ErrConfiguration, path, err)
	}
	return r.LoadBytes(ctx, name, binary)
}

// LoadBytes compiles a plugin binary already in memory.
func (r *Runtime) LoadBytes(ctx context.Context, name string, binary []byte) (Module, error) {
	compiled, err := r.runtime.CompileModule(ctx, binary)
	if err != nil {
		return nil, fmt.Errorf("%w: compiling plugin %q: %s", qr.ErrConfiguration, name, err)
	}
	return &wasmModule{name: name, runtime: r.runtime, compiled: compiled}, nil
}

type wasmModule struct {
	name     string
	runtime  wazero.Runtime
	compiled wazero.CompiledModule
}

func (m *wasmModule) Name() string { return m.name }

func (m *wasmModule) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// instantiate creates a fresh, isolated instance of the compiled module.
// Every Metadata and Start call gets its own instance so interior plugin
// state never leaks between invocations (spec.md §4.C, §9).
func (m *wasmModule) instantiate(ctx context.Context) (api.Module, error) {
	cfg := wazero.NewModuleConfig().
		WithStderr(os.Stderr).
		WithRandSource(nil).
		WithSysWalltime().
		WithSysNanotime()
	instance, err := m.runtime.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: instantiating plugin %q: %s", qr.ErrPluginExecution, m.name, err)
	}
	return instance, nil
}

func (m *wasmModule) Metadata(ctx context.Context) (qr.Metadata, error) {
	instance, err := m.instantiate(ctx)
	if err != nil {
		return qr.Metadata{}, err
	}
	defer instance.Close(ctx)

	h := &wasmCall{instance: instance, pluginName: m.name}
	data, err := h.callForBytes(ctx, fnMetadata)
	if err != nil {
		return qr.Metadata{}, fmt.Errorf("%w: plugin %q: %s", qr.ErrPluginMetadata, m.name, err)
	}
	var wire metadataWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return qr.Metadata{}, fmt.Errorf("%w: plugin %q returned malformed metadata: %s", qr.ErrPluginMetadata, m.name, err)
	}
	return wire.toMetadata()
}

func (m *wasmModule) Start(ctx context.Context, variables []qr.NamedValue) (Handle, error) {
	instance, err := m.instantiate(ctx)
	if err != nil {
		return nil, err
	}
	call := &wasmCall{instance: instance, pluginName: m.name}

	payload, err := json.Marshal(namedValuesToWire(variables))
	if err != nil {
		instance.Close(ctx)
		return nil, fmt.Errorf("%w: marshaling variables for plugin %q: %s", qr.ErrPluginExecution, m.name, err)
	}
	ptr, length, err := call.writeBytes(ctx, payload)
	if err != nil {
		instance.Close(ctx)
		return nil, err
	}
	startFn := instance.ExportedFunction(fnStart)
	if startFn == nil {
		instance.Close(ctx)
		return nil, fmt.Errorf("%w: plugin %q does not export %q", qr.ErrPluginExecution, m.name, fnStart)
	}
	results, err := startFn.Call(ctx, uint64(ptr), uint64(length))
	call.free(ctx, ptr, length)
	if err != nil {
		instance.Close(ctx)
		return nil, fmt.Errorf("%w: plugin %q trapped in start: %s", qr.ErrPluginExecution, m.name, err)
	}
	if len(results) == 0 || results[0] == 0 {
		msg := call.lastError(ctx)
		instance.Close(ctx)
		return nil, fmt.Errorf("%w: plugin %q rejected start: %s", qr.ErrPluginExecution, m.name, msg)
	}
	return &wasmHandle{wasmCall: call}, nil
}

type wasmHandle struct {
	*wasmCall
}

func (h *wasmHandle) QueryString(ctx context.Context) (string, error) {
	data, err := h.callForBytes(ctx, fnQueryString)
	if err != nil {
		return "", fmt.Errorf("%w: plugin %q: %s", qr.ErrPluginExecution, h.pluginName, err)
	}
	return string(data), nil
}

func (h *wasmHandle) Variables(ctx context.Context) ([]qr.NamedValue, error) {
	data, err := h.callForBytes(ctx, fnVariables)
	if err != nil {
		return nil, fmt.Errorf("%w: plugin %q: %s", qr.ErrPluginExecution, h.pluginName, err)
	}
	var wire []namedValueWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: plugin %q returned malformed variables: %s", qr.ErrPluginExecution, h.pluginName, err)
	}
	return namedValuesFromWire(wire)
}

func (h *wasmHandle) Row(ctx context.Context, row []qr.NamedValue) (*qr.QueryResult, error) {
	payload, err := json.Marshal(namedValuesToWire(row))
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling row for plugin %q: %s", qr.ErrPluginExecution, h.pluginName, err)
	}
	return h.callWithPayloadForOptionalResult(ctx, fnRow, payload)
}

func (h *wasmHandle) End(ctx context.Context, columnNames []string) (*qr.QueryResult, error) {
	payload, err := json.Marshal(columnNames)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling column names for plugin %q: %s", qr.ErrPluginExecution, h.pluginName, err)
	}
	return h.callWithPayloadForOptionalResult(ctx, fnEnd, payload)
}

func (h *wasmHandle) Close(ctx context.Context) error {
	return h.instance.Close(ctx)
}
