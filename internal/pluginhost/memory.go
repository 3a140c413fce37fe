package pluginhost

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	qr "github.com/jpmoresmau/queryrunner"
)

// wasmCall bundles one module instance with the low-level packed-pointer
// calling convention described in wazero.go. It is embedded in wasmHandle
// so every ABI call goes through the same allocate/read/deallocate dance.
type wasmCall struct {
	instance   api.Module
	pluginName string
}

// unpack splits a packed (ptr<<32 | len) result the way every multi-byte
// return value in the ABI is encoded.
func unpack(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}

// readBytes copies length bytes out of the guest's linear memory at ptr.
func (c *wasmCall) readBytes(ptr, length uint32) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	data, ok := c.instance.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("reading %d bytes at offset %d: out of bounds", length, ptr)
	}
	out := make([]byte, length)
	copy(out, data)
	return out, nil
}

// writeBytes allocates space in the guest and copies data into it. The
// caller is responsible for calling free once the guest no longer needs it.
func (c *wasmCall) writeBytes(ctx context.Context, data []byte) (ptr, length uint32, err error) {
	if len(data) == 0 {
		return 0, 0, nil
	}
	allocFn := c.instance.ExportedFunction(fnAlloc)
	if allocFn == nil {
		return 0, 0, fmt.Errorf("%w: plugin %q does not export %q", qr.ErrPluginExecution, c.pluginName, fnAlloc)
	}
	results, err := allocFn.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: plugin %q trapped in %s: %s", qr.ErrPluginExecution, c.pluginName, fnAlloc, err)
	}
	ptr = uint32(results[0])
	if ptr == 0 {
		return 0, 0, fmt.Errorf("%w: plugin %q %s returned a null pointer", qr.ErrPluginExecution, c.pluginName, fnAlloc)
	}
	if !c.instance.Memory().Write(ptr, data) {
		return 0, 0, fmt.Errorf("%w: plugin %q: writing %d bytes at offset %d out of bounds", qr.ErrPluginExecution, c.pluginName, len(data), ptr)
	}
	return ptr, uint32(len(data)), nil
}

// free best-effort deallocates guest memory previously returned by
// writeBytes or by a call result. Deallocation failure is not fatal to the
// invocation — it only leaks guest memory for the remaining lifetime of
// this already-isolated, single-use instance.
func (c *wasmCall) free(ctx context.Context, ptr, length uint32) {
	if ptr == 0 {
		return
	}
	deallocFn := c.instance.ExportedFunction(fnDealloc)
	if deallocFn == nil {
		return
	}
	_, _ = deallocFn.Call(ctx, uint64(ptr), uint64(length))
}

// callForBytes invokes a zero-argument export that returns a packed
// (ptr, len) result and reads the bytes it points to.
func (c *wasmCall) callForBytes(ctx context.Context, fn string) ([]byte, error) {
	exported := c.instance.ExportedFunction(fn)
	if exported == nil {
		return nil, fmt.Errorf("plugin %q does not export %q", c.pluginName, fn)
	}
	results, err := exported.Call(ctx)
	if err != nil {
		return nil, fmt.Errorf("plugin %q trapped in %s: %w", c.pluginName, fn, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("plugin %q %s returned no value", c.pluginName, fn)
	}
	ptr, length := unpack(results[0])
	if ptr == 0 {
		return nil, fmt.Errorf("plugin %q %s: %s", c.pluginName, fn, c.lastError(ctx))
	}
	data, err := c.readBytes(ptr, length)
	c.free(ctx, ptr, length)
	return data, err
}

// callWithPayloadForOptionalResult invokes fn(payloadPtr, payloadLen) and
// interprets a (0, 0) packed result as "no result yet" (the plugin's row
// hook returning None to mean "collect and continue").
func (c *wasmCall) callWithPayloadForOptionalResult(ctx context.Context, fn string, payload []byte) (*qr.QueryResult, error) {
	ptr, length, err := c.writeBytes(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: plugin %q: %s", qr.ErrPluginExecution, c.pluginName, err)
	}
	exported := c.instance.ExportedFunction(fn)
	if exported == nil {
		c.free(ctx, ptr, length)
		return nil, fmt.Errorf("%w: plugin %q does not export %q", qr.ErrPluginExecution, c.pluginName, fn)
	}
	results, err := exported.Call(ctx, uint64(ptr), uint64(length))
	c.free(ctx, ptr, length)
	if err != nil {
		return nil, fmt.Errorf("%w: plugin %q trapped in %s: %s", qr.ErrPluginExecution, c.pluginName, fn, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: plugin %q %s returned no value", qr.ErrPluginExecution, c.pluginName, fn)
	}
	resultPtr, resultLen := unpack(results[0])
	if resultPtr == 0 && resultLen == 0 {
		return nil, nil
	}
	data, err := c.readBytes(resultPtr, resultLen)
	c.free(ctx, resultPtr, resultLen)
	if err != nil {
		return nil, fmt.Errorf("%w: plugin %q: %s", qr.ErrPluginExecution, c.pluginName, err)
	}
	var wire queryResultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: plugin %q returned malformed result from %s: %s", qr.ErrPluginExecution, c.pluginName, fn, err)
	}
	result, err := wire.toQueryResult()
	if err != nil {
		return nil, fmt.Errorf("%w: plugin %q: %s", qr.ErrPluginExecution, c.pluginName, err)
	}
	return result, nil
}

// lastError asks the guest for the message behind its most recent failure.
// Best-effort: if the guest doesn't export last_error, or the call fails,
// a generic message is returned rather than masking the original error.
func (c *wasmCall) lastError(ctx context.Context) string {
	exported := c.instance.ExportedFunction(fnLastError)
	if exported == nil {
		return "no error detail available"
	}
	results, err := exported.Call(ctx)
	if err != nil || len(results) == 0 {
		return "no error detail available"
	}
	ptr, length := unpack(results[0])
	if ptr == 0 {
		return "no error detail available"
	}
	data, err := c.readBytes(ptr, length)
	c.free(ctx, ptr, length)
	if err != nil {
		return "no error detail available"
	}
	return string(data)
}
