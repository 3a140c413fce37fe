package queryrunner

import (
	"errors"
	"fmt"
)

// Sentinel errors classify every failure the engine can produce. Callers
// (the HTTP surface, the CLI) use errors.Is against these to decide how to
// report a failure; the engine itself never returns a bare sentinel, always
// one wrapped with context, via fmt.Errorf("%w: ...", ...) or Detailf.
var (
	// ErrConfiguration covers bad connection config, an unknown driver, or
	// an unreadable plugin file.
	ErrConfiguration = errors.New("configuration error")

	// ErrPluginMissing means the requested plugin name is not registered.
	ErrPluginMissing = errors.New("plugin not found")

	// ErrConnectionMissing means the requested connection name is not
	// registered.
	ErrConnectionMissing = errors.New("connection not found")

	// ErrBadParameter means a required parameter was missing or failed to
	// coerce to its declared kind.
	ErrBadParameter = errors.New("bad parameter")

	// ErrPluginMetadata means the sandbox failed to answer metadata().
	ErrPluginMetadata = errors.New("plugin metadata error")

	// ErrPluginExecution means the sandbox trapped or returned an error
	// during start/row/end.
	ErrPluginExecution = errors.New("plugin execution error")

	// ErrDriver means the database connect/prepare/bind/iterate step
	// failed.
	ErrDriver = errors.New("driver error")

	// ErrUnsupportedType means the driver returned a column whose SQL type
	// has no mapping to a ValueKind.
	ErrUnsupportedType = errors.New("unsupported column type")
)

// detailedError lets a call site produce an exact, self-contained message
// while still classifying under a sentinel via errors.Is. fmt.Errorf's
// "%w: text" form always prefixes the sentinel's own text onto the
// message, which is wrong when a caller (the HTTP surface) needs the
// message verbatim.
type detailedError struct {
	sentinel error
	msg      string
}

func (e *detailedError) Error() string { return e.msg }
func (e *detailedError) Unwrap() error { return e.sentinel }

// Detailf builds an error whose Error() is exactly fmt.Sprintf(format,
// args...) and whose Unwrap() is sentinel, so errors.Is(err, sentinel)
// still classifies it correctly.
func Detailf(sentinel error, format string, args ...any) error {
	return &detailedError{sentinel: sentinel, msg: fmt.Sprintf(format, args...)}
}
