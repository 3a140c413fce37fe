package queryrunner

import (
	"context"
	"fmt"
)

// ConnectionKind discriminates the drivers a Connection can describe.
type ConnectionKind string

const (
	ConnectionSQLite   ConnectionKind = "sqlite"
	ConnectionPostgres ConnectionKind = "postgres"
)

// MemoryPath is the special SQLite path meaning "in-memory database",
// per the connection configuration surface.
const MemoryPath = "memory"

// Connection describes one configured database target. Only the fields
// matching Kind are meaningful — it is a sum type in struct's clothing,
// matching the loose shape of the YAML configuration it is built from.
type Connection struct {
	Name string
	Kind ConnectionKind

	// SQLitePath is the file path, or MemoryPath for an in-memory database.
	SQLitePath string

	// PostgresDSN is a libpq-style connection string.
	PostgresDSN string
}

// ExecutionHandle is the subset of a plugin invocation an Adapter drives.
// It mirrors internal/pluginhost.Handle structurally so a value returned
// from that package satisfies this interface without the root package
// importing it (which would create an import cycle: pluginhost already
// imports this package for Value/QueryResult/NamedValue).
type ExecutionHandle interface {
	QueryString(ctx context.Context) (string, error)
	Variables(ctx context.Context) ([]NamedValue, error)
	Row(ctx context.Context, row []NamedValue) (*QueryResult, error)
	End(ctx context.Context, columnNames []string) (*QueryResult, error)
	Close(ctx context.Context) error
}

// Adapter drives one execution handle against one connection: it obtains
// the SQL template and bound variables, rewrites placeholders into the
// driver's native convention, runs the query, and threads rows through the
// handle, accumulating whatever partial results it returns.
type Adapter interface {
	Execute(ctx context.Context, conn Connection, handle ExecutionHandle) (*QueryResult, error)
}

// ColumnKind maps a driver-reported SQL type to a ValueKind, the contract
// both adapters implement per the shared SQL-type map.
func ColumnKind(sqlType string) (ValueKind, error) {
	switch sqlType {
	case "INT2", "INT4", "INT8", "INTEGER":
		return KindInteger, nil
	case "TEXT":
		return KindString, nil
	case "BOOL":
		return KindBoolean, nil
	case "FLOAT4", "FLOAT8", "REAL":
		return KindDecimal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedType, sqlType)
	}
}
