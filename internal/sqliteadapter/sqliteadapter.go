// Package sqliteadapter implements the synchronous database adapter over
// mattn/go-sqlite3. A single connection is shared across invocations on
// the same connection name (spec §4.E); writes are serialized with a
// mutex the way the teacher's Row/Cursor machinery serializes access to
// one *sql.DB, except here the guard is explicit rather than left to the
// driver's own internal locking.
package sqliteadapter

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	qr "github.com/jpmoresmau/queryrunner"
)

// Adapter drives one SQLite connection. Connections are opened lazily and
// cached by connection name, matching "a single in-process Connection is shared
// across invocations on the same connection name."
type Adapter struct {
	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// New returns an empty Adapter; connections are opened on first use.
func New() *Adapter {
	return &Adapter{dbs: make(map[string]*sql.DB)}
}

// Close releases every opened connection. Intended for shutdown.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	var first error
	for path, db := range a.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
		delete(a.dbs, path)
	}
	return first
}

// Execute implements qr.Adapter.
func (a *Adapter) Execute(ctx context.Context, conn qr.Connection, handle qr.ExecutionHandle) (*qr.QueryResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	db, err := a.openLocked(conn)
	if err != nil {
		return nil, err
	}

	template, err := handle.QueryString(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching query string: %s", qr.ErrPluginExecution, err)
	}
	variables, err := handle.Variables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching variables: %s", qr.ErrPluginExecution, err)
	}

	query := qr.RewritePlaceholders("?", 1, template, variables)
	args := make([]any, len(variables))
	for i, v := range variables {
		args[i] = qr.NativeArg(v.Value)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: running query on connection %q: %s", qr.ErrDriver, conn.Name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: reading columns: %s", qr.ErrDriver, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("%w: reading column types: %s", qr.ErrDriver, err)
	}
	kinds := make([]qr.ValueKind, len(types))
	for i, t := range types {
		// go-sqlite3's DatabaseTypeName returns the column's declared type
		// verbatim, in whatever case it was declared with (SQLite itself
		// never normalizes it), so ColumnKind is matched case-insensitively.
		kind, err := qr.ColumnKind(strings.ToUpper(t.DatabaseTypeName()))
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}

	var accumulated *qr.QueryResult
	scanDest := make([]any, len(columns))
	for i := range scanDest {
		scanDest[i] = newNullScanner(kinds[i])
	}
	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return nil, fmt.Errorf("%w: scanning row: %s", qr.ErrDriver, err)
		}
		row := make([]qr.NamedValue, len(columns))
		for i, name := range columns {
			row[i] = qr.NamedValue{Name: name, Value: scanDest[i].(nullScanner).value(kinds[i])}
		}
		partial, err := handle.Row(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", qr.ErrPluginExecution, err)
		}
		accumulated = qr.AddResult(accumulated, partial)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating rows: %s", qr.ErrDriver, err)
	}

	final, err := handle.End(ctx, columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", qr.ErrPluginExecution, err)
	}
	return qr.AddResult(accumulated, final), nil
}

func (a *Adapter) openLocked(conn qr.Connection) (*sql.DB, error) {
	path := conn.SQLitePath
	if path == qr.MemoryPath {
		path = ":memory:"
	}
	if db, ok := a.dbs[conn.Name]; ok {
		return db, nil
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening sqlite connection %q: %s", qr.ErrDriver, conn.Name, err)
	}
	db.SetMaxOpenConns(1)
	a.dbs[conn.Name] = db
	return db, nil
}
