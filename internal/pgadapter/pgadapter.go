// Package pgadapter implements the asynchronous, streaming database
// adapter over jackc/pgx/v5. Unlike sqliteadapter, each invocation forges
// its own pool from the connection's stored DSN (spec §4.F) rather than
// sharing a live client; connection-level failures are retried with an
// exponential backoff before being surfaced as a driver error, grounded on
// the retry-then-give-up shape cool-mysql applies around its own
// ExecContext calls.
package pgadapter

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	qr "github.com/jpmoresmau/queryrunner"
)

// Adapter drives Postgres connections. It keeps no long-lived pool itself
// — every Execute call builds and tears down its own pgxpool.Pool, since
// the connection descriptor carries only a DSN.
type Adapter struct{}

func New() *Adapter { return &Adapter{} }

// Execute implements qr.Adapter.
func (a *Adapter) Execute(ctx context.Context, conn qr.Connection, handle qr.ExecutionHandle) (*qr.QueryResult, error) {
	pool, err := connectWithRetry(ctx, conn.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to %q: %s", qr.ErrDriver, conn.Name, err)
	}
	defer pool.Close()

	template, err := handle.QueryString(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching query string: %s", qr.ErrPluginExecution, err)
	}
	variables, err := handle.Variables(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching variables: %s", qr.ErrPluginExecution, err)
	}

	query := qr.RewritePlaceholders("$", 1, template, variables)
	args := make([]any, len(variables))
	for i, v := range variables {
		args[i] = qr.NativeArg(v.Value)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: running query on connection %q: %s", qr.ErrDriver, conn.Name, err)
	}
	defer rows.Close()

	descriptions := rows.FieldDescriptions()
	columns := make([]string, len(descriptions))
	kinds := make([]qr.ValueKind, len(descriptions))
	for i, fd := range descriptions {
		columns[i] = fd.Name
		kind, err := oidKind(fd.DataTypeOID)
		if err != nil {
			return nil, err
		}
		kinds[i] = kind
	}

	// The accumulator is fed incrementally, one row at a time, as pgx
	// yields them — partial results from earlier rows are never held
	// back waiting for the whole stream. A driver-level iteration error
	// discards everything accumulated so far: the invocation fails whole.
	var accumulated *qr.QueryResult
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: reading row on connection %q: %s", qr.ErrDriver, conn.Name, err)
		}
		row := make([]qr.NamedValue, len(columns))
		for i, name := range columns {
			row[i] = qr.NamedValue{Name: name, Value: toValue(kinds[i], values[i])}
		}
		partial, err := handle.Row(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", qr.ErrPluginExecution, err)
		}
		accumulated = qr.AddResult(accumulated, partial)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: streaming rows on connection %q: %s", qr.ErrDriver, conn.Name, err)
	}

	final, err := handle.End(ctx, columns)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", qr.ErrPluginExecution, err)
	}
	return qr.AddResult(accumulated, final), nil
}

func connectWithRetry(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connect := func() error {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
	if err := backoff.Retry(connect, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return pool, nil
}

// oidKind maps a Postgres type OID to the shared SQL-type map (§4.D),
// expressed over OID families rather than the type-name strings the
// SQLite path uses.
func oidKind(oid uint32) (qr.ValueKind, error) {
	switch oid {
	case pgtype.Int2OID, pgtype.Int4OID, pgtype.Int8OID:
		return qr.KindInteger, nil
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID:
		return qr.KindString, nil
	case pgtype.BoolOID:
		return qr.KindBoolean, nil
	case pgtype.Float4OID, pgtype.Float8OID, pgtype.NumericOID:
		return qr.KindDecimal, nil
	default:
		return 0, fmt.Errorf("%w: postgres OID %d", qr.ErrUnsupportedType, oid)
	}
}

// toValue converts a value pgx already decoded into a Go type back into
// the shared tagged union, preserving NULL.
func toValue(kind qr.ValueKind, native any) qr.Value {
	if native == nil {
		return qr.NullValue(kind)
	}
	switch kind {
	case qr.KindBoolean:
		if b, ok := native.(bool); ok {
			return qr.BooleanValue(b)
		}
	case qr.KindInteger:
		switch n := native.(type) {
		case int64:
			return qr.IntegerValue(n)
		case int32:
			return qr.IntegerValue(int64(n))
		case int16:
			return qr.IntegerValue(int64(n))
		}
	case qr.KindDecimal:
		switch n := native.(type) {
		case float64:
			return qr.DecimalValue(n)
		case float32:
			return qr.DecimalValue(float64(n))
		case pgtype.Numeric:
			f, _ := n.Float64Value()
			return qr.DecimalValue(f.Float64)
		}
	case qr.KindString, qr.KindTimestamp:
		if s, ok := native.(string); ok {
			if kind == qr.KindTimestamp {
				return qr.TimestampValue(s)
			}
			return qr.StringValue(s)
		}
	}
	return qr.NullValue(kind)
}
