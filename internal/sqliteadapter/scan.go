package sqliteadapter

import (
	"database/sql"

	qr "github.com/jpmoresmau/queryrunner"
)

// nullScanner is satisfied by every sql.Null* type used as a scan
// destination here — the same column-type-driven Null* selection idiom
// the teacher's row_column.go uses, reduced to the five ValueKinds this
// domain understands rather than a general-purpose reflective mapper.
type nullScanner interface {
	sql.Scanner
	value(kind qr.ValueKind) qr.Value
}

func newNullScanner(kind qr.ValueKind) nullScanner {
	switch kind {
	case qr.KindBoolean:
		return &nullBool{}
	case qr.KindDecimal:
		return &nullFloat{}
	case qr.KindInteger:
		return &nullInt{}
	default:
		return &nullString{}
	}
}

type nullBool struct{ sql.NullBool }

func (n *nullBool) value(kind qr.ValueKind) qr.Value {
	if !n.Valid {
		return qr.NullValue(kind)
	}
	return qr.BooleanValue(n.Bool)
}

type nullFloat struct{ sql.NullFloat64 }

func (n *nullFloat) value(kind qr.ValueKind) qr.Value {
	if !n.Valid {
		return qr.NullValue(kind)
	}
	return qr.DecimalValue(n.Float64)
}

type nullInt struct{ sql.NullInt64 }

func (n *nullInt) value(kind qr.ValueKind) qr.Value {
	if !n.Valid {
		return qr.NullValue(kind)
	}
	return qr.IntegerValue(n.Int64)
}

type nullString struct{ sql.NullString }

func (n *nullString) value(kind qr.ValueKind) qr.Value {
	if !n.Valid {
		return qr.NullValue(kind)
	}
	if kind == qr.KindTimestamp {
		return qr.TimestampValue(n.String)
	}
	return qr.StringValue(n.String)
}
