// Package queryrunner implements the plugin execution engine: the typed
// value system shared across the database driver, the sandboxed plugin and
// the caller, the plugin instantiation and invocation protocol, and the
// per-execution streaming state machine that threads rows from a database
// through a plugin and aggregates the result.
package queryrunner

import (
	"encoding/json"
	"fmt"
)

// ValueKind discriminates the five scalar kinds the engine understands.
// Drivers and plugins never invent new kinds; this is the single source of
// truth for type discrimination across the database/plugin/caller boundary.
type ValueKind int

const (
	KindBoolean ValueKind = iota
	KindDecimal
	KindInteger
	KindString
	KindTimestamp
)

// String returns the external, lowercase name of the kind, matching the
// JSON surface's "type" field.
func (k ValueKind) String() string {
	switch k {
	case KindBoolean:
		return "bool"
	case KindDecimal:
		return "decimal"
	case KindInteger:
		return "integer"
	case KindString:
		return "string"
	case KindTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ParseValueKind reverses String. Unknown names are rejected so plugin and
// config loaders fail loudly rather than defaulting silently.
func ParseValueKind(name string) (ValueKind, error) {
	switch name {
	case "bool":
		return KindBoolean, nil
	case "decimal":
		return KindDecimal, nil
	case "integer":
		return KindInteger, nil
	case "string":
		return KindString, nil
	case "timestamp":
		return KindTimestamp, nil
	default:
		return 0, fmt.Errorf("%q is not a known value kind", name)
	}
}

// Value is a tagged union over ValueKind. Only the field matching Kind is
// meaningful; Valid false means SQL NULL regardless of Kind. String and
// Timestamp both use the Str field — Timestamp is an opaque UTF-8 string,
// never parsed by the core (see open question (b) in DESIGN.md).
type Value struct {
	Kind    ValueKind
	Valid   bool
	Bool    bool
	Decimal float64
	Integer int64
	Str     string
}

// NullValue returns the NULL variant of kind.
func NullValue(kind ValueKind) Value { return Value{Kind: kind} }

// BooleanValue returns a non-null Boolean value.
func BooleanValue(b bool) Value { return Value{Kind: KindBoolean, Valid: true, Bool: b} }

// DecimalValue returns a non-null Decimal value.
func DecimalValue(d float64) Value { return Value{Kind: KindDecimal, Valid: true, Decimal: d} }

// IntegerValue returns a non-null Integer value.
func IntegerValue(i int64) Value { return Value{Kind: KindInteger, Valid: true, Integer: i} }

// StringValue returns a non-null String value.
func StringValue(s string) Value { return Value{Kind: KindString, Valid: true, Str: s} }

// TimestampValue returns a non-null Timestamp value. The string is stored
// verbatim; the core never parses it (spec TODO: timestamp parsing is
// deliberately deferred to a future revision).
func TimestampValue(s string) Value { return Value{Kind: KindTimestamp, Valid: true, Str: s} }

// MarshalJSON converts a Value to its natural JSON representation: the NULL
// variant maps to JSON null regardless of kind, Boolean/Decimal/Integer map
// to their natural JSON scalar, and String/Timestamp map to a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	switch v.Kind {
	case KindBoolean:
		return json.Marshal(v.Bool)
	case KindDecimal:
		return json.Marshal(v.Decimal)
	case KindInteger:
		return json.Marshal(v.Integer)
	case KindString, KindTimestamp:
		return json.Marshal(v.Str)
	default:
		return nil, fmt.Errorf("value has unknown kind %d", int(v.Kind))
	}
}

// NamedValue pairs a name with a Value, used for both parameter inputs and
// result row cells.
type NamedValue struct {
	Name  string
	Value Value
}

// Parameter describes one declared plugin parameter. Equality is
// structural; parameter order within one Metadata is significant, as it
// defines the positional binding order used by RewritePlaceholders.
type Parameter struct {
	Name string
	Kind ValueKind
}

type parameterJSON struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// MarshalJSON implements the {"name":"...","type":"..."} JSON surface.
func (p Parameter) MarshalJSON() ([]byte, error) {
	return json.Marshal(parameterJSON{Name: p.Name, Type: p.Kind.String()})
}

// UnmarshalJSON implements the {"name":"...","type":"..."} JSON surface.
func (p *Parameter) UnmarshalJSON(data []byte) error {
	var pj parameterJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	kind, err := ParseValueKind(pj.Type)
	if err != nil {
		return fmt.Errorf("parameter %q: %w", pj.Name, err)
	}
	p.Name = pj.Name
	p.Kind = kind
	return nil
}

// Metadata describes a plugin: its human-readable description and its
// ordered parameter schema.
type Metadata struct {
	Description string
	Parameters  []Parameter
}

// NativeArg converts a Value to the driver-argument shape both the SQLite
// and Postgres adapters bind positionally, representing NULL as untyped nil.
func NativeArg(v Value) any {
	if !v.Valid {
		return nil
	}
	switch v.Kind {
	case KindBoolean:
		return v.Bool
	case KindDecimal:
		return v.Decimal
	case KindInteger:
		return v.Integer
	case KindString, KindTimestamp:
		return v.Str
	default:
		return nil
	}
}
