package pluginhost

import (
	"encoding/json"
	"fmt"

	qr "github.com/jpmoresmau/queryrunner"
)

// The wire types in this file mirror the JSON shapes a guest plugin reads
// and writes across the ABI boundary documented in wazero.go. They exist
// apart from the root package's own MarshalJSON methods because the wire
// format must carry each value's kind explicitly — a plugin receiving
// {"value": null} has no other way to know whether that cell is a NULL
// Boolean or a NULL Timestamp.

type valueWire struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func valueToWire(v qr.Value) (valueWire, error) {
	raw, err := v.MarshalJSON()
	if err != nil {
		return valueWire{}, err
	}
	return valueWire{Type: v.Kind.String(), Value: raw}, nil
}

func valueFromWire(w valueWire) (qr.Value, error) {
	kind, err := qr.ParseValueKind(w.Type)
	if err != nil {
		return qr.Value{}, err
	}
	if len(w.Value) == 0 || string(w.Value) == "null" {
		return qr.NullValue(kind), nil
	}
	switch kind {
	case qr.KindBoolean:
		var b bool
		if err := json.Unmarshal(w.Value, &b); err != nil {
			return qr.Value{}, fmt.Errorf("decoding boolean value: %w", err)
		}
		return qr.BooleanValue(b), nil
	case qr.KindDecimal:
		var f float64
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return qr.Value{}, fmt.Errorf("decoding decimal value: %w", err)
		}
		return qr.DecimalValue(f), nil
	case qr.KindInteger:
		var i int64
		if err := json.Unmarshal(w.Value, &i); err != nil {
			return qr.Value{}, fmt.Errorf("decoding integer value: %w", err)
		}
		return qr.IntegerValue(i), nil
	case qr.KindString:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return qr.Value{}, fmt.Errorf("decoding string value: %w", err)
		}
		return qr.StringValue(s), nil
	case qr.KindTimestamp:
		var s string
		if err := json.Unmarshal(w.Value, &s); err != nil {
			return qr.Value{}, fmt.Errorf("decoding timestamp value: %w", err)
		}
		return qr.TimestampValue(s), nil
	default:
		return qr.Value{}, fmt.Errorf("unsupported value kind %q", w.Type)
	}
}

type namedValueWire struct {
	Name string `json:"name"`
	valueWire
}

func namedValuesToWire(values []qr.NamedValue) []namedValueWire {
	wire := make([]namedValueWire, 0, len(values))
	for _, v := range values {
		vw, err := valueToWire(v.Value)
		if err != nil {
			// Value.MarshalJSON only fails on a corrupt Kind, which never
			// happens for values constructed through the package's own
			// constructors. Encode as a null string rather than panic.
			vw = valueWire{Type: v.Value.Kind.String(), Value: json.RawMessage("null")}
		}
		wire = append(wire, namedValueWire{Name: v.Name, valueWire: vw})
	}
	return wire
}

func namedValuesFromWire(wire []namedValueWire) ([]qr.NamedValue, error) {
	values := make([]qr.NamedValue, 0, len(wire))
	for _, w := range wire {
		v, err := valueFromWire(w.valueWire)
		if err != nil {
			return nil, fmt.Errorf("named value %q: %w", w.Name, err)
		}
		values = append(values, qr.NamedValue{Name: w.Name, Value: v})
	}
	return values, nil
}

type parameterWire struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type metadataWire struct {
	Description string          `json:"description"`
	Parameters  []parameterWire `json:"parameters"`
}

func (m metadataWire) toMetadata() (qr.Metadata, error) {
	params := make([]qr.Parameter, 0, len(m.Parameters))
	for _, p := range m.Parameters {
		kind, err := qr.ParseValueKind(p.Type)
		if err != nil {
			return qr.Metadata{}, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		params = append(params, qr.Parameter{Name: p.Name, Kind: kind})
	}
	return qr.Metadata{Description: m.Description, Parameters: params}, nil
}

type queryResultWire struct {
	Names  []string
	Values [][]valueWire
}

func (r *queryResultWire) UnmarshalJSON(data []byte) error {
	var raw struct {
		Names  []string          `json:"names"`
		Values [][]rawValueEntry `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Names = raw.Names
	r.Values = make([][]valueWire, len(raw.Values))
	for i, row := range raw.Values {
		r.Values[i] = make([]valueWire, len(row))
		for j, cell := range row {
			r.Values[i][j] = valueWire{Type: cell.Type, Value: cell.Value}
		}
	}
	return nil
}

type rawValueEntry struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func (r queryResultWire) toQueryResult() (*qr.QueryResult, error) {
	values := make([][]qr.Value, len(r.Values))
	for i, row := range r.Values {
		converted := make([]qr.Value, len(row))
		for j, cell := range row {
			v, err := valueFromWire(cell)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", i, j, err)
			}
			converted[j] = v
		}
		values[i] = converted
	}
	return &qr.QueryResult{Names: r.Names, Values: values}, nil
}
