package queryrunner

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseParameters coerces raw string parameters into typed NamedValues, one
// per declared Parameter, in declaration order. Every declared parameter
// must be present in raw; a missing entry fails fast, before the plugin is
// started, with the exact message the HTTP surface and tests depend on.
func ParseParameters(parameters []Parameter, raw map[string]string) ([]NamedValue, error) {
	values := make([]NamedValue, 0, len(parameters))
	for _, param := range parameters {
		raw, ok := raw[param.Name]
		if !ok {
			return nil, fmt.Errorf("%w: no value provided for parameter `%s`", ErrBadParameter, param.Name)
		}
		value, err := parseValue(param.Kind, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter `%s`: %s", ErrBadParameter, param.Name, err)
		}
		values = append(values, NamedValue{Name: param.Name, Value: value})
	}
	return values, nil
}

// parseValue coerces a single raw string into a Value of the given kind.
// Boolean coercion is permissive by design (open question (a) in
// DESIGN.md): anything other than a case-insensitive "true" is false,
// never an error.
func parseValue(kind ValueKind, raw string) (Value, error) {
	switch kind {
	case KindBoolean:
		return BooleanValue(strings.ToLower(raw) == "true"), nil
	case KindDecimal:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%q is not a valid decimal", raw)
		}
		return DecimalValue(f), nil
	case KindInteger:
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("%q is not a valid integer", raw)
		}
		return IntegerValue(i), nil
	case KindString:
		return StringValue(raw), nil
	case KindTimestamp:
		return TimestampValue(raw), nil
	default:
		return Value{}, fmt.Errorf("unknown parameter kind %d", int(kind))
	}
}

// RewritePlaceholders replaces every {{name}} token in sql with the driver's
// native positional marker prefix<start+i>, where i is the index of name
// within params — the parameter's position in the plugin's declared order,
// not its textual position in sql. Names with no matching {{name}} token,
// and tokens with no matching name, are left untouched. There is no
// whitespace tolerance inside the curly braces: "{{ name }}" is not
// recognized, only "{{name}}".
func RewritePlaceholders(prefix string, start int, sql string, params []NamedValue) string {
	rewritten := sql
	for i, param := range params {
		token := "{{" + param.Name + "}}"
		replacement := fmt.Sprintf("%s%d", prefix, start+i)
		rewritten = strings.ReplaceAll(rewritten, token, replacement)
	}
	return rewritten
}
