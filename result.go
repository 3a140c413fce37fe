package queryrunner

import "encoding/json"

// QueryResult is an ordered sequence of column names and an ordered
// sequence of rows, each row an ordered sequence of Value sharing the
// positional column types of every other row. Invariant: every row's
// length equals len(Names).
type QueryResult struct {
	Names  []string
	Values [][]Value
}

type queryResultJSON struct {
	Names  []string  `json:"names"`
	Values [][]Value `json:"values"`
}

// MarshalJSON implements the {"names":[...],"values":[[...],...]} surface.
func (r QueryResult) MarshalJSON() ([]byte, error) {
	names := r.Names
	if names == nil {
		names = []string{}
	}
	values := r.Values
	if values == nil {
		values = [][]Value{}
	}
	return json.Marshal(queryResultJSON{Names: names, Values: values})
}

// Compatible reports whether two results share the same column names in
// the same order — the precondition AddResult requires of its callers.
func (r *QueryResult) Compatible(other *QueryResult) bool {
	if len(r.Names) != len(other.Names) {
		return false
	}
	for i := range r.Names {
		if r.Names[i] != other.Names[i] {
			return false
		}
	}
	return true
}

// AddResult combines two optional results with a left-biased append rule:
// a nil operand is the identity, and when both are present the column
// names come from a and the rows are a's rows followed by b's rows.
// Callers must only combine compatible results (see Compatible); AddResult
// does not itself verify compatibility, matching the source contract which
// places that obligation on the adapter doing the accumulating.
func AddResult(a, b *QueryResult) *QueryResult {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return &QueryResult{
			Names:  a.Names,
			Values: append(append([][]Value{}, a.Values...), b.Values...),
		}
	}
}
