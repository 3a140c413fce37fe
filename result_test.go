package queryrunner

import (
	"encoding/json"
	"testing"

	"github.com/jpmoresmau/queryrunner/internal/testutil"
)

func TestQueryResultMarshalJSON(t *testing.T) {
	r := QueryResult{
		Names: []string{"name", "age"},
		Values: [][]Value{
			{StringValue("Ada"), IntegerValue(30)},
			{StringValue("Bea"), NullValue(KindInteger)},
		},
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(testutil.Callers(), err)
	}
	want := `{"names":["name","age"],"values":[["Ada",30],["Bea",null]]}`
	if diff := testutil.Diff(string(data), want); diff != "" {
		t.Error(testutil.Callers(), diff)
	}
}

func TestQueryResultMarshalJSONEmpty(t *testing.T) {
	var r QueryResult
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(testutil.Callers(), err)
	}
	if diff := testutil.Diff(string(data), `{"names":[],"values":[]}`); diff != "" {
		t.Error(testutil.Callers(), diff)
	}
}

func TestAddResultNilIsIdentity(t *testing.T) {
	r := &QueryResult{Names: []string{"a"}, Values: [][]Value{{IntegerValue(1)}}}
	if diff := testutil.Diff(AddResult(nil, r), r); diff != "" {
		t.Error(testutil.Callers(), diff)
	}
	if diff := testutil.Diff(AddResult(r, nil), r); diff != "" {
		t.Error(testutil.Callers(), diff)
	}
	if got := AddResult(nil, nil); got != nil {
		t.Error(testutil.Callers(), "expected nil combining two nils")
	}
}

func TestAddResultAppendsRowsLeftBiased(t *testing.T) {
	a := &QueryResult{Names: []string{"a", "b"}, Values: [][]Value{{IntegerValue(1), IntegerValue(2)}}}
	b := &QueryResult{Names: []string{"x", "y"}, Values: [][]Value{{IntegerValue(3), IntegerValue(4)}}}
	got := AddResult(a, b)
	want := &QueryResult{
		Names: []string{"a", "b"},
		Values: [][]Value{
			{IntegerValue(1), IntegerValue(2)},
			{IntegerValue(3), IntegerValue(4)},
		},
	}
	if diff := testutil.Diff(got, want); diff != "" {
		t.Error(testutil.Callers(), diff)
	}
}

func TestCompatible(t *testing.T) {
	a := &QueryResult{Names: []string{"a", "b"}}
	b := &QueryResult{Names: []string{"a", "b"}}
	c := &QueryResult{Names: []string{"a"}}
	if !a.Compatible(b) {
		t.Error(testutil.Callers(), "expected compatible")
	}
	if a.Compatible(c) {
		t.Error(testutil.Callers(), "expected incompatible")
	}
}
