package pluginhost

import (
	"context"
	"sync"

	qr "github.com/jpmoresmau/queryrunner"
)

// NewCollectorModule builds an in-process Module that reproduces the
// reference "collecting results" plugins (test_collect, test_collect2 in
// spec.md §8): row feeds every row into an internal buffer and always
// returns nil, and End drains the buffer into one QueryResult named after
// columnNames. It exists so the orchestrator and adapters can be tested
// end to end without compiling a .wasm binary — Module and Handle are
// interfaces for exactly this reason (see pluginhost.go).
type CollectorModule struct {
	name        string
	description string
	parameters  []qr.Parameter
	queryString string
	columnNames []string
}

func NewCollectorModule(name, description, queryString string, parameters []qr.Parameter, columnNames []string) *CollectorModule {
	return &CollectorModule{
		name:        name,
		description: description,
		parameters:  parameters,
		queryString: queryString,
		columnNames: columnNames,
	}
}

func (m *CollectorModule) Name() string { return m.name }

func (m *CollectorModule) Close(context.Context) error { return nil }

func (m *CollectorModule) Metadata(context.Context) (qr.Metadata, error) {
	return qr.Metadata{Description: m.description, Parameters: m.parameters}, nil
}

func (m *CollectorModule) Start(_ context.Context, variables []qr.NamedValue) (Handle, error) {
	return &collectorHandle{module: m, variables: variables}, nil
}

type collectorHandle struct {
	module    *CollectorModule
	variables []qr.NamedValue

	mu   sync.Mutex
	rows [][]qr.Value
}

func (h *collectorHandle) QueryString(context.Context) (string, error) {
	return h.module.queryString, nil
}

func (h *collectorHandle) Variables(context.Context) ([]qr.NamedValue, error) {
	return h.variables, nil
}

func (h *collectorHandle) Row(_ context.Context, row []qr.NamedValue) (*qr.QueryResult, error) {
	values := make([]qr.Value, len(row))
	for i, nv := range row {
		values[i] = nv.Value
	}
	h.mu.Lock()
	h.rows = append(h.rows, values)
	h.mu.Unlock()
	return nil, nil
}

func (h *collectorHandle) End(_ context.Context, columnNames []string) (*qr.QueryResult, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := columnNames
	if names == nil {
		names = h.module.columnNames
	}
	result := &qr.QueryResult{Names: names, Values: h.rows}
	h.rows = nil
	return result, nil
}

func (h *collectorHandle) Close(context.Context) error { return nil }
