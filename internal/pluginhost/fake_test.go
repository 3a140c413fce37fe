package pluginhost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qr "github.com/jpmoresmau/queryrunner"
)

func TestCollectorModuleCollectsRowsAndDrainsAtEnd(t *testing.T) {
	ctx := context.Background()
	module := NewCollectorModule(
		"test_collect",
		"test plugin collecting results",
		"select customer_id from customers where id = {{customer_id}}",
		[]qr.Parameter{{Name: "customer_id", Kind: qr.KindInteger}},
		[]string{"name", "email"},
	)

	meta, err := module.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test plugin collecting results", meta.Description)

	handle, err := module.Start(ctx, []qr.NamedValue{{Name: "customer_id", Value: qr.IntegerValue(1)}})
	require.NoError(t, err)
	defer handle.Close(ctx)

	query, err := handle.QueryString(ctx)
	require.NoError(t, err)
	assert.Contains(t, query, "{{customer_id}}")

	partial, err := handle.Row(ctx, []qr.NamedValue{
		{Name: "name", Value: qr.StringValue("John Doe")},
		{Name: "email", Value: qr.StringValue("john.doe@example.com")},
	})
	require.NoError(t, err)
	assert.Nil(t, partial, "row() never returns a partial result for this fake")

	final, err := handle.End(ctx, nil)
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, []string{"name", "email"}, final.Names)
	assert.Equal(t, [][]qr.Value{{qr.StringValue("John Doe"), qr.StringValue("john.doe@example.com")}}, final.Values)
}

func TestCollectorModuleEndPrefersCallerColumnNames(t *testing.T) {
	ctx := context.Background()
	module := NewCollectorModule("p", "d", "select 1", nil, []string{"default"})
	handle, err := module.Start(ctx, nil)
	require.NoError(t, err)
	defer handle.Close(ctx)

	_, err = handle.Row(ctx, []qr.NamedValue{{Name: "n", Value: qr.IntegerValue(1)}})
	require.NoError(t, err)

	final, err := handle.End(ctx, []string{"n"})
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, final.Names)
}
