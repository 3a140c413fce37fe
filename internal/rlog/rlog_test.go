package rlog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBuildsALogger(t *testing.T) {
	logger, err := New()
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestInvocationIDIsUnique(t *testing.T) {
	a := InvocationID()
	b := InvocationID()
	assert.NotEqual(t, a, b)
	assert.NotEmpty(t, a)
}

func TestFieldsCarriesCorrelationAttributes(t *testing.T) {
	fields := Fields("inv-1", "test_collect", "memory")
	require.Len(t, fields, 3)
	assert.Equal(t, "invocation_id", fields[0].Key)
	assert.Equal(t, "inv-1", fields[0].String)
	assert.Equal(t, "plugin", fields[1].Key)
	assert.Equal(t, "connection", fields[2].Key)
}

func TestElapsedIsNonNegative(t *testing.T) {
	start := time.Now().Add(-time.Millisecond)
	field := Elapsed(start)
	assert.Equal(t, "elapsed", field.Key)
	assert.GreaterOrEqual(t, field.Integer, int64(0))
}
