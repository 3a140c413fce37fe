package pgadapter

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qr "github.com/jpmoresmau/queryrunner"
)

func TestOidKind(t *testing.T) {
	tests := []struct {
		oid  uint32
		want qr.ValueKind
	}{
		{pgtype.Int4OID, qr.KindInteger},
		{pgtype.Int8OID, qr.KindInteger},
		{pgtype.TextOID, qr.KindString},
		{pgtype.VarcharOID, qr.KindString},
		{pgtype.BoolOID, qr.KindBoolean},
		{pgtype.Float8OID, qr.KindDecimal},
		{pgtype.NumericOID, qr.KindDecimal},
	}
	for _, tt := range tests {
		got, err := oidKind(tt.oid)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestOidKindUnsupported(t *testing.T) {
	_, err := oidKind(999999)
	require.ErrorIs(t, err, qr.ErrUnsupportedType)
}

func TestToValueHandlesNull(t *testing.T) {
	assert.Equal(t, qr.NullValue(qr.KindInteger), toValue(qr.KindInteger, nil))
	assert.Equal(t, qr.NullValue(qr.KindString), toValue(qr.KindString, nil))
}

func TestToValueConvertsNativeTypes(t *testing.T) {
	assert.Equal(t, qr.IntegerValue(7), toValue(qr.KindInteger, int64(7)))
	assert.Equal(t, qr.IntegerValue(7), toValue(qr.KindInteger, int32(7)))
	assert.Equal(t, qr.BooleanValue(true), toValue(qr.KindBoolean, true))
	assert.Equal(t, qr.DecimalValue(1.5), toValue(qr.KindDecimal, float64(1.5)))
	assert.Equal(t, qr.StringValue("hi"), toValue(qr.KindString, "hi"))
	assert.Equal(t, qr.TimestampValue("2024-01-01"), toValue(qr.KindTimestamp, "2024-01-01"))
}

func TestNativeArg(t *testing.T) {
	assert.Nil(t, qr.NativeArg(qr.NullValue(qr.KindString)))
	assert.Equal(t, int64(3), qr.NativeArg(qr.IntegerValue(3)))
	assert.Equal(t, "x", qr.NativeArg(qr.StringValue("x")))
	assert.Equal(t, true, qr.NativeArg(qr.BooleanValue(true)))
}
