package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dialos/dialscript/value"
)

func TestTruthiness(t *testing.T) {
	require.False(t, value.Null.IsTruthy())
	require.False(t, value.Bool(false).IsTruthy())
	require.True(t, value.Bool(true).IsTruthy())
	require.False(t, value.Int(0).IsTruthy())
	require.True(t, value.Int(-1).IsTruthy())
	require.False(t, value.Float(0).IsTruthy())
	require.True(t, value.Float(0.0001).IsTruthy())
	require.False(t, value.StringRef(0).IsTruthy(), "handle 0 is the interned empty string")
	require.True(t, value.StringRef(1).IsTruthy())
	require.True(t, value.ObjectRef(0).IsTruthy())
	require.True(t, value.ArrayRef(0).IsTruthy())
}

func TestEqualsNumericCoercion(t *testing.T) {
	require.True(t, value.Int(2).Equals(value.Float(2.0)))
	require.True(t, value.Float(2.0).Equals(value.Int(2)))
	require.False(t, value.Int(2).Equals(value.Int(3)))
	require.True(t, value.Float(1.0000001).Equals(value.Float(1.0)))
}

func TestEqualsKindMismatch(t *testing.T) {
	require.False(t, value.Null.Equals(value.Bool(false)))
	require.False(t, value.StringRef(0).Equals(value.ArrayRef(0)))
}

func TestEqualsHandleIdentity(t *testing.T) {
	require.True(t, value.StringRef(3).Equals(value.StringRef(3)))
	require.False(t, value.StringRef(3).Equals(value.StringRef(4)))
	require.True(t, value.ObjectRef(5).Equals(value.ObjectRef(5)))
	require.False(t, value.ObjectRef(5).Equals(value.ObjectRef(6)), "distinct object handles are never equal even with identical fields")
}

func TestAccessorsPanicOnWrongKind(t *testing.T) {
	require.Panics(t, func() { value.Null.AsInt() })
	require.Panics(t, func() { value.Int(1).AsFloat() })
	require.NotPanics(t, func() { value.Bool(true).AsBool() })
}

func TestNewArrayFillsNull(t *testing.T) {
	a := value.NewArray(3)
	require.Len(t, a.Elements, 3)
	for _, e := range a.Elements {
		require.True(t, e.IsNull())
	}
}
