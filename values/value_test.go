package values_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scenescript/scenectl/values"
)

func TestEqualIsStructuralAndTagAware(t *testing.T) {
	require.True(t, values.Equal(values.NewInteger(1), values.NewInteger(1)))
	require.False(t, values.Equal(values.NewInteger(1), values.NewFloat(1)))
	require.False(t, values.Equal(values.NewString("a"), values.NewPath("a")))
}

func TestObjectEqualityIsFieldwise(t *testing.T) {
	a := values.NewObjectValue(values.NewObject(map[string]*values.Value{
		"x": values.NewInteger(1),
	}))
	b := values.NewObjectValue(values.NewObject(map[string]*values.Value{
		"x": values.NewInteger(1),
	}))
	c := values.NewObjectValue(values.NewObject(map[string]*values.Value{
		"x": values.NewInteger(2),
	}))
	require.True(t, values.Equal(a, b))
	require.False(t, values.Equal(a, c))
}

func TestCloneOfObjectIsIndependent(t *testing.T) {
	src := values.NewObjectValue(values.NewObject(map[string]*values.Value{
		"x": values.NewInteger(1),
	}))
	clone := src.Clone()
	obj, _ := clone.AsObject()
	obj.Fields["x"] = values.NewInteger(99)

	srcObj, _ := src.AsObject()
	require.True(t, values.Equal(srcObj.Fields["x"], values.NewInteger(1)))
}

func TestJSONRoundTripForObjectLiteralValues(t *testing.T) {
	cases := []*values.Value{
		values.NewString("hello"),
		values.NewInteger(42),
		values.NewFloat(3.5),
		values.NewObjectValue(values.NewObject(map[string]*values.Value{
			"a": values.NewString("x"),
			"b": values.NewInteger(7),
			// nested Bool: not marshalable on its own, but fine inside an
			// Object since the JSON object encoder handles it directly.
			"c": values.NewBool(true),
		})),
	}
	for _, v := range cases {
		data, err := values.Marshal(v)
		require.NoError(t, err)
		got := values.Parse(data)
		require.True(t, values.Equal(v, got), "round trip of %v -> %v", v, got)
	}
}

func TestMarshalRefusesNonTransmissibleTypes(t *testing.T) {
	for _, v := range []*values.Value{
		values.NewDuration(time.Second),
		values.NewTimeHourMinute(9, 30),
		values.NewBool(true),
		values.NewJump(3),
	} {
		_, err := values.Marshal(v)
		require.Error(t, err, "%s should not be transmissible", v.Type)
	}
}

func TestParseFallsBackToStringOnNonJSON(t *testing.T) {
	v := values.Parse([]byte("not json {"))
	s, ok := v.AsString()
	require.True(t, ok)
	require.Equal(t, "not json {", s)
}

func TestParseRefusesArraysAndNull(t *testing.T) {
	v := values.Parse([]byte("[1,2,3]"))
	s, ok := v.AsString()
	require.True(t, ok)
	require.Equal(t, "[1,2,3]", s)

	v = values.Parse([]byte("null"))
	s, ok = v.AsString()
	require.True(t, ok)
	require.Equal(t, "null", s)
}
