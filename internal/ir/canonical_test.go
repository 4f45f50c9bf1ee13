package ir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalKeyOrderIndependence(t *testing.T) {
	a := Object{
		"zebra": Int(1),
		"alpha": String("x"),
		"mid":   Bool(true),
	}
	b := Object{
		"mid":   Bool(true),
		"alpha": String("x"),
		"zebra": Int(1),
	}

	ca, err := MarshalCanonical(a)
	require.NoError(t, err)
	cb, err := MarshalCanonical(b)
	require.NoError(t, err)

	assert.Equal(t, string(ca), string(cb), "insertion order must not affect canonical form")
	assert.Equal(t, `{"alpha":"x","mid":true,"zebra":1}`, string(ca))
}

func TestCanonicalNestedObjects(t *testing.T) {
	v := Object{
		"outer": Object{
			"b": Int(2),
			"a": Int(1),
		},
		"list": Array{String("x"), Object{"z": Null{}, "y": Float(1.5)}},
	}

	c, err := MarshalCanonical(v)
	require.NoError(t, err)
	assert.Equal(t, `{"list":["x",{"y":1.5,"z":null}],"outer":{"a":1,"b":2}}`, string(c))
}

func TestCanonicalWholeFloatsCollapse(t *testing.T) {
	a, err := MarshalCanonical(Object{"n": Float(2.0)})
	require.NoError(t, err)
	b, err := MarshalCanonical(Object{"n": Int(2)})
	require.NoError(t, err)

	assert.Equal(t, string(b), string(a), "2.0 and 2 must canonicalize identically")
}

func TestCanonicalRejectsNaNAndInf(t *testing.T) {
	_, err := MarshalCanonical(Object{"n": Float(math.NaN())})
	assert.True(t, IsSerializationError(err), "NaN must be rejected")

	_, err = MarshalCanonical(Object{"n": Float(math.Inf(1))})
	assert.True(t, IsSerializationError(err), "Inf must be rejected")
}

func TestCanonicalNoHTMLEscaping(t *testing.T) {
	c, err := MarshalCanonical(Object{"s": String("<a> & </a>")})
	require.NoError(t, err)
	assert.Equal(t, `{"s":"<a> & </a>"}`, string(c))
}

func TestCanonicalAcceptsGoValues(t *testing.T) {
	c, err := MarshalCanonical(map[string]any{
		"b": []any{1, "two", true, nil},
		"a": 3.5,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":3.5,"b":[1,"two",true,null]}`, string(c))
}
