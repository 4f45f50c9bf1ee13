package ir

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectMergeIsShallow(t *testing.T) {
	base := Object{
		"keep":    String("old"),
		"replace": Object{"deep": Int(1)},
	}
	patch := Object{
		"replace": Object{"other": Int(2)},
		"add":     Bool(true),
	}

	merged := base.Merge(patch)

	assert.Equal(t, String("old"), merged["keep"])
	assert.Equal(t, Bool(true), merged["add"])
	assert.Equal(t, Object{"other": Int(2)}, merged["replace"],
		"merge replaces nested objects wholesale, it does not recurse")

	// Inputs untouched.
	assert.Equal(t, Object{"deep": Int(1)}, base["replace"])
	assert.NotContains(t, base, "add")
}

func TestObjectCloneIsDeep(t *testing.T) {
	orig := Object{"nested": Object{"n": Int(1)}, "arr": Array{Int(1)}}
	clone := orig.Clone()

	clone["nested"].(Object)["n"] = Int(99)
	assert.Equal(t, Int(1), orig["nested"].(Object)["n"], "clone must not alias nested objects")
}

func TestObjectJSONRoundTrip(t *testing.T) {
	orig := Object{
		"s":   String("text"),
		"i":   Int(42),
		"f":   Float(1.5),
		"b":   Bool(true),
		"nil": Null{},
		"arr": Array{Int(1), String("two")},
		"obj": Object{"inner": Int(7)},
	}

	data, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Object
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, orig, back, "integers must stay Int, not decay to Float")
}

func TestFromGoNumbers(t *testing.T) {
	v, err := FromGo(42)
	require.NoError(t, err)
	assert.Equal(t, Int(42), v)

	v, err = FromGo(2.5)
	require.NoError(t, err)
	assert.Equal(t, Float(2.5), v)

	v, err = FromGo(json.Number("7"))
	require.NoError(t, err)
	assert.Equal(t, Int(7), v)
}

func TestFromGoRejectsUnsupported(t *testing.T) {
	_, err := FromGo(make(chan int))
	assert.True(t, IsSerializationError(err))
}

func TestToGoRoundTrip(t *testing.T) {
	v := Object{"a": Int(1), "b": Array{String("x")}}
	g := ToGo(v)

	back, err := FromGo(g)
	require.NoError(t, err)
	assert.Equal(t, v, back)
}
