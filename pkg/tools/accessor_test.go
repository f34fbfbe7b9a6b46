package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessorTypedGetters(t *testing.T) {
	acc := NewAccessor(context.Background(), json.RawMessage(`{
		"n": 3, "d": 1.5, "s": "hi", "b": true,
		"ns": [1,2,3], "ds": [1.1,2.2], "ss": ["a","b"], "bs": [true,false]
	}`))

	assert.Equal(t, 3, acc.Int("n"))
	assert.Equal(t, 1.5, acc.Double("d"))
	assert.Equal(t, "hi", acc.String("s"))
	assert.True(t, acc.Bool("b"))
	assert.Equal(t, []int{1, 2, 3}, acc.IntArray("ns"))
	assert.Equal(t, []float64{1.1, 2.2}, acc.DoubleArray("ds"))
	assert.Equal(t, []string{"a", "b"}, acc.StringArray("ss"))
	assert.Equal(t, []bool{true, false}, acc.BoolArray("bs"))
}

func TestAccessorMissingKeysReturnZeroValues(t *testing.T) {
	acc := NewAccessor(context.Background(), json.RawMessage(`{}`))

	assert.Equal(t, 0, acc.Int("missing"))
	assert.Equal(t, "", acc.String("missing"))
	assert.False(t, acc.Bool("missing"))
	assert.Nil(t, acc.IntArray("missing"))
	assert.False(t, acc.Has("missing"))
}

func TestAccessorHasAndCount(t *testing.T) {
	acc := NewAccessor(context.Background(), json.RawMessage(`{"a":1,"b":2}`))
	assert.True(t, acc.Has("a"))
	assert.Equal(t, 2, acc.Count())
}

func TestAccessorEmptyArgumentsIsNotError(t *testing.T) {
	acc := NewAccessor(context.Background(), nil)
	assert.Equal(t, 0, acc.Count())
}

func TestAccessorHasType(t *testing.T) {
	acc := NewAccessor(context.Background(), json.RawMessage(`{"n":3,"s":"x","arr":[1,2]}`))
	assert.True(t, acc.HasType("n", "integer"))
	assert.True(t, acc.HasType("s", "string"))
	assert.False(t, acc.HasType("s", "integer"))
	assert.True(t, acc.HasType("arr", "array"))
	assert.False(t, acc.HasType("missing", "string"))
}
