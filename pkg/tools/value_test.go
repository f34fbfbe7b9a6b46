package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueTextAndAny(t *testing.T) {
	assert.Equal(t, "7", IntValue(7).Text())
	assert.EqualValues(t, 7, IntValue(7).Any())

	assert.Equal(t, "3.5", DoubleValue(3.5).Text())
	assert.Equal(t, "hi", StringValue("hi").Text())
	assert.Equal(t, "true", BoolValue(true).Text())
	assert.Equal(t, "", NullValue().Text())
	assert.Nil(t, NullValue().Any())
}

func TestValueKind(t *testing.T) {
	assert.Equal(t, ValueInt, IntValue(1).Kind())
	assert.Equal(t, ValueDouble, DoubleValue(1).Kind())
	assert.Equal(t, ValueString, StringValue("a").Kind())
	assert.Equal(t, ValueBool, BoolValue(true).Kind())
	assert.Equal(t, ValueNull, NullValue().Kind())
}
