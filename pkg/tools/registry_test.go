package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToolReturnsSeven(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, RegisterAdd(r))

	result, err := r.CallTool(context.Background(), "add", json.RawMessage(`{"a":3,"b":4}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, float64(7), result.StructuredContent)
	assert.Equal(t, "7", result.Content[0].Text)
}

func TestCallToolUnknownNameReportsNotFound(t *testing.T) {
	r := NewRegistry(10)
	result, err := r.CallTool(context.Background(), "missing", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, string(ErrNotFound))
}

func TestRegisterRejectsDuplicateName(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, RegisterAdd(r))
	err := RegisterAdd(r)
	assert.Error(t, err)
}

func TestRegisterRejectsInvalidName(t *testing.T) {
	r := NewRegistry(10)
	err := r.Register(RegisterOptions{
		Name:    "bad name!",
		Execute: func(*Accessor, any) (Value, error) { return NullValue(), nil },
	})
	assert.Error(t, err)
}

func TestRegisterEnforcesCapacity(t *testing.T) {
	r := NewRegistry(1)
	require.NoError(t, RegisterAdd(r))
	err := r.Register(RegisterOptions{
		Name:    "another",
		Execute: func(*Accessor, any) (Value, error) { return NullValue(), nil },
	})
	assert.Error(t, err)
}

func TestCallToolMissingRequiredArgumentFailsValidation(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, RegisterAdd(r))

	result, err := r.CallTool(context.Background(), "add", json.RawMessage(`{"a":3}`))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, string(ErrValidation))
}

func TestCallToolRecordsStatsAcrossCalls(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, RegisterAdd(r))

	_, err := r.CallTool(context.Background(), "add", json.RawMessage(`{"a":1,"b":2}`))
	require.NoError(t, err)
	_, err = r.CallTool(context.Background(), "add", json.RawMessage(`{"a":1}`))
	require.NoError(t, err)

	e := r.entries["add"]
	assert.EqualValues(t, 2, e.callsMade)
	assert.EqualValues(t, 1, e.callsSuccessful)
	assert.EqualValues(t, 1, e.callsFailed)
}

func TestRegisterLegacyBareNamesBecomeRequiredStrings(t *testing.T) {
	r := NewRegistry(10)
	err := r.RegisterLegacy("greet", "greets someone", []string{"name"}, nil, nil,
		func(acc *Accessor, _ any) (Value, error) {
			return StringValue("hello " + acc.String("name")), nil
		})
	require.NoError(t, err)

	result, err := r.CallTool(context.Background(), "greet", json.RawMessage(`{"name":"ada"}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "hello ada", result.Content[0].Text)
}

func TestSynthesizeSchemaSingleCategory(t *testing.T) {
	schema := synthesizeSchema("t", "d", []ParamDesc{
		{Name: "x", Category: CategorySingle, Type: "integer", Required: true},
	})
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, "integer", schema.Properties["x"].Type)
	assert.Contains(t, schema.Required, "x")
}

func TestSynthesizeSchemaArrayCategory(t *testing.T) {
	schema := synthesizeSchema("t", "d", []ParamDesc{
		{Name: "xs", Category: CategoryArray, ElementType: "string"},
	})
	prop := schema.Properties["xs"]
	assert.Equal(t, "array", prop.Type)
	require.NotNil(t, prop.Items)
	assert.Equal(t, "string", prop.Items.Type)
}

func TestSynthesizeSchemaObjectCategoryEmbedsValidSchema(t *testing.T) {
	schema := synthesizeSchema("t", "d", []ParamDesc{
		{Name: "opts", Category: CategoryObject, Schema: `{"type":"object","properties":{"x":{"type":"string"}}}`},
	})
	data, err := json.Marshal(schema.Properties["opts"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object","properties":{"x":{"type":"string"}}}`, string(data))
}

func TestSynthesizeSchemaObjectCategoryFallsBackOnInvalidSchema(t *testing.T) {
	schema := synthesizeSchema("t", "d", []ParamDesc{
		{Name: "opts", Category: CategoryObject, Schema: `not json`},
	})
	data, err := json.Marshal(schema.Properties["opts"])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"object"}`, string(data))
}

func TestRegisterFiresOnListChanged(t *testing.T) {
	r := NewRegistry(10)
	calls := 0
	r.OnListChanged = func() { calls++ }

	require.NoError(t, RegisterAdd(r))
	assert.Equal(t, 1, calls)
}

func TestCallToolRefcountIsRaceFreeUnderConcurrentCalls(t *testing.T) {
	r := NewRegistry(10)
	require.NoError(t, RegisterAdd(r))

	const n = 50
	done := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		go func() {
			_, _ = r.CallTool(context.Background(), "add", json.RawMessage(`{"a":1,"b":2}`))
			done <- struct{}{}
		}()
	}
	for i := 0; i < n; i++ {
		<-done
	}

	assert.EqualValues(t, 0, r.entries["add"].refcount, "every CallTool's increment was matched by a release")
}

func TestCallToolHonorsMaxExecutionTime(t *testing.T) {
	r := NewRegistry(10)
	err := r.Register(RegisterOptions{
		Name:               "slow",
		MaxExecutionTimeMs: 1,
		Execute: func(acc *Accessor, _ any) (Value, error) {
			<-acc.Context().Done()
			return NullValue(), acc.Context().Err()
		},
	})
	require.NoError(t, err)

	result, err := r.CallTool(context.Background(), "slow", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
