package tools

import (
	"context"
	"encoding/json"
)

// Accessor wraps a tools/call request's arguments object, giving wrapper
// functions typed getters instead of hand-casting a map[string]any. Getters
// return the type's zero value on a missing key or a type mismatch —
// whether that absence is an error is a decision left to the wrapper.
type Accessor struct {
	ctx  context.Context
	args map[string]json.RawMessage
}

// NewAccessor parses a tools/call request's raw arguments object. A nil or
// empty payload yields an accessor over zero arguments, not an error —
// zero-arg tools are legitimate.
func NewAccessor(ctx context.Context, arguments json.RawMessage) *Accessor {
	acc := &Accessor{ctx: ctx, args: map[string]json.RawMessage{}}
	if len(arguments) == 0 {
		return acc
	}
	_ = json.Unmarshal(arguments, &acc.args)
	return acc
}

// Context returns the invocation's context, carrying the cooperative
// max_execution_time_ms deadline when the tool declared one.
func (a *Accessor) Context() context.Context { return a.ctx }

// Has reports whether name was present in the arguments object at all.
func (a *Accessor) Has(name string) bool {
	_, ok := a.args[name]
	return ok
}

// Count returns the number of top-level argument keys supplied.
func (a *Accessor) Count() int { return len(a.args) }

// Raw returns the undecoded JSON for name, or nil if absent.
func (a *Accessor) Raw(name string) json.RawMessage { return a.args[name] }

func (a *Accessor) Int(name string) int {
	var v float64
	raw, ok := a.args[name]
	if !ok {
		return 0
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return int(v)
}

func (a *Accessor) Double(name string) float64 {
	var v float64
	raw, ok := a.args[name]
	if !ok {
		return 0
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return v
}

func (a *Accessor) String(name string) string {
	var v string
	raw, ok := a.args[name]
	if !ok {
		return ""
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

func (a *Accessor) Bool(name string) bool {
	var v bool
	raw, ok := a.args[name]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v
}

func (a *Accessor) IntArray(name string) []int {
	var v []int
	raw, ok := a.args[name]
	if !ok {
		return nil
	}
	_ = json.Unmarshal(raw, &v)
	return v
}

func (a *Accessor) DoubleArray(name string) []float64 {
	var v []float64
	raw, ok := a.args[name]
	if !ok {
		return nil
	}
	_ = json.Unmarshal(raw, &v)
	return v
}

func (a *Accessor) StringArray(name string) []string {
	var v []string
	raw, ok := a.args[name]
	if !ok {
		return nil
	}
	_ = json.Unmarshal(raw, &v)
	return v
}

func (a *Accessor) BoolArray(name string) []bool {
	var v []bool
	raw, ok := a.args[name]
	if !ok {
		return nil
	}
	_ = json.Unmarshal(raw, &v)
	return v
}

// HasType reports whether name is present and decodes as a value of the
// given JSON-Schema primitive type name ("integer","number","string",
// "boolean"), for the structural validation Registry.CallTool falls back
// to when a tool supplies no custom validator.
func (a *Accessor) HasType(name, schemaType string) bool {
	raw, ok := a.args[name]
	if !ok {
		return false
	}
	switch schemaType {
	case "integer", "number":
		var v float64
		return json.Unmarshal(raw, &v) == nil
	case "string":
		var v string
		return json.Unmarshal(raw, &v) == nil
	case "boolean":
		var v bool
		return json.Unmarshal(raw, &v) == nil
	case "array":
		var v []json.RawMessage
		return json.Unmarshal(raw, &v) == nil
	case "object":
		var v map[string]json.RawMessage
		return json.Unmarshal(raw, &v) == nil
	default:
		return true
	}
}
