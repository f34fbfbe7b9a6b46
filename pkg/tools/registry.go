package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/richard-senior/mcp-runtime/internal/logger"
	"github.com/richard-senior/mcp-runtime/pkg/protocol"
)

var nameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,255}$`)

// ParamCategory is the discriminant of ParamDesc's payload, replacing the
// union-with-discriminant the original parameter descriptor used.
type ParamCategory int

const (
	CategorySingle ParamCategory = iota
	CategoryArray
	CategoryObject
)

// ParamDesc describes one tool parameter. Category selects which fields
// apply: Single uses Type (one of integer/number/string/boolean); Array
// uses ElementType/ElementDescription; Object uses Schema, an embedded
// JSON-Schema Draft-07 fragment.
type ParamDesc struct {
	Name               string
	Category           ParamCategory
	Type               string
	Description        string
	Required           bool
	ElementType        string
	ElementDescription string
	Schema             string
}

// WrapperFunc is a tool's execute_fn: given the accessor bound to this
// call's arguments and the tool's user_data, produce a result Value or an
// error that the invocation pipeline folds into an isError content block.
type WrapperFunc func(acc *Accessor, userData any) (Value, error)

// ValidateFunc is a tool's optional validate_fn, run before WrapperFunc.
type ValidateFunc func(acc *Accessor) error

// ErrorKind names the taxonomy of tool-level (application) errors from
// §7 — surfaced inside a successful JSON-RPC response as isError content,
// never as a protocol-level error.
type ErrorKind string

const (
	ErrNotFound   ErrorKind = "not_found_error"
	ErrValidation ErrorKind = "validation_error"
	ErrExecution  ErrorKind = "execution_error"
	ErrTimeout    ErrorKind = "timeout_error"
	ErrPermission ErrorKind = "permission_error"
	ErrInternal   ErrorKind = "internal_error"
)

// WrapperError is the error type WrapperFunc/ValidateFunc should return to
// control which ErrorKind is reported; a plain error is reported as
// execution_error.
type WrapperError struct {
	Kind    ErrorKind
	Message string
}

func (e *WrapperError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// RegisterOptions is the unified registration descriptor (the ParamDesc[]
// mode of §4.4's registration contract).
type RegisterOptions struct {
	Name                 string
	Title                string
	Description          string
	Params               []ParamDesc
	Execute              WrapperFunc
	Validate             ValidateFunc
	Cleanup              func(userData any)
	UserData             any
	Category             string
	IsAsync              bool
	IsDangerous          bool
	MaxExecutionTimeMs   int
	MaxMemoryUsageBytes  int64
}

type entry struct {
	opts              RegisterOptions
	inputSchema       *protocol.InputSchema
	registeredTime    time.Time
	isBuiltin         bool
	refcount          int32

	mu                sync.Mutex
	callsMade         int64
	callsSuccessful   int64
	callsFailed       int64
	lastCalled        time.Time
	totalExecTime     time.Duration
}

func (e *entry) averageExecTime() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.callsMade == 0 {
		return 0
	}
	return e.totalExecTime / time.Duration(e.callsMade)
}

// Registry is the C5 tool registry: a keyed container guarded by a
// reader-writer lock (the original's intrusive linked list is
// performance-irrelevant at N <= 100; a map gives O(1) lookup instead).
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	maxTools int

	// OnListChanged, when set, is invoked after Register successfully adds
	// a tool; a host wires this to push notifications/tools/list_changed
	// to subscribed connections once the engine exists.
	OnListChanged func()
}

func NewRegistry(maxTools int) *Registry {
	if maxTools <= 0 {
		maxTools = 100
	}
	return &Registry{entries: map[string]*entry{}, maxTools: maxTools}
}

// Register adds a tool under the unified ParamDesc[] descriptor mode.
func (r *Registry) Register(opts RegisterOptions) error {
	if !nameRE.MatchString(opts.Name) {
		return fmt.Errorf("invalid tool name %q: must match [A-Za-z0-9_-]{1,255}", opts.Name)
	}
	if opts.Execute == nil {
		return fmt.Errorf("tool %q: Execute is required", opts.Name)
	}

	schema := synthesizeSchema(opts.Name, opts.Description, opts.Params)

	r.mu.Lock()
	if _, exists := r.entries[opts.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("tool %q already registered", opts.Name)
	}
	if len(r.entries) >= r.maxTools {
		r.mu.Unlock()
		return fmt.Errorf("tool registry at capacity (%d)", r.maxTools)
	}

	r.entries[opts.Name] = &entry{
		opts:           opts,
		inputSchema:    schema,
		registeredTime: time.Now(),
	}
	r.mu.Unlock()
	logger.Info("registered tool %s", opts.Name)
	if r.OnListChanged != nil {
		r.OnListChanged()
	}
	return nil
}

// RegisterLegacy adapts the legacy descriptor set (names[], descriptions[],
// types[]) to RegisterOptions, per §4.4's mode-selection heuristic: when
// only names is supplied (descriptions and types are both empty), names is
// reinterpreted as the unified ParamDesc[] form instead — each entry becomes
// a required string parameter named after itself, with no elaboration
// possible from a bare name list.
func (r *Registry) RegisterLegacy(name, description string, names, descriptions, types []string, execute WrapperFunc) error {
	var params []ParamDesc

	if len(descriptions) == 0 && len(types) == 0 {
		for _, n := range names {
			params = append(params, ParamDesc{Name: n, Category: CategorySingle, Type: "string", Required: true})
		}
	} else {
		for i, n := range names {
			p := ParamDesc{Name: n, Category: CategorySingle, Type: "string", Required: true}
			if i < len(descriptions) {
				p.Description = descriptions[i]
			}
			if i < len(types) {
				p.Type = types[i]
			}
			params = append(params, p)
		}
	}

	return r.Register(RegisterOptions{
		Name:        name,
		Description: description,
		Params:      params,
		Execute:     execute,
	})
}

// Count returns the number of registered tools, for capability derivation.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ListTools renders the registry to the tools/list result shape.
func (r *Registry) ListTools() []protocol.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]protocol.Tool, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, protocol.Tool{
			Name:        e.opts.Name,
			Title:       e.opts.Title,
			Description: e.opts.Description,
			InputSchema: e.inputSchema,
		})
	}
	return out
}

// CallTool runs the §4.4 invocation pipeline: lookup, strong reference,
// accessor construction, validation, invocation outside any lock, then a
// statistics update under the entry's own mutex.
func (r *Registry) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*protocol.ToolCallResult, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	if ok {
		atomic.AddInt32(&e.refcount, 1)
	}
	r.mu.RUnlock()

	if !ok {
		return errorResult(ErrNotFound, fmt.Sprintf("tool %q is not registered", name)), nil
	}
	defer r.release(e)

	callCtx := ctx
	var cancel context.CancelFunc
	if e.opts.MaxExecutionTimeMs > 0 {
		callCtx, cancel = context.WithTimeout(ctx, time.Duration(e.opts.MaxExecutionTimeMs)*time.Millisecond)
		defer cancel()
	}
	acc := NewAccessor(callCtx, arguments)

	if e.opts.Validate != nil {
		if err := e.opts.Validate(acc); err != nil {
			r.recordFailure(e, 0)
			return wrapError(err), nil
		}
	} else if e.inputSchema != nil {
		for _, required := range e.inputSchema.Required {
			prop, ok := e.inputSchema.Properties[required]
			if !ok {
				continue
			}
			if !acc.HasType(required, prop.Type) {
				r.recordFailure(e, 0)
				return errorResult(ErrValidation, fmt.Sprintf("missing or mistyped required argument %q", required)), nil
			}
		}
	}

	start := time.Now()
	value, err := e.opts.Execute(acc, e.opts.UserData)
	elapsed := time.Since(start)

	if err != nil {
		r.recordFailure(e, elapsed)
		return wrapError(err), nil
	}
	r.recordSuccess(e, elapsed)

	return &protocol.ToolCallResult{
		Content:           []protocol.ContentBlock{{Type: "text", Text: value.Text()}},
		StructuredContent: value.Any(),
		IsError:           false,
	}, nil
}

func (r *Registry) release(e *entry) {
	atomic.AddInt32(&e.refcount, -1)
}

func (r *Registry) recordSuccess(e *entry, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callsMade++
	e.callsSuccessful++
	e.lastCalled = time.Now()
	e.totalExecTime += elapsed
}

func (r *Registry) recordFailure(e *entry, elapsed time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callsMade++
	e.callsFailed++
	e.lastCalled = time.Now()
	e.totalExecTime += elapsed
}

func wrapError(err error) *protocol.ToolCallResult {
	kind := ErrExecution
	msg := err.Error()
	if we, ok := err.(*WrapperError); ok {
		kind = we.Kind
		msg = we.Message
	}
	return errorResult(kind, msg)
}

func errorResult(kind ErrorKind, message string) *protocol.ToolCallResult {
	return &protocol.ToolCallResult{
		Content: []protocol.ContentBlock{{Type: "text", Text: fmt.Sprintf("Error (%s): %s", kind, message)}},
		IsError: true,
	}
}

// synthesizeSchema builds a JSON-Schema Draft-07 object schema per §4.4's
// synthesis rules.
func synthesizeSchema(title, description string, params []ParamDesc) *protocol.InputSchema {
	schema := &protocol.InputSchema{
		Schema:               "http://json-schema.org/draft-07/schema#",
		Type:                 "object",
		Title:                title,
		Description:          description,
		Properties:           map[string]protocol.ToolProperty{},
		Required:             []string{},
		AdditionalProperties: false,
	}

	for _, p := range params {
		switch p.Category {
		case CategorySingle:
			t := p.Type
			if t == "" {
				t = "string"
			}
			schema.Properties[p.Name] = protocol.ToolProperty{Type: t, Description: p.Description}
		case CategoryArray:
			schema.Properties[p.Name] = protocol.ToolProperty{
				Type: "array",
				Items: &protocol.ToolProperty{
					Type:        p.ElementType,
					Description: p.ElementDescription,
				},
			}
		case CategoryObject:
			var raw json.RawMessage
			if json.Valid([]byte(p.Schema)) {
				raw = json.RawMessage(p.Schema)
			} else {
				raw, _ = json.Marshal(map[string]string{"type": "object"})
			}
			schema.Properties[p.Name] = protocol.ToolProperty{Embedded: raw}
		}
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}
