package protocol

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/richard-senior/mcp-runtime/internal/logger"
)

// ResponseWriter is the capability a transport hands the engine so that a
// handler's result can be sent back against the connection that produced
// the inbound message, without the engine knowing anything about framing.
type ResponseWriter interface {
	WriteResponse(*JsonRpcResponse) error
	WriteNotification(*JsonRpcRequest) error
}

// ToolService is the C5/C6 surface the engine delegates tools/* to.
type ToolService interface {
	ListTools() []Tool
	CallTool(ctx context.Context, name string, arguments json.RawMessage) (*ToolCallResult, error)
	Count() int
}

// ResourceService is the C7 surface the engine delegates resources/* to.
type ResourceService interface {
	ListResources() []Resource
	ListTemplates() []ResourceTemplateInfo
	ReadResource(ctx context.Context, uri string) ([]ResourceContents, error)
	Count() int
}

// ToolCallParams is the params object of tools/call.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ResourceReadParams is the params object of resources/read.
type ResourceReadParams struct {
	URI string `json:"uri"`
}

// Engine is the C3 protocol dispatcher. It is shared by every connection a
// host serves; the handshake state it advances on each call is supplied by
// the caller rather than held as a single field, so a stdio transport (one
// connection, one handshake for the engine's lifetime) and an HTTP
// transport (many concurrent callers, one handshake per Mcp-Session-Id) can
// share one Engine without one caller's state leaking into another's.
type Engine struct {
	ServerInfo     ServerInfo
	Instructions   string
	MaxMessageSize int
	Tools          ToolService
	Resources      ResourceService

	// Handshake is the default handshake used by HandleMessage, the
	// connection-oriented entry point a transport with exactly one logical
	// connection (stdio) drives directly.
	Handshake *Handshake

	subMu       sync.Mutex
	subscribers map[ResponseWriter]struct{}
}

// NewEngine builds an engine bound to the given tool/resource services.
// Either may be nil, in which case the corresponding capability and method
// family is simply never populated/dispatched successfully.
func NewEngine(serverInfo ServerInfo, instructions string, tools ToolService, resources ResourceService) *Engine {
	return &Engine{
		ServerInfo:   serverInfo,
		Instructions: instructions,
		Tools:        tools,
		Resources:    resources,
		Handshake:    NewHandshake(),
		subscribers:  map[ResponseWriter]struct{}{},
	}
}

// Subscribe registers w to receive list_changed notifications pushed via
// NotifyListChanged. Only a transport that holds its connection open across
// calls (stdio) can usefully subscribe; a per-request HTTP writer has
// nothing left to push on once its response has been written.
func (e *Engine) Subscribe(w ResponseWriter) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subscribers[w] = struct{}{}
}

// Unsubscribe removes w, typically deferred from the point Subscribe was called.
func (e *Engine) Unsubscribe(w ResponseWriter) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	delete(e.subscribers, w)
}

// HandleMessage parses one inbound wire payload and drives it through
// dispatch using the engine's own Handshake, writing exactly one response
// for a Request, zero for a Notification, per §8's protocol invariants.
// This is the entry point for a transport with a single implicit
// connection (stdio); transports correlating multiple concurrent callers
// by session should use HandleSessionMessage instead.
func (e *Engine) HandleMessage(ctx context.Context, data []byte, w ResponseWriter) error {
	return e.handleMessage(ctx, data, w, e.Handshake)
}

// HandleSessionMessage is HandleMessage's counterpart for a transport that
// correlates concurrent callers by session (HTTP, keyed by
// Mcp-Session-Id): hs is the calling session's own handshake rather than
// the engine's shared one, so concurrent sessions never observe or
// advance each other's handshake state.
func (e *Engine) HandleSessionMessage(ctx context.Context, data []byte, w ResponseWriter, hs *Handshake) error {
	if hs == nil {
		hs = e.Handshake
	}
	return e.handleMessage(ctx, data, w, hs)
}

func (e *Engine) handleMessage(ctx context.Context, data []byte, w ResponseWriter, hs *Handshake) error {
	msg, err := ParseMessage(data, e.MaxMessageSize)
	if err != nil {
		logger.Debug("parse error on inbound message: %v", err)
		return w.WriteResponse(NewErrorResponse(ErrParse, "Parse error", nil, nil))
	}

	switch msg.Kind {
	case KindRequest:
		return e.dispatchRequest(ctx, msg.Request, w, hs)
	case KindNotification:
		e.dispatchNotification(msg.Request, hs)
		return nil
	case KindResponse, KindErrorResponse:
		logger.Debug("discarding unsolicited response id=%v", msg.Response.ID)
		return nil
	default:
		return w.WriteResponse(NewErrorResponse(ErrInvalidRequest, "Invalid Request", nil, nil))
	}
}

func (e *Engine) dispatchRequest(ctx context.Context, req *JsonRpcRequest, w ResponseWriter, hs *Handshake) error {
	logger.Debug("dispatch request method=%s id=%v", req.Method, req.ID)

	switch MethodType(req.Method) {
	case MethodInitialize:
		return e.handleInitialize(req, w, hs)
	case MethodPing:
		return e.respond(req, struct{}{}, w)
	case MethodToolsList:
		return e.handleToolsList(req, w)
	case MethodToolsCall:
		return e.handleToolsCall(ctx, req, w)
	case MethodResourcesList:
		return e.handleResourcesList(req, w)
	case MethodResourcesRead:
		return e.handleResourcesRead(ctx, req, w)
	case MethodResourceTemplateList:
		return e.handleResourceTemplatesList(req, w)
	default:
		logger.Warn("method not found: %s", req.Method)
		return w.WriteResponse(NewErrorResponse(ErrMethodNotFound, "Method not found", map[string]any{"method": req.Method}, req.ID))
	}
}

func (e *Engine) dispatchNotification(req *JsonRpcRequest, hs *Handshake) {
	if MethodType(req.Method) == MethodInitialized {
		hs.Fire(EventInitializedNotification)
		logger.Info("handshake ready")
		return
	}
	logger.Debug("discarding notification %s", req.Method)
}

func (e *Engine) handleInitialize(req *JsonRpcRequest, w ResponseWriter, hs *Handshake) error {
	hs.Fire(EventInitializeRequest)

	var params InitializeParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return w.WriteResponse(NewErrorResponse(ErrInvalidParams, "invalid initialize params", map[string]any{"details": err.Error()}, req.ID))
		}
	}
	hs.RecordInitialize(params)

	result := InitializeResult{
		ProtocolVersion: params.ProtocolVersion,
		ServerInfo:      e.ServerInfo,
		Capabilities:    e.DeriveCapabilities(),
		Instructions:    e.Instructions,
	}
	if err := e.respond(req, result, w); err != nil {
		return err
	}
	hs.Fire(EventInitializeResponseSent)
	return nil
}

// DeriveCapabilities builds the capabilities object advertised at
// initialize, reflecting current registry population per §4.3.
func (e *Engine) DeriveCapabilities() ServerCapabilities {
	caps := ServerCapabilities{Logging: &struct{}{}}
	if e.Tools != nil && e.Tools.Count() > 0 {
		caps.Tools = &SubCapability{ListChanged: true}
	}
	if e.Resources != nil && e.Resources.Count() > 0 {
		caps.Resources = &SubCapability{ListChanged: true}
	}
	return caps
}

func (e *Engine) handleToolsList(req *JsonRpcRequest, w ResponseWriter) error {
	if e.Tools == nil {
		return e.respond(req, map[string]any{"tools": []Tool{}}, w)
	}
	return e.respond(req, map[string]any{"tools": e.Tools.ListTools()}, w)
}

func (e *Engine) handleToolsCall(ctx context.Context, req *JsonRpcRequest, w ResponseWriter) error {
	if e.Tools == nil {
		return w.WriteResponse(NewErrorResponse(ErrInternal, "no tool registry configured", nil, req.ID))
	}

	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return w.WriteResponse(NewErrorResponse(ErrInvalidParams, "invalid tools/call params", map[string]any{"details": err.Error()}, req.ID))
	}

	result, err := e.Tools.CallTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return w.WriteResponse(NewErrorResponse(ErrInternal, "Request handler returned null", map[string]any{"details": err.Error()}, req.ID))
	}
	return e.respond(req, result, w)
}

func (e *Engine) handleResourcesList(req *JsonRpcRequest, w ResponseWriter) error {
	if e.Resources == nil {
		return e.respond(req, map[string]any{"resources": []Resource{}}, w)
	}
	return e.respond(req, map[string]any{"resources": e.Resources.ListResources()}, w)
}

func (e *Engine) handleResourceTemplatesList(req *JsonRpcRequest, w ResponseWriter) error {
	if e.Resources == nil {
		return e.respond(req, map[string]any{"resourceTemplates": []ResourceTemplateInfo{}}, w)
	}
	return e.respond(req, map[string]any{"resourceTemplates": e.Resources.ListTemplates()}, w)
}

func (e *Engine) handleResourcesRead(ctx context.Context, req *JsonRpcRequest, w ResponseWriter) error {
	if e.Resources == nil {
		return w.WriteResponse(NewErrorResponse(ErrInternal, "no resource registry configured", nil, req.ID))
	}

	var params ResourceReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return w.WriteResponse(NewErrorResponse(ErrInvalidParams, "invalid resources/read params", map[string]any{"details": err.Error()}, req.ID))
	}

	contents, err := e.Resources.ReadResource(ctx, params.URI)
	if err != nil {
		logger.Warn("resources/read failed for %s: %v", params.URI, err)
		return w.WriteResponse(NewErrorResponse(ErrInternal, "Request handler returned null", map[string]any{"details": err.Error()}, req.ID))
	}
	return e.respond(req, map[string]any{"contents": contents}, w)
}

func (e *Engine) respond(req *JsonRpcRequest, result any, w ResponseWriter) error {
	resp, err := NewResponse(result, req.ID)
	if err != nil {
		return fmt.Errorf("marshaling response for %s: %w", req.Method, err)
	}
	return w.WriteResponse(resp)
}

// NotifyListChanged emits notifications/tools/list_changed or
// notifications/resources/list_changed to every writer currently
// subscribed via Subscribe, resolving the open question around the
// listChanged capability promise: tools.Registry.Register and
// resources.Registry.AddTemplate call this whenever the registry mutates.
// It gates on the engine's own Handshake reaching Ready, since only a
// connection-oriented transport (stdio) ever subscribes; a request-scoped
// HTTP writer is never subscribed in the first place, so for that
// transport this is a documented no-op rather than a silent drop.
func (e *Engine) NotifyListChanged(method MethodType) {
	if e.Handshake.State() != StateReady {
		return
	}

	e.subMu.Lock()
	targets := make([]ResponseWriter, 0, len(e.subscribers))
	for w := range e.subscribers {
		targets = append(targets, w)
	}
	e.subMu.Unlock()
	if len(targets) == 0 {
		return
	}

	notif, err := NewNotification(string(method), nil)
	if err != nil {
		logger.Error("building %s notification: %v", method, err)
		return
	}
	for _, w := range targets {
		if err := w.WriteNotification(notif); err != nil {
			logger.Warn("delivering %s notification: %v", method, err)
		}
	}
}
