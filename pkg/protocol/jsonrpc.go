// Package protocol implements the JSON-RPC 2.0 wire codec and the MCP
// message shapes carried over it.
//
// https://modelcontextprotocol.info/specification/draft/basic/lifecycle/
// Flow:
//
//	Client sends {"method":"initialize", ...} with an id.
//	Server responds with {"result":{"protocolVersion":...,"capabilities":...,"serverInfo":...}}.
//	Client sends the "notifications/initialized" notification (no id, no response).
//	Client sends {"method":"tools/list"} to discover what this server can do.
//	Client sends {"method":"tools/call","params":{"name":...,"arguments":{...}}} to invoke one.
package protocol

import (
	"encoding/json"
	"fmt"
)

// JsonRpcVersion is the only protocol version this codec accepts.
const JsonRpcVersion = "2.0"

// MethodType names the MCP/JSON-RPC methods this runtime dispatches.
type MethodType string

const (
	MethodInitialize           MethodType = "initialize"
	MethodInitialized          MethodType = "notifications/initialized"
	MethodPing                 MethodType = "ping"
	MethodToolsList            MethodType = "tools/list"
	MethodToolsCall            MethodType = "tools/call"
	MethodResourcesList        MethodType = "resources/list"
	MethodResourcesRead        MethodType = "resources/read"
	MethodResourceTemplateList MethodType = "resources/templates/list"
	MethodToolsListChanged     MethodType = "notifications/tools/list_changed"
	MethodResourcesListChanged MethodType = "notifications/resources/list_changed"
)

// Standard JSON-RPC 2.0 error codes, plus the tool-execution code this
// runtime reserves from the implementation-defined server-error band.
const (
	ErrParse          = -32700
	ErrInvalidRequest = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
	ErrServer         = -32000
)

// JsonRpcRequest is both a Request and a Notification; IsNotification
// reports which, and the invariant IsNotification == (ID == nil) is
// enforced by ParseMessage.
type JsonRpcRequest struct {
	JsonRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id,omitempty"`
}

// IsNotification reports whether this request carries no id.
func (r *JsonRpcRequest) IsNotification() bool {
	return r.ID == nil
}

// JsonRpcResponse is both a successful Response (Result set) and an
// ErrorResponse (Error set); never both.
type JsonRpcResponse struct {
	JsonRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JsonRpcError   `json:"error,omitempty"`
	ID      any             `json:"id"`
}

// JsonRpcError is the JSON-RPC 2.0 error object, and also implements the
// standard error interface so handlers can return it directly.
type JsonRpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *JsonRpcError) Error() string {
	return fmt.Sprintf("jsonrpc error: code=%d message=%s", e.Code, e.Message)
}

// MessageKind classifies a parsed message by its field-presence shape, per
// the wire codec contract: Request = method∧id, Notification = method∧¬id,
// Response = id∧result, ErrorResponse = id∧error.
type MessageKind int

const (
	KindInvalid MessageKind = iota
	KindRequest
	KindNotification
	KindResponse
	KindErrorResponse
)

// rawMessage is the superset shape used only to classify an inbound
// message before committing to a concrete Request/Response decode.
type rawMessage struct {
	JsonRPC string          `json:"jsonrpc"`
	Method  *string         `json:"method"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   json.RawMessage `json:"error"`
}

// ParseError reports a wire-level decoding failure; the codec never
// allocates a full parse tree once the size bound is exceeded.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string { return e.Reason }

// Message is the result of classifying and decoding one inbound JSON-RPC
// payload. Exactly one of Request/Response is populated, matching Kind.
type Message struct {
	Kind     MessageKind
	Request  *JsonRpcRequest
	Response *JsonRpcResponse
}

// ParseMessage parses and classifies a single JSON-RPC message, enforcing
// maxMessageSize (0 disables the bound). On any violation it returns a
// *ParseError and the caller is expected to answer with a JSON-RPC
// ParseError response carrying id=null.
func ParseMessage(data []byte, maxMessageSize int) (*Message, error) {
	if maxMessageSize > 0 && len(data) > maxMessageSize {
		return nil, &ParseError{Reason: fmt.Sprintf("message of %d bytes exceeds max_message_size %d", len(data), maxMessageSize)}
	}

	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Reason: "Parse error"}
	}
	if raw.JsonRPC != JsonRpcVersion {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON-RPC version: %q", raw.JsonRPC)}
	}

	hasMethod := raw.Method != nil
	hasID := len(raw.ID) > 0 && string(raw.ID) != "null"
	hasResult := len(raw.Result) > 0
	hasError := len(raw.Error) > 0

	switch {
	case hasMethod && hasID && !hasResult && !hasError:
		var req JsonRpcRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, &ParseError{Reason: "Parse error"}
		}
		return &Message{Kind: KindRequest, Request: &req}, nil

	case hasMethod && !hasID:
		var req JsonRpcRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, &ParseError{Reason: "Parse error"}
		}
		req.ID = nil
		return &Message{Kind: KindNotification, Request: &req}, nil

	case hasID && hasResult && !hasMethod && !hasError:
		var resp JsonRpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, &ParseError{Reason: "Parse error"}
		}
		return &Message{Kind: KindResponse, Response: &resp}, nil

	case hasID && hasError && !hasMethod && !hasResult:
		var resp JsonRpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, &ParseError{Reason: "Parse error"}
		}
		return &Message{Kind: KindErrorResponse, Response: &resp}, nil

	default:
		return nil, &ParseError{Reason: "Invalid Request"}
	}
}

// IDsEqual compares two JSON-RPC ids using the wire equality rule: string
// ids compare as strings, numeric ids compare numerically, null equals
// null. Mismatched kinds (e.g. string vs number) are never equal.
func IDsEqual(a, b any) bool {
	af, aIsNum := toFloat(a)
	bf, bIsNum := toFloat(b)
	if aIsNum && bIsNum {
		return af == bf
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		return as == bs
	}
	return a == nil && b == nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// NewRequest builds a JSON-RPC request (or notification, when id is nil).
func NewRequest(method string, params any, id any) (*JsonRpcRequest, error) {
	paramsJSON, err := marshalOptional(params)
	if err != nil {
		return nil, err
	}
	return &JsonRpcRequest{JsonRPC: JsonRpcVersion, Method: method, Params: paramsJSON, ID: id}, nil
}

// NewNotification builds a JSON-RPC request with no id.
func NewNotification(method string, params any) (*JsonRpcRequest, error) {
	return NewRequest(method, params, nil)
}

// NewResponse builds a successful JSON-RPC response.
func NewResponse(result any, id any) (*JsonRpcResponse, error) {
	resultJSON, err := marshalOptional(result)
	if err != nil {
		return nil, err
	}
	return &JsonRpcResponse{JsonRPC: JsonRpcVersion, Result: resultJSON, ID: id}, nil
}

// NewErrorResponse builds a JSON-RPC error response.
func NewErrorResponse(code int, message string, data any, id any) *JsonRpcResponse {
	return &JsonRpcResponse{
		JsonRPC: JsonRpcVersion,
		Error:   &JsonRpcError{Code: code, Message: message, Data: data},
		ID:      id,
	}
}

func marshalOptional(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Serialize renders a request or response to its wire form, appending no
// trailing newline (transports own framing).
func Serialize(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (r *JsonRpcRequest) String() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error marshaling request: %v", err)
	}
	return string(b)
}

func (r *JsonRpcResponse) String() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf("Error marshaling response: %v", err)
	}
	return string(b)
}
