package protocol

import "sync"

// HandshakeState is one node of the C4 state machine described in §4.3.
type HandshakeState int

const (
	StateUninitialized HandshakeState = iota
	StateInitializing
	StateInitialized
	StateReady
	StateError
	StateShutdown
)

func (s HandshakeState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	case StateShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// HandshakeEvent names one of the transitions in the §4.3 transition table.
type HandshakeEvent int

const (
	EventInitializeRequest HandshakeEvent = iota
	EventInitializeResponseSent
	EventInitializedNotification
	EventAnyMessage
	EventFatalError
	EventShutdown
)

// Handshake tracks the negotiated state of one connection's MCP lifecycle.
// The dispatch methods that consult it (initialize/ping/notifications) are
// accepted regardless of state per §4.3's "non-strict handshake" rule —
// Handshake itself only records state, it never gates dispatch.
type Handshake struct {
	mu    sync.Mutex
	state HandshakeState

	ProtocolVersion string
	ClientInfo      ClientInfo
	Capabilities    ClientCapabilities
}

func NewHandshake() *Handshake {
	return &Handshake{state: StateUninitialized}
}

func (h *Handshake) State() HandshakeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Fire applies event to the handshake, following the transition table. Events
// with no defined transition from the current state are no-ops, matching the
// non-strict handshake rule ("state is informational").
func (h *Handshake) Fire(event HandshakeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch event {
	case EventInitializeRequest:
		if h.state == StateUninitialized || h.state == StateError {
			h.state = StateInitializing
		}
	case EventInitializeResponseSent:
		if h.state == StateInitializing {
			h.state = StateInitialized
		}
	case EventInitializedNotification:
		if h.state == StateInitialized {
			h.state = StateReady
		}
	case EventAnyMessage:
		if h.state == StateReady {
			h.state = StateReady
		}
	case EventFatalError:
		h.state = StateError
	case EventShutdown:
		h.state = StateShutdown
	}
}

// RecordInitialize stashes the negotiated client-side fields from an
// initialize request's params.
func (h *Handshake) RecordInitialize(params InitializeParams) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ProtocolVersion = params.ProtocolVersion
	h.ClientInfo = params.ClientInfo
	h.Capabilities = params.Capabilities
}
