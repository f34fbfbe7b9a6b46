// Package transport implements the C9 transports: a line-delimited stdio
// channel and an HTTP endpoint, both driving a shared protocol.Engine.
package transport

import (
	"context"
	"sync"

	"github.com/richard-senior/mcp-runtime/pkg/protocol"
)

// State is a node of the §4.7 transport state machine:
// Stopped -> Starting -> Running -> Stopping -> Stopped, with an Error sink.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateError
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Transport is the capability set a framing implementation exposes to the
// host façade, replacing the function-pointer HAL transport record.
type Transport interface {
	// Start begins serving, blocking until ctx is cancelled or the
	// transport ends (an unrecoverable error, EOF on stdio, or, for HTTP,
	// a call to Stop).
	Start(ctx context.Context, engine *protocol.Engine) error
	Stop() error
	State() State
}

// stateMachine is embedded by concrete transports to share the Stopped ->
// Starting -> Running -> Stopping -> Stopped bookkeeping.
type stateMachine struct {
	mu    sync.Mutex
	state State
}

func (m *stateMachine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *stateMachine) set(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// transitionStart moves Stopped -> Starting and reports true; from any
// other state it changes nothing and reports false.
func (m *stateMachine) transitionStart() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateStopped {
		return false
	}
	m.state = StateStarting
	return true
}
