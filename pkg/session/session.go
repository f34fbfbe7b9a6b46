// Package session implements the session manager (C8): a fixed-capacity
// table of concurrent sessions with UUIDv4 identifiers, reference counting,
// and a periodic expiry sweeper.
package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/richard-senior/mcp-runtime/pkg/protocol"
)

// State is one node of a session's lifecycle, per §3's Session data model.
type State int

const (
	StateCreated State = iota
	StateInitializing
	StateActive
	StateInactive
	StateExpired
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateExpired:
		return "expired"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Stats accumulates simple per-session counters referenced by the
// Session.stats field of §3's data model.
type Stats struct {
	RequestsHandled int64
	ToolCallsMade   int64
}

// Session is a handshake-established logical context correlated across
// HTTP requests by the Mcp-Session-Id header. A stdio connection creates no
// Session; it drives the engine's own handshake instead.
type Session struct {
	mu sync.Mutex

	ID              string
	State           State
	CreatedTime     time.Time
	LastActivity    time.Time
	ExpiresAt       time.Time
	ClientName      string
	ClientVersion   string
	ProtocolVersion string
	Capabilities    protocol.ClientCapabilities
	Stats           Stats

	// Handshake is this session's own C4 state machine. An HTTP transport
	// dispatches every request carrying this session's id through it, so
	// concurrent sessions never observe or advance each other's handshake.
	Handshake *protocol.Handshake

	refcount int32
}

// Touch records activity and extends ExpiresAt by timeout from now,
// matching the sweeper's "last_activity + session_timeout < now" check.
func (s *Session) Touch(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActivity = time.Now()
	s.ExpiresAt = s.LastActivity.Add(timeout)
	if s.State == StateCreated {
		s.State = StateActive
	}
}

func (s *Session) SetState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.State = state
}

func (s *Session) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.After(s.ExpiresAt)
}

// ref increments the strong-reference count; the manager holds one from
// creation, Find adds another that the caller must release via unref.
func (s *Session) ref() int32 { return atomic.AddInt32(&s.refcount, 1) }

// unref decrements the reference count, returning true iff it reached zero
// (the caller is then responsible for final cleanup/destruction).
func (s *Session) unref() bool { return atomic.AddInt32(&s.refcount, -1) == 0 }
