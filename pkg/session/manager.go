package session

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richard-senior/mcp-runtime/internal/logger"
	"github.com/richard-senior/mcp-runtime/pkg/protocol"
)

var uuidV4RE = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-4[0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

// ValidUUIDv4 reports whether id is an 8-4-4-4-12 hex UUID with the version
// and variant nibbles of UUIDv4, per §4.6's create contract.
func ValidUUIDv4(id string) bool {
	return uuidV4RE.MatchString(id)
}

// Manager is the C8 session table: fixed-capacity (MaxSessions), keyed by
// session id, guarded by a reader-writer lock. The original's open array
// with an O(N) duplicate scan is replaced by a map per the tool registry's
// same keyed-container translation — a generated UUIDv4 collision is
// astronomically unlikely regardless of scan strategy.
type Manager struct {
	mu              sync.RWMutex
	sessions        map[string]*Session
	maxSessions     int
	defaultTimeout  time.Duration
	cleanupInterval time.Duration
	audit           *AuditLog

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewManager(maxSessions int, defaultTimeout, cleanupInterval time.Duration, audit *AuditLog) *Manager {
	if maxSessions <= 0 {
		maxSessions = 10
	}
	if defaultTimeout <= 0 {
		defaultTimeout = time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 30 * time.Second
	}
	return &Manager{
		sessions:        map[string]*Session{},
		maxSessions:     maxSessions,
		defaultTimeout:  defaultTimeout,
		cleanupInterval: cleanupInterval,
		audit:           audit,
	}
}

// Create validates or mints a session id and inserts a new Created session
// with refcount=1 (the manager's own strong reference).
func (m *Manager) Create(id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	} else if !ValidUUIDv4(id) {
		return nil, fmt.Errorf("session id %q is not a valid UUIDv4", id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, fmt.Errorf("session %q already exists", id)
	}
	if len(m.sessions) >= m.maxSessions {
		return nil, fmt.Errorf("session table at capacity (%d)", m.maxSessions)
	}

	now := time.Now()
	s := &Session{
		ID:           id,
		State:        StateCreated,
		CreatedTime:  now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.defaultTimeout),
		Handshake:    protocol.NewHandshake(),
		refcount:     1,
	}
	m.sessions[id] = s
	logger.Info("session created %s", id)
	m.auditEvent("create", id)
	return s, nil
}

// Find returns the session under id with an additional strong reference;
// the caller must call Release when done.
func (m *Manager) Find(id string) (*Session, bool) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	s.ref()
	return s, true
}

// Touch extends s's expiry using the manager's own configured session
// timeout, the form an HTTP transport calls once per request against the
// session its Mcp-Session-Id header resolved to.
func (m *Manager) Touch(s *Session) {
	s.Touch(m.defaultTimeout)
}

// Release drops the caller's reference taken via Find, destroying the
// session if it was the last one outstanding.
func (m *Manager) Release(s *Session) {
	if s.unref() {
		m.destroy(s)
	}
}

func (m *Manager) destroy(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s.ID)
	m.mu.Unlock()
	s.SetState(StateTerminated)
	logger.Info("session destroyed %s", s.ID)
	m.auditEvent("terminate", s.ID)
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartSweeper runs the §4.6 expiry sweeper until ctx is cancelled or Stop
// is called. It holds the write lock only while detaching expired slots,
// dropping it before running each session's termination/unref so Find is
// never blocked for the duration.
func (m *Manager) StartSweeper(ctx context.Context) {
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(m.cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *Manager) sweep() {
	now := time.Now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.expired(now) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.SetState(StateExpired)
		logger.Info("session swept (expired) %s", s.ID)
		m.auditEvent("expire", s.ID)
		if s.unref() {
			s.SetState(StateTerminated)
			m.auditEvent("terminate", s.ID)
		}
	}
}

// Stop halts the sweeper goroutine, if one was started, and waits for it to exit.
func (m *Manager) Stop() {
	if m.stopCh == nil {
		return
	}
	close(m.stopCh)
	<-m.doneCh
}

func (m *Manager) auditEvent(event, sessionID string) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Record(event, sessionID, time.Now()); err != nil {
		logger.Warn("session audit log write failed", err)
	}
}
