package session

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidUUIDv4(t *testing.T) {
	assert.True(t, ValidUUIDv4(uuid.NewString()))
	assert.False(t, ValidUUIDv4("not-a-uuid"))
	assert.False(t, ValidUUIDv4("00000000-0000-1000-8000-000000000000"), "version nibble must be 4")
}

func TestCreateMintsValidUUIDWhenIDEmpty(t *testing.T) {
	m := NewManager(10, time.Hour, time.Minute, nil)
	s, err := m.Create("")
	require.NoError(t, err)
	assert.True(t, ValidUUIDv4(s.ID))
	assert.Equal(t, StateCreated, s.CurrentState())
}

func TestCreateRejectsInvalidID(t *testing.T) {
	m := NewManager(10, time.Hour, time.Minute, nil)
	_, err := m.Create("not-a-uuid")
	assert.Error(t, err)
}

func TestCreateRejectsDuplicateID(t *testing.T) {
	m := NewManager(10, time.Hour, time.Minute, nil)
	id := uuid.NewString()
	_, err := m.Create(id)
	require.NoError(t, err)

	_, err = m.Create(id)
	assert.Error(t, err)
}

func TestCreateEnforcesCapacity(t *testing.T) {
	m := NewManager(1, time.Hour, time.Minute, nil)
	_, err := m.Create("")
	require.NoError(t, err)

	_, err = m.Create("")
	assert.Error(t, err)
}

func TestFindAndReleaseBalanceRefcount(t *testing.T) {
	m := NewManager(10, time.Hour, time.Minute, nil)
	created, err := m.Create("")
	require.NoError(t, err)

	found, ok := m.Find(created.ID)
	require.True(t, ok)
	assert.Equal(t, created.ID, found.ID)

	m.Release(found)
	assert.Equal(t, 1, m.Count(), "releasing the Find reference leaves the manager's own reference intact")
}

func TestSweeperExpiresSessionsWithinOneInterval(t *testing.T) {
	m := NewManager(10, 10*time.Millisecond, 5*time.Millisecond, nil)
	_, err := m.Create("")
	require.NoError(t, err)
	require.Equal(t, 1, m.Count())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartSweeper(ctx)
	defer m.Stop()

	assert.Eventually(t, func() bool {
		return m.Count() == 0
	}, 500*time.Millisecond, 5*time.Millisecond)
}

func TestCreateGivesEachSessionItsOwnHandshake(t *testing.T) {
	m := NewManager(10, time.Hour, time.Minute, nil)
	a, err := m.Create("")
	require.NoError(t, err)
	b, err := m.Create("")
	require.NoError(t, err)

	require.NotNil(t, a.Handshake)
	require.NotNil(t, b.Handshake)
	assert.NotSame(t, a.Handshake, b.Handshake)
}

func TestManagerTouchExtendsExpiryUsingConfiguredTimeout(t *testing.T) {
	m := NewManager(10, time.Hour, time.Minute, nil)
	s, err := m.Create("")
	require.NoError(t, err)

	before := s.ExpiresAt
	time.Sleep(time.Millisecond)
	m.Touch(s)

	assert.True(t, s.ExpiresAt.After(before))
}

func TestSessionTouchActivatesAndExtendsExpiry(t *testing.T) {
	m := NewManager(10, time.Hour, time.Minute, nil)
	s, err := m.Create("")
	require.NoError(t, err)

	before := s.ExpiresAt
	time.Sleep(time.Millisecond)
	s.Touch(time.Hour)

	assert.Equal(t, StateActive, s.CurrentState())
	assert.True(t, s.ExpiresAt.After(before))
}
