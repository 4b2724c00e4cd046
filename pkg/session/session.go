// Package session tracks SAIQL execution sessions: per-session state,
// activity timestamps, and query counters, plus a background reaper that
// evicts sessions idle past a configured timeout.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is a session's lifecycle stage.
type State string

const (
	StateCreated   State = "CREATED"
	StateActive    State = "ACTIVE"
	StatePaused    State = "PAUSED"
	StateCompleted State = "COMPLETED"
	StateError     State = "ERROR"
)

// Context carries the caller-supplied parameters a session is opened
// with.
type Context struct {
	UserID      string
	DatabaseURL string
	TimeoutSec  int
	MaxMemoryMB int
	Debug       bool
	Metadata    map[string]any
}

// Session is one tracked execution session.
type Session struct {
	ID                 string
	Context            Context
	State              State
	CreatedAt          time.Time
	LastActivity       time.Time
	QueryCount         int
	TotalExecutionTime time.Duration
}

// Manager owns the set of live sessions and reaps idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewManager constructs an empty session Manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Create opens a new session for ctx under a freshly generated uuid;
// ctx.Metadata is not consulted for an id.
func (m *Manager) Create(ctx Context) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	now := time.Now()
	s := &Session{
		ID:           id,
		Context:      ctx,
		State:        StateCreated,
		CreatedAt:    now,
		LastActivity: now,
	}
	m.sessions[id] = s
	return s
}

// Get returns the session for id, if it exists.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// RecordQuery updates a session's counters after a query executes against
// it, bumping LastActivity so the reaper won't consider it idle.
func (m *Manager) RecordQuery(id string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	s.QueryCount++
	s.TotalExecutionTime += elapsed
	s.LastActivity = time.Now()
	s.State = StateActive
}

// Close marks a session completed but leaves it in the map until the
// reaper (or an explicit Remove) clears it, so late stat reads still see
// a final state.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.State = StateCompleted
	}
}

// Remove deletes a session outright.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ReapIdle removes every session whose LastActivity is older than
// maxAge, returning how many were removed.
func (m *Manager) ReapIdle(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, s := range m.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartReaper runs ReapIdle on interval until StopReaper is called, in its own
// goroutine. Calling StartReaper more than once on the same Manager is a
// programmer error (the second call's stop/done channels would shadow the
// first's); construct one Manager per reaper loop.
func (m *Manager) StartReaper(interval, maxAge time.Duration) {
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go func() {
		defer close(m.doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.ReapIdle(maxAge)
			case <-m.stopCh:
				return
			}
		}
	}()
}

// StopReaper signals the reaper goroutine to exit and waits for it.
func (m *Manager) StopReaper() {
	if m.stopCh == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stopCh) })
	<-m.doneCh
}
