package engine

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/logger"
)

// Session owns the conversation state for one call. The mutex is held for
// the full duration of an evaluation, so evaluations for the same call are
// strictly serialized while unrelated calls proceed in parallel.
type Session struct {
	CallID string

	mu       sync.Mutex
	state    ConversationState
	lastUsed time.Time
}

// SessionManager tracks one session per active call id
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	logger   *logger.Logger
}

// NewSessionManager creates a session manager. Sessions idle longer than ttl
// are eligible for cleanup.
func NewSessionManager(ttl time.Duration, log *logger.Logger) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		logger:   log.WithComponent("sessions"),
	}
}

// StartSession creates (or zeroes) the session for a call. Idempotent: a
// second start for the same call id just resets its state.
func (m *SessionManager) StartSession(callID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[callID]
	if !exists {
		session = &Session{CallID: callID, state: *NewConversationState(), lastUsed: time.Now()}
		m.sessions[callID] = session
	} else {
		session.mu.Lock()
		session.state.Reset()
		session.lastUsed = time.Now()
		session.mu.Unlock()
	}

	m.logger.Info("Call session started", zap.String("call_id", callID))
	return session
}

// EndSession discards the session for a call
func (m *SessionManager) EndSession(callID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[callID]; exists {
		delete(m.sessions, callID)
		m.logger.Info("Call session ended", zap.String("call_id", callID))
	}
}

// ResetSession zeroes a session's conversation state without a session
// boundary event, for manual re-sync.
func (m *SessionManager) ResetSession(callID string) {
	session := m.getOrCreate(callID)
	session.mu.Lock()
	session.state.Reset()
	session.mu.Unlock()

	m.logger.Info("Call session state reset", zap.String("call_id", callID))
}

// ActiveSessions returns the number of tracked sessions
func (m *SessionManager) ActiveSessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// getOrCreate returns the session for a call id, creating a zeroed one when
// evaluation starts before an explicit session start.
func (m *SessionManager) getOrCreate(callID string) *Session {
	m.mu.RLock()
	session, exists := m.sessions[callID]
	m.mu.RUnlock()

	if exists {
		return session
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if session, exists := m.sessions[callID]; exists {
		return session
	}

	session = &Session{CallID: callID, state: *NewConversationState(), lastUsed: time.Now()}
	m.sessions[callID] = session
	return session
}

// CleanupIdleSessions removes sessions idle longer than the configured TTL
func (m *SessionManager) CleanupIdleSessions() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-m.ttl)
	for callID, session := range m.sessions {
		session.mu.Lock()
		idle := session.lastUsed.Before(cutoff)
		session.mu.Unlock()
		if idle {
			delete(m.sessions, callID)
			m.logger.Info("Idle call session evicted", zap.String("call_id", callID))
		}
	}
}

// StartCleanupRoutine starts a background routine that evicts idle sessions
func (m *SessionManager) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			m.CleanupIdleSessions()
		}
	}()
}
