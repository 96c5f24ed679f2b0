package engine

import (
	"testing"
	"time"

	"github.com/callwarden/callwarden/internal/logger"
)

func TestSessionManager(t *testing.T) {
	t.Run("StartSessionIsIdempotent", func(t *testing.T) {
		manager := NewSessionManager(time.Hour, logger.Nop())

		session := manager.StartSession("call-1")
		session.state.markFired("DNC-001")
		session.state.DNCRequested = true

		again := manager.StartSession("call-1")
		if again != session {
			t.Error("Restarting a session should reuse the same session object")
		}
		if again.state.HasFired("DNC-001") || again.state.DNCRequested {
			t.Error("Restarting a session should zero its state")
		}
		if manager.ActiveSessions() != 1 {
			t.Errorf("Expected 1 active session, got %d", manager.ActiveSessions())
		}
	})

	t.Run("EndSessionDiscards", func(t *testing.T) {
		manager := NewSessionManager(time.Hour, logger.Nop())

		manager.StartSession("call-1")
		manager.EndSession("call-1")
		if manager.ActiveSessions() != 0 {
			t.Errorf("Expected 0 active sessions after end, got %d", manager.ActiveSessions())
		}

		// Ending an unknown session is a no-op
		manager.EndSession("call-unknown")
	})

	t.Run("ResetSessionClearsState", func(t *testing.T) {
		manager := NewSessionManager(time.Hour, logger.Nop())

		session := manager.StartSession("call-1")
		session.state.ConsentRevoked = true
		session.state.markFired("CONS-001")

		manager.ResetSession("call-1")
		if session.state.ConsentRevoked || session.state.HasFired("CONS-001") {
			t.Error("ResetSession should zero the conversation state")
		}
	})

	t.Run("LazySessionCreation", func(t *testing.T) {
		manager := NewSessionManager(time.Hour, logger.Nop())

		session := manager.getOrCreate("call-2")
		if session == nil {
			t.Fatal("getOrCreate should create a session on demand")
		}
		if manager.getOrCreate("call-2") != session {
			t.Error("getOrCreate should return the existing session")
		}
	})

	t.Run("SessionsAreIsolated", func(t *testing.T) {
		manager := NewSessionManager(time.Hour, logger.Nop())

		first := manager.StartSession("call-1")
		second := manager.StartSession("call-2")

		first.state.DNCRequested = true
		if second.state.DNCRequested {
			t.Error("State must never be shared across sessions")
		}
	})

	t.Run("CleanupEvictsIdleSessions", func(t *testing.T) {
		manager := NewSessionManager(10*time.Millisecond, logger.Nop())

		manager.StartSession("call-1")
		time.Sleep(25 * time.Millisecond)
		manager.CleanupIdleSessions()

		if manager.ActiveSessions() != 0 {
			t.Errorf("Idle session should be evicted, %d remain", manager.ActiveSessions())
		}
	})
}
