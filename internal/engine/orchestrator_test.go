package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/callwarden/callwarden/internal/llm"
	"github.com/callwarden/callwarden/internal/logger"
	"github.com/callwarden/callwarden/internal/rules"
)

// fakeHosted is a stub hosted evaluator for orchestrator tests
type fakeHosted struct {
	available bool
	response  *llm.Response
	err       error
	calls     int
}

func (f *fakeHosted) Available() bool { return f.available }

func (f *fakeHosted) Evaluate(ctx context.Context, metadataText, transcript, renderedCatalog string) (*llm.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newTestOrchestrator(t *testing.T, hosted HostedEvaluator) *Orchestrator {
	t.Helper()
	catalog, err := rules.Default()
	if err != nil {
		t.Fatalf("Failed to load default catalog: %v", err)
	}
	sessions := NewSessionManager(time.Hour, logger.Nop())
	return NewOrchestrator(catalog, hosted, sessions, logger.Nop())
}

func TestOrchestratorDeterministicPath(t *testing.T) {
	hosted := &fakeHosted{available: true}
	orchestrator := newTestOrchestrator(t, hosted)

	result := orchestrator.Evaluate(context.Background(), outboundMetadata(), "Please stop calling me", false)

	if result.LLMUsed {
		t.Error("LLMUsed should be false when the caller opts out")
	}
	if hosted.calls != 0 {
		t.Error("Hosted evaluator must not be invoked when useLLM is false")
	}
	if len(result.Alerts) != 1 || result.Alerts[0].RuleID != "DNC-001" {
		t.Errorf("Expected a single DNC-001 alert, got %+v", result.Alerts)
	}
}

func TestOrchestratorHostedPath(t *testing.T) {
	hosted := &fakeHosted{
		available: true,
		response: &llm.Response{
			Alerts: []llm.Alert{{
				RuleID:     "DNC-001",
				Title:      "Customer requested no further calls",
				Severity:   "high",
				Confidence: 92,
				Evidence:   llm.Evidence{Quote: "stop calling me", StartChar: 7, EndChar: 22},
			}},
			SuggestedNextLines: []llm.Suggestion{{Text: "Confirm DNC placement", Confidence: 88}},
		},
	}
	orchestrator := newTestOrchestrator(t, hosted)

	result := orchestrator.Evaluate(context.Background(), outboundMetadata(), "Please stop calling me", true)

	if !result.LLMUsed {
		t.Error("LLMUsed should be true on a successful hosted evaluation")
	}
	if len(result.Alerts) != 1 {
		t.Fatalf("Expected 1 normalized alert, got %d", len(result.Alerts))
	}
	if result.Alerts[0].ID == "" {
		t.Error("Normalization must assign a fresh alert identifier")
	}
	if result.Alerts[0].RuleID != "DNC-001" || result.Alerts[0].Confidence != 92 {
		t.Errorf("Hosted alert fields should pass through, got %+v", result.Alerts[0])
	}
	if len(result.SuggestedNextLines) != 1 || result.SuggestedNextLines[0].Text != "Confirm DNC placement" {
		t.Errorf("Hosted suggestions should pass through, got %+v", result.SuggestedNextLines)
	}
}

func TestOrchestratorFallback(t *testing.T) {
	t.Run("ProtocolErrorFallsBack", func(t *testing.T) {
		hosted := &fakeHosted{
			available: true,
			err:       &llm.ProtocolError{Reason: "model output failed schema"},
		}
		orchestrator := newTestOrchestrator(t, hosted)

		result := orchestrator.Evaluate(context.Background(), outboundMetadata(), "Please stop calling me", true)

		if result.LLMUsed {
			t.Error("LLMUsed must report the path actually taken after a fallback")
		}
		if hosted.calls != 1 {
			t.Errorf("Expected exactly one hosted attempt, got %d", hosted.calls)
		}
		if len(result.Alerts) != 1 || result.Alerts[0].RuleID != "DNC-001" {
			t.Errorf("Fallback should produce the deterministic alerts, got %+v", result.Alerts)
		}
	})

	t.Run("TransportErrorFallsBack", func(t *testing.T) {
		hosted := &fakeHosted{available: true, err: errors.New("connection refused")}
		orchestrator := newTestOrchestrator(t, hosted)

		result := orchestrator.Evaluate(context.Background(), outboundMetadata(), "Please stop calling me", true)
		if result.LLMUsed || len(result.Alerts) != 1 {
			t.Errorf("Expected deterministic fallback result, got llmUsed=%v alerts=%d", result.LLMUsed, len(result.Alerts))
		}
	})

	t.Run("UnavailableSkipsHostedEntirely", func(t *testing.T) {
		hosted := &fakeHosted{available: false}
		orchestrator := newTestOrchestrator(t, hosted)

		result := orchestrator.Evaluate(context.Background(), outboundMetadata(), "Please stop calling me", true)
		if result.LLMUsed {
			t.Error("LLMUsed should be false when the provider is unavailable")
		}
		if hosted.calls != 0 {
			t.Error("Hosted evaluator must not be invoked while unavailable")
		}
	})

	t.Run("NilHostedEvaluator", func(t *testing.T) {
		orchestrator := newTestOrchestrator(t, nil)

		result := orchestrator.Evaluate(context.Background(), outboundMetadata(), "Please stop calling me", true)
		if result.LLMUsed || len(result.Alerts) != 1 {
			t.Errorf("Nil hosted evaluator should pin the deterministic path, got llmUsed=%v", result.LLMUsed)
		}
	})
}

func TestOrchestratorHostedPathDoesNotMutateState(t *testing.T) {
	// Conversation state is mutated only by deterministic invocations, so a
	// hosted pass followed by a deterministic pass still alerts.
	hosted := &fakeHosted{
		available: true,
		response:  &llm.Response{Alerts: []llm.Alert{}, SuggestedNextLines: []llm.Suggestion{}},
	}
	orchestrator := newTestOrchestrator(t, hosted)
	metadata := outboundMetadata()

	orchestrator.Evaluate(context.Background(), metadata, "Please stop calling me", true)

	result := orchestrator.Evaluate(context.Background(), metadata, "Please stop calling me", false)
	if len(result.Alerts) != 1 {
		t.Errorf("Deterministic pass after a hosted pass should still alert, got %d", len(result.Alerts))
	}
}

func TestOrchestratorSessionBoundaries(t *testing.T) {
	orchestrator := newTestOrchestrator(t, nil)
	metadata := outboundMetadata()
	ctx := context.Background()

	first := orchestrator.Evaluate(ctx, metadata, "Please stop calling me", false)
	if len(first.Alerts) != 1 {
		t.Fatalf("Expected 1 alert, got %d", len(first.Alerts))
	}

	// Same call: the fired ledger suppresses a repeat
	repeat := orchestrator.Evaluate(ctx, metadata, "Please stop calling me", false)
	if len(repeat.Alerts) != 0 {
		t.Errorf("Expected no repeat alerts within a session, got %d", len(repeat.Alerts))
	}

	// A different call has independent state
	other := metadata
	other.CallID = "call-2"
	second := orchestrator.Evaluate(ctx, other, "Please stop calling me", false)
	if len(second.Alerts) != 1 {
		t.Errorf("Expected independent state for a different call, got %d alerts", len(second.Alerts))
	}

	// Restarting the session clears the ledger
	orchestrator.Sessions().StartSession(metadata.CallID)
	restarted := orchestrator.Evaluate(ctx, metadata, "Please stop calling me", false)
	if len(restarted.Alerts) != 1 {
		t.Errorf("Expected alert after session restart, got %d", len(restarted.Alerts))
	}
}
