package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/llm"
	"github.com/callwarden/callwarden/internal/logger"
	"github.com/callwarden/callwarden/internal/rules"
)

// HostedEvaluator is the capability the orchestrator needs from the hosted
// language-model adapter. Both evaluation paths yield the same normalized
// output type, so the orchestrator never special-cases either.
type HostedEvaluator interface {
	Available() bool
	Evaluate(ctx context.Context, metadataText, transcript, renderedCatalog string) (*llm.Response, error)
}

// Orchestrator is the single evaluation entrypoint for the surrounding
// application. It picks the hosted or deterministic path per call, degrades
// to deterministic on any hosted failure within the same invocation, and
// reports which path actually ran.
type Orchestrator struct {
	deterministic *DeterministicEvaluator
	hosted        HostedEvaluator
	sessions      *SessionManager
	logger        *logger.Logger

	// renderedCatalog is computed once; the catalog is immutable at runtime
	renderedCatalog string
}

// NewOrchestrator wires the two evaluator variants over a shared catalog.
// hosted may be nil, which pins every evaluation to the deterministic path.
func NewOrchestrator(catalog *rules.Catalog, hosted HostedEvaluator, sessions *SessionManager, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		deterministic:   NewDeterministicEvaluator(catalog, log),
		hosted:          hosted,
		sessions:        sessions,
		logger:          log.WithComponent("orchestrator"),
		renderedCatalog: catalog.RenderForPrompt(),
	}
}

// Sessions exposes the session manager for session-boundary operations
func (o *Orchestrator) Sessions() *SessionManager {
	return o.sessions
}

// Evaluate runs one evaluation of the transcript-so-far for the call named
// in the metadata. The session lock is held for the full invocation, so
// successive evaluations of the same call are strictly serialized.
func (o *Orchestrator) Evaluate(ctx context.Context, metadata CallMetadata, transcript string, useLLM bool) *Result {
	start := time.Now()

	session := o.sessions.getOrCreate(metadata.CallID)
	session.mu.Lock()
	defer session.mu.Unlock()
	session.lastUsed = start

	var output EvaluationOutput
	llmUsed := false

	if useLLM && o.hosted != nil && o.hosted.Available() {
		if hostedOut, err := o.evaluateHosted(ctx, metadata, transcript); err != nil {
			o.logger.Warn("Hosted evaluation failed, falling back to rules-only",
				zap.String("call_id", metadata.CallID),
				zap.Error(err),
			)
		} else {
			output = *hostedOut
			llmUsed = true
		}
	}

	if !llmUsed {
		output = o.deterministic.Evaluate(metadata, transcript, &session.state)
	}

	return &Result{
		Alerts:             output.Alerts,
		SuggestedNextLines: output.SuggestedNextLines,
		EvaluationTimeMs:   uint64(time.Since(start).Milliseconds()),
		LLMUsed:            llmUsed,
	}
}

// evaluateHosted delegates to the hosted adapter and normalizes its output
// into the shared schema, assigning fresh alert identifiers.
func (o *Orchestrator) evaluateHosted(ctx context.Context, metadata CallMetadata, transcript string) (*EvaluationOutput, error) {
	metadataText, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return nil, err
	}

	resp, err := o.hosted.Evaluate(ctx, string(metadataText), transcript, o.renderedCatalog)
	if err != nil {
		return nil, err
	}

	output := &EvaluationOutput{
		Alerts:             make([]Alert, 0, len(resp.Alerts)),
		SuggestedNextLines: make([]Suggestion, 0, len(resp.SuggestedNextLines)),
	}

	for _, a := range resp.Alerts {
		output.Alerts = append(output.Alerts, Alert{
			ID:         uuid.NewString(),
			RuleID:     a.RuleID,
			Title:      a.Title,
			Severity:   a.Severity,
			Confidence: a.Confidence,
			Evidence: Evidence{
				Quote:     a.Evidence.Quote,
				StartChar: a.Evidence.StartChar,
				EndChar:   a.Evidence.EndChar,
			},
			WhyItMatters:       a.WhyItMatters,
			AgentFixSuggestion: a.AgentFixSuggestion,
		})
	}

	for _, s := range resp.SuggestedNextLines {
		output.SuggestedNextLines = append(output.SuggestedNextLines, Suggestion{
			Text:       s.Text,
			Confidence: s.Confidence,
		})
	}

	return output, nil
}
