package engine

import (
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/logger"
	"github.com/callwarden/callwarden/internal/rules"
)

const (
	confidenceTrigger  = 90
	confidenceRegex    = 85
	confidenceMetadata = 95

	// Evidence lookahead windows past the match, in bytes
	triggerContextWindow = 30
	regexContextWindow   = 20

	suggestionConfidenceRule       = 85
	suggestionConfidenceContextual = 80

	// Contextual disclosure suggestions only make sense once the call has
	// progressed past its opening seconds.
	contextualSuggestionMinTranscript = 100
)

// DeterministicEvaluator is the rule-driven fallback engine. It is a pure
// transformation of (metadata, transcript, catalog, state) except for the
// declared mutation of state; callers serialize access per session.
type DeterministicEvaluator struct {
	catalog *rules.Catalog
	logger  *logger.Logger
}

// NewDeterministicEvaluator creates a deterministic evaluator over a catalog
func NewDeterministicEvaluator(catalog *rules.Catalog, log *logger.Logger) *DeterministicEvaluator {
	return &DeterministicEvaluator{
		catalog: catalog,
		logger:  log.WithComponent("evaluator"),
	}
}

// Evaluate scans the full transcript against every enabled rule in catalog
// order. Rules that already alerted in this conversation are skipped, so
// repeated calls on a growing transcript never re-emit a fired rule id.
func (e *DeterministicEvaluator) Evaluate(metadata CallMetadata, transcript string, state *ConversationState) EvaluationOutput {
	alerts := make([]Alert, 0)
	suggestions := make([]Suggestion, 0)

	lowered := lowerTranscript(transcript)

	for _, rule := range e.catalog.Enabled() {
		if state.HasFired(rule.ID) {
			continue
		}

		alert := e.checkRule(metadata, transcript, lowered, rule, state)
		if alert == nil {
			continue
		}

		state.markFired(alert.RuleID)

		if rule.RecommendedFix != "" {
			suggestions = append(suggestions, Suggestion{
				Text:       rule.RecommendedFix,
				Confidence: suggestionConfidenceRule,
			})
		}

		alerts = append(alerts, *alert)
	}

	// Contextual suggestions for disclosures still missing mid-call
	if metadata.CallType == "outbound_sales" && len(transcript) > contextualSuggestionMinTranscript {
		if !state.SellerIdentified {
			suggestions = append(suggestions, Suggestion{
				Text:       "Identify yourself and your company: 'Hi, my name is [Name] calling from [Company Name].'",
				Confidence: suggestionConfidenceContextual,
			})
		}

		if !state.SalesPurposeStated {
			suggestions = append(suggestions, Suggestion{
				Text:       "Disclose the sales purpose: 'I'm calling today with a special offer for you.'",
				Confidence: suggestionConfidenceContextual,
			})
		}
	}

	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	return EvaluationOutput{
		Alerts:             alerts,
		SuggestedNextLines: suggestions,
	}
}

// checkRule evaluates one rule against the transcript and state. It returns
// nil when the rule does not alert; state side effects may still have been
// applied (presence detectors set their flag without alerting). Match
// positions come from the folded scan text and are mapped back to the
// original transcript before slicing.
func (e *DeterministicEvaluator) checkRule(metadata CallMetadata, transcript string, lowered *loweredTranscript, rule rules.Rule, state *ConversationState) *Alert {
	if rule.RequiresMetadata {
		return e.checkMetadataRule(metadata, rule)
	}

	// Trigger phrases first, in declared order
	for _, trigger := range rule.Triggers {
		pos := strings.Index(lowered.text, strings.ToLower(trigger))
		if pos < 0 {
			continue
		}

		startPos, endPos := lowered.span(pos, pos+len(trigger))
		contextEnd := evidenceEnd(transcript, endPos, triggerContextWindow)
		quote := strings.TrimSpace(transcript[startPos:contextEnd])

		return e.applyEffects(rule, state, Evidence{
			Quote:     quote,
			StartChar: startPos,
			EndChar:   endPos,
		}, confidenceTrigger)
	}

	// Then regex patterns, in declared order
	for _, re := range e.catalog.Patterns(rule.ID) {
		loc := re.FindStringIndex(lowered.text)
		if loc == nil {
			continue
		}

		startPos, endPos := lowered.span(loc[0], loc[1])
		contextEnd := evidenceEnd(transcript, endPos, regexContextWindow)
		quote := strings.TrimSpace(transcript[startPos:contextEnd])

		return e.applyEffects(rule, state, Evidence{
			Quote:     quote,
			StartChar: startPos,
			EndChar:   endPos,
		}, confidenceRegex)
	}

	return nil
}

// applyEffects runs the rule's side-effect entry and decides whether the
// match becomes an alert.
func (e *DeterministicEvaluator) applyEffects(rule rules.Rule, state *ConversationState, evidence Evidence, confidence int) *Alert {
	effect := ruleEffects[rule.ID]

	if effect.GateOn != flagNone && !state.flagSet(effect.GateOn) {
		// Gated match: no alert, no fired mark, rule stays eligible
		e.logger.Debug("Rule match suppressed by gate", zap.String("rule_id", rule.ID))
		return nil
	}

	if effect.Set != flagNone {
		state.setFlag(effect.Set)
	}

	if effect.DetectOnly {
		return nil
	}

	return &Alert{
		ID:                 uuid.NewString(),
		RuleID:             rule.ID,
		Title:              rule.Title,
		Severity:           string(rule.Severity),
		Confidence:         confidence,
		Evidence:           evidence,
		WhyItMatters:       rule.WhyItMatters,
		AgentFixSuggestion: rule.RecommendedFix,
	}
}

// checkMetadataRule evaluates rules driven purely by call metadata
func (e *DeterministicEvaluator) checkMetadataRule(metadata CallMetadata, rule rules.Rule) *Alert {
	switch rule.ID {
	case "TIME-001":
		// Calling-time window check is not implemented yet: it needs the
		// consumer's local time, which the metadata does not reliably carry.
		// Declared so the catalog and prompt still surface it.
		e.logger.Debug("TIME-001 check not implemented, skipping")
		return nil

	case "DNC-003":
		if metadata.IsDNCListed && !metadata.HasPriorConsent {
			return e.metadataAlert(rule, "Number is on National DNC Registry (metadata flag)")
		}
		return nil

	case "PREC-001":
		if metadata.IsPrerecorded && !metadata.HasPriorConsent {
			return e.metadataAlert(rule, "Using prerecorded/artificial voice without consent (metadata flag)")
		}
		return nil
	}

	return nil
}

func (e *DeterministicEvaluator) metadataAlert(rule rules.Rule, quote string) *Alert {
	return &Alert{
		ID:                 uuid.NewString(),
		RuleID:             rule.ID,
		Title:              rule.Title,
		Severity:           string(rule.Severity),
		Confidence:         confidenceMetadata,
		Evidence:           Evidence{Quote: quote},
		WhyItMatters:       rule.WhyItMatters,
		AgentFixSuggestion: rule.RecommendedFix,
	}
}
