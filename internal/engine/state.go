package engine

// ConversationState accumulates cross-turn facts for one call session. It is
// mutated only by the deterministic evaluator; callers reach it through the
// owning session's lock.
type ConversationState struct {
	DNCRequested   bool
	ConsentRevoked bool

	SellerIdentified   bool
	SalesPurposeStated bool
	ProductDescribed   bool
	CallbackProvided   bool
	RecordingDisclosed bool

	firedRuleIDs map[string]bool
}

// NewConversationState returns a zeroed state ready for a new call
func NewConversationState() *ConversationState {
	return &ConversationState{firedRuleIDs: make(map[string]bool)}
}

// Reset clears every flag and the fired-rule ledger. Idempotent.
func (s *ConversationState) Reset() {
	*s = ConversationState{firedRuleIDs: make(map[string]bool)}
}

// HasFired reports whether a rule id has already produced an alert in this
// conversation.
func (s *ConversationState) HasFired(ruleID string) bool {
	return s.firedRuleIDs[ruleID]
}

// markFired records that a rule produced an alert. A rule enters the ledger
// if and only if it alerted; once present it stays excluded until Reset.
func (s *ConversationState) markFired(ruleID string) {
	if s.firedRuleIDs == nil {
		s.firedRuleIDs = make(map[string]bool)
	}
	s.firedRuleIDs[ruleID] = true
}

// FiredRuleIDs returns a copy of the fired-rule ledger
func (s *ConversationState) FiredRuleIDs() []string {
	ids := make([]string, 0, len(s.firedRuleIDs))
	for id := range s.firedRuleIDs {
		ids = append(ids, id)
	}
	return ids
}
