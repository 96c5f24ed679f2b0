package engine

// stateFlag names one boolean fact in ConversationState
type stateFlag int

const (
	flagNone stateFlag = iota
	flagDNCRequested
	flagConsentRevoked
	flagSellerIdentified
	flagSalesPurposeStated
	flagProductDescribed
	flagCallbackProvided
	flagRecordingDisclosed
)

// ruleEffect describes what a transcript match on a rule does to the
// conversation state, and whether it may alert at all. Rules absent from the
// table alert with no side effect.
type ruleEffect struct {
	// Set is applied to the state on every accepted match.
	Set stateFlag
	// GateOn suppresses the alert until the named flag is already set. A
	// gated match leaves no trace: the rule stays eligible for later turns.
	GateOn stateFlag
	// DetectOnly marks a presence detector: the match sets its flag and
	// never alerts. Used by the missing-disclosure rules, whose only job is
	// silencing the contextual suggestions.
	DetectOnly bool
}

var ruleEffects = map[string]ruleEffect{
	"DNC-001":   {Set: flagDNCRequested},
	"DNC-002":   {GateOn: flagDNCRequested},
	"CONS-001":  {Set: flagConsentRevoked},
	"DISC-001":  {Set: flagSellerIdentified, DetectOnly: true},
	"DISC-002":  {Set: flagSalesPurposeStated, DetectOnly: true},
	"DISC-003":  {Set: flagProductDescribed, DetectOnly: true},
	"IDENT-001": {Set: flagCallbackProvided, DetectOnly: true},
	"REC-001":   {Set: flagRecordingDisclosed, DetectOnly: true},
}

func (s *ConversationState) setFlag(f stateFlag) {
	switch f {
	case flagDNCRequested:
		s.DNCRequested = true
	case flagConsentRevoked:
		s.ConsentRevoked = true
	case flagSellerIdentified:
		s.SellerIdentified = true
	case flagSalesPurposeStated:
		s.SalesPurposeStated = true
	case flagProductDescribed:
		s.ProductDescribed = true
	case flagCallbackProvided:
		s.CallbackProvided = true
	case flagRecordingDisclosed:
		s.RecordingDisclosed = true
	}
}

func (s *ConversationState) flagSet(f stateFlag) bool {
	switch f {
	case flagDNCRequested:
		return s.DNCRequested
	case flagConsentRevoked:
		return s.ConsentRevoked
	case flagSellerIdentified:
		return s.SellerIdentified
	case flagSalesPurposeStated:
		return s.SalesPurposeStated
	case flagProductDescribed:
		return s.ProductDescribed
	case flagCallbackProvided:
		return s.CallbackProvided
	case flagRecordingDisclosed:
		return s.RecordingDisclosed
	}
	return false
}
