package engine

// CallMetadata carries the structured context for one call session
type CallMetadata struct {
	CallID          string  `json:"call_id"`
	AgentID         string  `json:"agent_id"`
	AgentName       string  `json:"agent_name"`
	CallStartTime   string  `json:"call_start_time"`
	CallerTimezone  *string `json:"caller_timezone,omitempty"`
	CustomerPhone   *string `json:"customer_phone,omitempty"`
	IsDNCListed     bool    `json:"is_dnc_listed"`
	HasPriorConsent bool    `json:"has_prior_consent"`
	IsPrerecorded   bool    `json:"is_prerecorded"`
	CallType        string  `json:"call_type"`
}

// Evidence is the transcript span justifying an alert
type Evidence struct {
	Quote     string `json:"quote"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// Alert is a single compliance finding
type Alert struct {
	ID                 string   `json:"id"`
	RuleID             string   `json:"rule_id"`
	Title              string   `json:"title"`
	Severity           string   `json:"severity"`
	Confidence         int      `json:"confidence"`
	Evidence           Evidence `json:"evidence"`
	WhyItMatters       string   `json:"why_it_matters"`
	AgentFixSuggestion string   `json:"agent_fix_suggestion"`
}

// Suggestion is a compliant next line proposed to the agent
type Suggestion struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence"`
}

// EvaluationOutput is the raw output of one evaluator pass
type EvaluationOutput struct {
	Alerts             []Alert      `json:"alerts"`
	SuggestedNextLines []Suggestion `json:"suggested_next_lines"`
}

// Result is the normalized output returned to callers, including which
// engine actually produced it and how long the chosen path took.
type Result struct {
	Alerts             []Alert      `json:"alerts"`
	SuggestedNextLines []Suggestion `json:"suggested_next_lines"`
	EvaluationTimeMs   uint64       `json:"evaluation_time_ms"`
	LLMUsed            bool         `json:"llm_used"`
}

// maxSuggestions caps the suggestion list per evaluation
const maxSuggestions = 3
