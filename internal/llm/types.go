package llm

// Response is the strict output contract the hosted model must honor. It
// mirrors the engine's evaluation output minus alert identifiers, which the
// orchestrator assigns during normalization.
type Response struct {
	Alerts             []Alert      `json:"alerts"`
	SuggestedNextLines []Suggestion `json:"suggested_next_lines"`
}

// Alert is one model-reported compliance finding
type Alert struct {
	RuleID             string   `json:"rule_id"`
	Title              string   `json:"title"`
	Severity           string   `json:"severity"`
	Confidence         int      `json:"confidence"`
	Evidence           Evidence `json:"evidence"`
	WhyItMatters       string   `json:"why_it_matters"`
	AgentFixSuggestion string   `json:"agent_fix_suggestion"`
}

// Evidence is the model-quoted transcript span
type Evidence struct {
	Quote     string `json:"quote"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// Suggestion is one model-proposed next line
type Suggestion struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence"`
}

// Status describes the adapter's current availability
type Status struct {
	Available bool   `json:"available"`
	Model     string `json:"model"`
	Endpoint  string `json:"endpoint"`
}

// Ollama wire types

type tagsResponse struct {
	Models []modelInfo `json:"models"`
}

type modelInfo struct {
	Name string `json:"name"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system"`
	Stream  bool            `json:"stream"`
	Format  string          `json:"format"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}
