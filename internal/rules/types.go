package rules

import "regexp"

// Category groups rules for filtering and reporting
type Category string

const (
	CategoryCallingTime         Category = "calling_time"
	CategoryDoNotCall           Category = "do_not_call"
	CategoryDisclosure          Category = "disclosure"
	CategoryConsent             Category = "consent"
	CategoryIdentification      Category = "identification"
	CategoryRecordingDisclosure Category = "recording_disclosure"
	CategoryPrerecorded         Category = "prerecorded"
)

// Severity is the alert severity attached to a rule
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rule is a single compliance rule. Trigger phrases and regex patterns are
// scanned in declared order; catalog order decides which rule wins when
// several could match.
type Rule struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Category         Category `json:"category"`
	Description      string   `json:"description"`
	Severity         Severity `json:"severity"`
	Triggers         []string `json:"triggers"`
	RegexPatterns    []string `json:"regex_patterns"`
	RequiresMetadata bool     `json:"requires_metadata"`
	MetadataField    string   `json:"metadata_field,omitempty"`
	WhyItMatters     string   `json:"why_it_matters"`
	RecommendedFix   string   `json:"recommended_fix"`
	LegalReference   string   `json:"legal_reference"`
	Enabled          bool     `json:"enabled"`
	Optional         bool     `json:"optional"`
}

// Catalog is an immutable, ordered rule collection with compiled patterns
type Catalog struct {
	Version     string `json:"version"`
	LastUpdated string `json:"last_updated"`
	Disclaimer  string `json:"disclaimer"`

	rules    []Rule
	compiled map[string][]*regexp.Regexp // rule id -> compiled patterns, declared order
}
