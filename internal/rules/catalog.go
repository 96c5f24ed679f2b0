package rules

import (
	"fmt"
	"regexp"
)

// NewCatalog builds a catalog from a rule list, compiling every regex
// pattern once up front. A pattern that fails to compile makes the whole
// catalog invalid: the engine must not start with a partial rule set.
func NewCatalog(version, lastUpdated, disclaimer string, ruleList []Rule) (*Catalog, error) {
	c := &Catalog{
		Version:     version,
		LastUpdated: lastUpdated,
		Disclaimer:  disclaimer,
		rules:       ruleList,
		compiled:    make(map[string][]*regexp.Regexp, len(ruleList)),
	}

	seen := make(map[string]bool, len(ruleList))
	for _, rule := range ruleList {
		if rule.ID == "" {
			return nil, fmt.Errorf("rule with empty id in catalog")
		}
		if seen[rule.ID] {
			return nil, fmt.Errorf("duplicate rule id %q in catalog", rule.ID)
		}
		seen[rule.ID] = true

		patterns := make([]*regexp.Regexp, 0, len(rule.RegexPatterns))
		for _, pattern := range rule.RegexPatterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %s: invalid pattern %q: %w", rule.ID, pattern, err)
			}
			patterns = append(patterns, re)
		}
		c.compiled[rule.ID] = patterns
	}

	return c, nil
}

// Default loads the built-in TCPA ruleset
func Default() (*Catalog, error) {
	return NewCatalog(
		"1.0.0",
		"2026-01-16",
		"This tool provides compliance risk signals only. It is NOT legal advice. "+
			"Compliance requirements depend on jurisdiction and require legal counsel review. "+
			"Always consult with qualified legal professionals for compliance decisions.",
		defaultRules(),
	)
}

// All returns every rule in catalog order
func (c *Catalog) All() []Rule {
	return c.rules
}

// Enabled returns enabled rules, preserving catalog order
func (c *Catalog) Enabled() []Rule {
	enabled := make([]Rule, 0, len(c.rules))
	for _, rule := range c.rules {
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}
	return enabled
}

// ByCategory returns rules in the given category, preserving catalog order
func (c *Catalog) ByCategory(category Category) []Rule {
	var matched []Rule
	for _, rule := range c.rules {
		if rule.Category == category {
			matched = append(matched, rule)
		}
	}
	return matched
}

// ByID returns the rule with the given id, if present
func (c *Catalog) ByID(id string) (Rule, bool) {
	for _, rule := range c.rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// Patterns returns the compiled regex patterns for a rule, in declared order
func (c *Catalog) Patterns(id string) []*regexp.Regexp {
	return c.compiled[id]
}

func defaultRules() []Rule {
	return []Rule{
		// Calling time
		{
			ID:               "TIME-001",
			Title:            "Calling Time Violation",
			Category:         CategoryCallingTime,
			Description:      "Telemarketing calls made outside 8am-9pm in the consumer's local time",
			Severity:         SeverityHigh,
			RequiresMetadata: true,
			MetadataField:    "call_time_local",
			WhyItMatters: "The TCPA prohibits telemarketing calls before 8am or after 9pm in the " +
				"consumer's local time zone. Violations can result in $500-$1,500 per call.",
			RecommendedFix: "Verify time zone before calling. If outside hours, apologize and offer " +
				"to call back during appropriate hours.",
			LegalReference: "47 U.S.C. § 227(c)(5); 47 C.F.R. § 64.1200(c)(1)",
			Enabled:        true,
		},

		// Do not call
		{
			ID:          "DNC-001",
			Title:       "Customer Requested No Further Calls",
			Category:    CategoryDoNotCall,
			Description: "Customer explicitly requests to stop receiving calls",
			Severity:    SeverityHigh,
			Triggers: []string{
				"don't call me",
				"do not call me",
				"stop calling me",
				"remove me from your list",
				"take me off your list",
				"put me on do not call",
				"add me to do not call",
				"no more calls",
				"never call again",
				"stop contacting me",
			},
			RegexPatterns: []string{
				`(?i)(don'?t|do\s*not|stop|quit|cease)\s+(call|contact|ring|phone)`,
				`(?i)(remove|take)\s+(me|my\s+number)\s+(from|off)`,
				`(?i)(put|add)\s+(me|my\s+number)\s+(on|to)\s+(the\s+)?(do\s*not\s*call|dnc)`,
			},
			WhyItMatters: "Under TCPA, consumers can revoke consent by any reasonable means at any time. " +
				"Continuing to call after a DNC request is a violation.",
			RecommendedFix: "Understood—I'll add you to our Do Not Call list effective immediately. " +
				"You won't receive any more marketing calls from us. Is there anything else " +
				"I can help you with today?",
			LegalReference: "47 U.S.C. § 227(c); 47 C.F.R. § 64.1200(d)",
			Enabled:        true,
		},
		{
			ID:          "DNC-002",
			Title:       "Agent Continued After DNC Request",
			Category:    CategoryDoNotCall,
			Description: "Agent attempted to continue sales pitch after customer requested DNC",
			Severity:    SeverityHigh,
			Triggers: []string{
				"before you go",
				"just one more thing",
				"let me just tell you",
				"you might want to hear",
				"are you sure",
				"but wait",
			},
			RegexPatterns: []string{
				`(?i)(before\s+you\s+go|just\s+one\s+more|let\s+me\s+just)`,
				`(?i)(are\s+you\s+sure|but\s+wait|hear\s+me\s+out)`,
			},
			WhyItMatters: "After a DNC request, any attempt to continue selling significantly " +
				"increases violation risk and demonstrates willful non-compliance.",
			RecommendedFix: "Do not continue selling. Acknowledge the request, confirm DNC placement, " +
				"and end the call professionally.",
			LegalReference: "47 C.F.R. § 64.1200(d)(3)",
			Enabled:        true,
		},
		{
			ID:               "DNC-003",
			Title:            "National DNC List - No Consent Evidence",
			Category:         CategoryDoNotCall,
			Description:      "Number is on National DNC list and call is marketing without consent evidence",
			Severity:         SeverityHigh,
			RequiresMetadata: true,
			MetadataField:    "is_dnc_listed",
			WhyItMatters: "Calling numbers on the National DNC Registry without prior express consent " +
				"or an established business relationship is a TCPA violation.",
			RecommendedFix: "If calling a DNC-listed number, ensure you have documented consent or " +
				"an existing business relationship. If unsure, end the marketing call.",
			LegalReference: "47 C.F.R. § 64.1200(c)(2)",
			Enabled:        true,
		},

		// Disclosure
		{
			ID:          "DISC-001",
			Title:       "Missing Seller Identity Disclosure",
			Category:    CategoryDisclosure,
			Description: "Agent did not promptly identify the seller/company name",
			Severity:    SeverityMedium,
			RegexPatterns: []string{
				`(?i)(calling\s+(from|on\s+behalf\s+of)|this\s+is|my\s+name\s+is.*?(with|from))`,
			},
			WhyItMatters: "FTC Telemarketing Sales Rule requires prompt disclosure of the seller's " +
				"identity at the beginning of outbound sales calls.",
			RecommendedFix: "Hi, my name is [Name] calling from [Company Name].",
			LegalReference: "16 C.F.R. § 310.4(d)(1)",
			Enabled:        true,
		},
		{
			ID:          "DISC-002",
			Title:       "Missing Sales Call Nature Disclosure",
			Category:    CategoryDisclosure,
			Description: "Agent did not disclose that the call is a sales call",
			Severity:    SeverityMedium,
			RegexPatterns: []string{
				`(?i)(sales|marketing|promotion|offer|special\s+deal|opportunity)`,
			},
			WhyItMatters: "The TSR requires disclosure that the call is for sales purposes " +
				"before making the sales pitch.",
			RecommendedFix: "I'm calling today with a special offer for you...",
			LegalReference: "16 C.F.R. § 310.4(d)(2)",
			Enabled:        true,
		},
		{
			ID:          "DISC-003",
			Title:       "Missing Product/Service Description",
			Category:    CategoryDisclosure,
			Description: "Agent proceeded with pitch without describing what is being sold",
			Severity:    SeverityLow,
			WhyItMatters: "Consumers should understand what product or service is being offered " +
				"early in the call.",
			RecommendedFix: "The reason for my call is to tell you about our [product/service]...",
			LegalReference: "16 C.F.R. § 310.4(d)(3)",
			Enabled:        true,
		},

		// Consent
		{
			ID:          "CONS-001",
			Title:       "Consent Revocation Detected",
			Category:    CategoryConsent,
			Description: "Consumer appears to be revoking consent by reasonable means",
			Severity:    SeverityHigh,
			Triggers: []string{
				"i withdraw my consent",
				"i revoke my consent",
				"i take back my consent",
				"i no longer consent",
				"i didn't agree to this",
				"i never agreed",
				"i want to opt out",
				"opt me out",
				"unsubscribe me",
			},
			RegexPatterns: []string{
				`(?i)(withdraw|revoke|take\s+back|cancel)\s+(my\s+)?(consent|permission|authorization)`,
				`(?i)(opt|unsubscribe)\s+(me\s+)?out`,
				`(?i)(never|didn'?t)\s+(agree|consent|authorize)`,
			},
			WhyItMatters: "Under TCPA, consumers can revoke consent by any reasonable means. " +
				"Non-standard wording still constitutes valid revocation.",
			RecommendedFix: "I understand you'd like to revoke your consent. I'll process that right away " +
				"and you'll be removed from our calling list.",
			LegalReference: "47 C.F.R. § 64.1200(a)(7)(ii)",
			Enabled:        true,
		},

		// Identification
		{
			ID:          "IDENT-001",
			Title:       "Missing Callback Number",
			Category:    CategoryIdentification,
			Description: "Agent did not provide callback number/address for consumer contact",
			Severity:    SeverityLow,
			RegexPatterns: []string{
				`(?i)(call\s+(us\s+)?back\s+at|reach\s+us\s+at|our\s+number\s+is|contact\s+us\s+at)`,
			},
			WhyItMatters: "Telemarketers must provide a means for consumers to reach the business, " +
				"typically a callback number.",
			RecommendedFix: "If you have any questions, you can reach us at [phone number].",
			LegalReference: "16 C.F.R. § 310.4(d)(7)",
			Enabled:        true,
		},

		// Prerecorded voice
		{
			ID:               "PREC-001",
			Title:            "Prerecorded Voice Without Consent",
			Category:         CategoryPrerecorded,
			Description:      "Call using prerecorded/artificial voice without required prior express written consent",
			Severity:         SeverityHigh,
			RequiresMetadata: true,
			MetadataField:    "is_prerecorded",
			WhyItMatters: "TCPA requires prior express written consent for prerecorded telemarketing " +
				"calls to cell phones.",
			RecommendedFix: "Ensure written consent is obtained and documented before using " +
				"prerecorded messages for marketing.",
			LegalReference: "47 U.S.C. § 227(b)(1)(A)",
			Enabled:        true,
		},

		// Recording disclosure (optional module)
		{
			ID:          "REC-001",
			Title:       "Missing Recording Disclosure",
			Category:    CategoryRecordingDisclosure,
			Description: "Call is being recorded without disclosure (jurisdiction-dependent)",
			Severity:    SeverityMedium,
			RegexPatterns: []string{
				`(?i)(this\s+call\s+(is|may\s+be)\s+(being\s+)?recorded|call\s+recording|for\s+quality\s+(and\s+training\s+)?purposes)`,
			},
			WhyItMatters: "Some states require two-party consent for call recording. " +
				"This rule is jurisdiction-dependent and should be reviewed with counsel.",
			RecommendedFix: "This call may be recorded for quality and training purposes. " +
				"By continuing, you consent to this recording.",
			LegalReference: "State-specific wiretapping/recording consent laws",
			Enabled:        true,
			Optional:       true,
		},
	}
}
