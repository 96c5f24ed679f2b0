package rules

import (
	"fmt"
	"strings"
)

// RenderForPrompt produces the textual rule listing embedded into the hosted
// evaluator's system prompt. The output is deterministic for a fixed catalog:
// enabled rules only, in catalog order.
func (c *Catalog) RenderForPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# TCPA Compliance Rules v%s\n\n", c.Version)

	for _, rule := range c.rules {
		if !rule.Enabled {
			continue
		}
		fmt.Fprintf(&b, "## %s - %s\n", rule.ID, rule.Title)
		fmt.Fprintf(&b, "- Category: %s\n", rule.Category)
		fmt.Fprintf(&b, "- Severity: %s\n", rule.Severity)
		fmt.Fprintf(&b, "- Description: %s\n", rule.Description)
		fmt.Fprintf(&b, "- Why it matters: %s\n", rule.WhyItMatters)
		fmt.Fprintf(&b, "- Recommended fix: %q\n", rule.RecommendedFix)
		fmt.Fprintf(&b, "- Legal reference: %s\n", rule.LegalReference)
		if len(rule.Triggers) > 0 {
			fmt.Fprintf(&b, "- Trigger phrases: %q\n", rule.Triggers)
		}
		b.WriteString("\n")
	}

	return b.String()
}
