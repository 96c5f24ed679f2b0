package rules

import (
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	catalog, err := Default()
	if err != nil {
		t.Fatalf("Failed to load default catalog: %v", err)
	}

	t.Run("AllRulesPresent", func(t *testing.T) {
		want := []string{
			"TIME-001", "DNC-001", "DNC-002", "DNC-003",
			"DISC-001", "DISC-002", "DISC-003",
			"CONS-001", "IDENT-001", "PREC-001", "REC-001",
		}
		all := catalog.All()
		if len(all) != len(want) {
			t.Fatalf("Expected %d rules, got %d", len(want), len(all))
		}
		for _, id := range want {
			if _, ok := catalog.ByID(id); !ok {
				t.Errorf("Rule %s missing from catalog", id)
			}
		}
	})

	t.Run("OrderStable", func(t *testing.T) {
		all := catalog.All()
		if all[0].ID != "TIME-001" {
			t.Errorf("Expected TIME-001 first, got %s", all[0].ID)
		}
		if all[1].ID != "DNC-001" {
			t.Errorf("Expected DNC-001 second, got %s", all[1].ID)
		}
		if all[len(all)-1].ID != "REC-001" {
			t.Errorf("Expected REC-001 last, got %s", all[len(all)-1].ID)
		}
	})

	t.Run("EnabledPreservesOrder", func(t *testing.T) {
		enabled := catalog.Enabled()
		if len(enabled) != len(catalog.All()) {
			t.Errorf("All default rules should be enabled, got %d of %d", len(enabled), len(catalog.All()))
		}
		for i := 1; i < len(enabled); i++ {
			if !ruleBefore(catalog, enabled[i-1].ID, enabled[i].ID) {
				t.Errorf("Enabled order broken: %s before %s", enabled[i-1].ID, enabled[i].ID)
			}
		}
	})

	t.Run("ByCategory", func(t *testing.T) {
		dnc := catalog.ByCategory(CategoryDoNotCall)
		if len(dnc) != 3 {
			t.Fatalf("Expected 3 do_not_call rules, got %d", len(dnc))
		}
		if dnc[0].ID != "DNC-001" || dnc[1].ID != "DNC-002" || dnc[2].ID != "DNC-003" {
			t.Errorf("Unexpected do_not_call order: %s, %s, %s", dnc[0].ID, dnc[1].ID, dnc[2].ID)
		}
	})

	t.Run("PatternsCompiled", func(t *testing.T) {
		for _, rule := range catalog.All() {
			patterns := catalog.Patterns(rule.ID)
			if len(patterns) != len(rule.RegexPatterns) {
				t.Errorf("Rule %s: %d compiled patterns for %d declared", rule.ID, len(patterns), len(rule.RegexPatterns))
			}
		}
		dncPatterns := catalog.Patterns("DNC-001")
		if !dncPatterns[0].MatchString("please do not call this number") {
			t.Error("DNC-001 pattern should match a do-not-call phrasing")
		}
	})

	t.Run("MetadataRules", func(t *testing.T) {
		for _, id := range []string{"TIME-001", "DNC-003", "PREC-001"} {
			rule, _ := catalog.ByID(id)
			if !rule.RequiresMetadata {
				t.Errorf("Rule %s should require metadata", id)
			}
			if rule.MetadataField == "" {
				t.Errorf("Rule %s should name a metadata field", id)
			}
		}
	})
}

func TestNewCatalogValidation(t *testing.T) {
	t.Run("RejectsBadPattern", func(t *testing.T) {
		_, err := NewCatalog("1.0.0", "2026-01-16", "", []Rule{
			{ID: "BAD-001", Title: "Bad", RegexPatterns: []string{`(?i)(unclosed`}, Enabled: true},
		})
		if err == nil {
			t.Fatal("Expected error for invalid regex pattern")
		}
		if !strings.Contains(err.Error(), "BAD-001") {
			t.Errorf("Error should name the offending rule: %v", err)
		}
	})

	t.Run("RejectsDuplicateID", func(t *testing.T) {
		_, err := NewCatalog("1.0.0", "2026-01-16", "", []Rule{
			{ID: "DUP-001", Title: "First", Enabled: true},
			{ID: "DUP-001", Title: "Second", Enabled: true},
		})
		if err == nil {
			t.Fatal("Expected error for duplicate rule id")
		}
	})

	t.Run("RejectsEmptyID", func(t *testing.T) {
		_, err := NewCatalog("1.0.0", "2026-01-16", "", []Rule{
			{Title: "Nameless", Enabled: true},
		})
		if err == nil {
			t.Fatal("Expected error for empty rule id")
		}
	})
}

func TestRenderForPrompt(t *testing.T) {
	catalog, err := Default()
	if err != nil {
		t.Fatalf("Failed to load default catalog: %v", err)
	}

	rendered := catalog.RenderForPrompt()

	t.Run("Deterministic", func(t *testing.T) {
		if rendered != catalog.RenderForPrompt() {
			t.Error("RenderForPrompt should be stable across calls")
		}
	})

	t.Run("ContainsEnabledRules", func(t *testing.T) {
		for _, rule := range catalog.Enabled() {
			if !strings.Contains(rendered, "## "+rule.ID+" - "+rule.Title) {
				t.Errorf("Rendered catalog missing heading for %s", rule.ID)
			}
		}
	})

	t.Run("CatalogOrder", func(t *testing.T) {
		if strings.Index(rendered, "## TIME-001") > strings.Index(rendered, "## DNC-001") {
			t.Error("TIME-001 should render before DNC-001")
		}
		if strings.Index(rendered, "## DNC-003") > strings.Index(rendered, "## REC-001") {
			t.Error("DNC-003 should render before REC-001")
		}
	})

	t.Run("SkipsDisabledRules", func(t *testing.T) {
		list := defaultRules()
		list[1].Enabled = false // DNC-001
		c, err := NewCatalog("1.0.0", "2026-01-16", "", list)
		if err != nil {
			t.Fatalf("Failed to build catalog: %v", err)
		}
		if strings.Contains(c.RenderForPrompt(), "## DNC-001") {
			t.Error("Disabled rule should not render")
		}
	})
}

// ruleBefore reports whether a appears before b in catalog order.
func ruleBefore(c *Catalog, a, b string) bool {
	ai, bi := -1, -1
	for i, rule := range c.All() {
		if rule.ID == a {
			ai = i
		}
		if rule.ID == b {
			bi = i
		}
	}
	return ai >= 0 && bi >= 0 && ai < bi
}
