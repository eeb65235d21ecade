package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Citations is a small citation table covering the default fixture rules.
const Citations = `category,jurisdiction,citation,description
Travel-Lodging,CA,ITA s.8(1)(h),Travel away from home
Tax-GST/HST,CA,ETA s.169,Input tax credits
`

// RulesDoc renders a JSON rule document with hotel_lodging, gst_hst and a
// fallback. Each extra keyword adds a priority 10 rule with that keyword as
// its id.
func RulesDoc(version string, extra ...string) string {
	entries := []string{
		`{"id": "hotel_lodging", "name": "Hotel Lodging", "priority": 80,
		  "conditions": {"description_keywords": ["room charge", "marketing fee"], "vendor_patterns": ["*marriott*"]},
		  "category": "Travel-Lodging", "deductibility_percentage": 100, "qb_account": "Travel"}`,
		`{"id": "gst_hst", "name": "GST", "priority": 100,
		  "conditions": {"description_keywords": ["gst"]},
		  "category": "Tax-GST/HST", "deductibility_percentage": 100, "qb_account": "GST Paid", "tax_treatment": "gst_hst"}`,
	}
	for _, kw := range extra {
		entries = append(entries, fmt.Sprintf(
			`{"id": %q, "name": %q, "priority": 10, "conditions": {"description_keywords": [%q]},
			  "category": "Extra", "deductibility_percentage": 100, "qb_account": "Extra"}`, kw, kw, kw))
	}

	return fmt.Sprintf(`{"version": %q, "rules": [%s],
	  "fallback": {"id": "fallback", "name": "Uncategorized", "category": "Uncategorized",
	               "deductibility_percentage": 0, "qb_account": "Uncategorized Expense"}}`,
		version, strings.Join(entries, ","))
}

// RuleFiles points at a rules document and citation table in a temp dir.
type RuleFiles struct {
	RulesPath     string
	CitationsPath string
}

// WriteRules replaces the rules document.
func (f RuleFiles) WriteRules(t *testing.T, content string) {
	t.Helper()
	WriteFile(t, f.RulesPath, content)
}

// WriteCitations replaces the citation table.
func (f RuleFiles) WriteCitations(t *testing.T, content string) {
	t.Helper()
	WriteFile(t, f.CitationsPath, content)
}

// SetupRuleFiles writes RulesDoc(version) and Citations into a fresh temp dir.
func SetupRuleFiles(t *testing.T, version string) RuleFiles {
	t.Helper()

	dir := t.TempDir()
	files := RuleFiles{
		RulesPath:     filepath.Join(dir, "business_rules.json"),
		CitationsPath: filepath.Join(dir, "tax_citations.csv"),
	}
	files.WriteRules(t, RulesDoc(version))
	files.WriteCitations(t, Citations)

	return files
}

// WriteFile writes content to path or fails the test.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
