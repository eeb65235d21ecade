package pattern

import (
	"fmt"
	"strings"
)

// Explain creates a human-readable explanation for why a rule was applied.
func Explain(d Decision) string {
	m := d.Match
	parts := make([]string, 0, 3)

	if m.Keyword != "" {
		parts = append(parts, fmt.Sprintf("keyword %q", m.Keyword))
	}
	if m.VendorPattern != "" {
		parts = append(parts, fmt.Sprintf("vendor pattern %q", m.VendorPattern))
	}
	if m.AmountBounded {
		parts = append(parts, "amount "+formatBounds(m.Rule))
	}

	reason := fmt.Sprintf("Matched rule %q (priority %d)", m.Rule.ID, m.Rule.Priority)
	if len(parts) > 0 {
		reason += ": " + strings.Join(parts, ", ")
	}
	if d.Candidates > 1 {
		reason += fmt.Sprintf("; chosen over %d other candidate(s)", d.Candidates-1)
	}
	if d.PurposeHit {
		reason += "; business purpose agrees"
	}

	return reason
}

// ExplainFallback describes a result produced by the fallback rule.
func ExplainFallback(rule Rule) string {
	return fmt.Sprintf("No rule matched; applied fallback %q", rule.ID)
}

func formatBounds(rule Rule) string {
	cond := rule.Conditions
	switch {
	case cond.AmountMin != nil && cond.AmountMax != nil:
		return fmt.Sprintf("between $%s and $%s", cond.AmountMin.StringFixed(2), cond.AmountMax.StringFixed(2))
	case cond.AmountMin != nil:
		return fmt.Sprintf("at least $%s", cond.AmountMin.StringFixed(2))
	case cond.AmountMax != nil:
		return fmt.Sprintf("at most $%s", cond.AmountMax.StringFixed(2))
	default:
		return "any"
	}
}
