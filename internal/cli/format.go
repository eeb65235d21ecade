package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/manonja/quickExpense-sub001/internal/cache"
	"github.com/manonja/quickExpense-sub001/internal/model"
	"github.com/manonja/quickExpense-sub001/internal/stats"
	"github.com/manonja/quickExpense-sub001/internal/storage"
	"github.com/manonja/quickExpense-sub001/internal/taxrules"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// WriteResults prints one row per categorized line item.
func WriteResults(w io.Writer, items []model.LineItem, results []model.CategorizationResult) error {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "#\tDESCRIPTION\tAMOUNT\tCATEGORY\tDEDUCTIBLE\tTAX\tCONFIDENCE\tRULE")
	_, _ = fmt.Fprintln(tw, "─\t───────────\t──────\t────────\t──────────\t───\t──────────\t────")

	for i, result := range results {
		var amount, deductible string
		if i < len(items) {
			amount = items[i].Amount.StringFixed(2)
			deductible = fmt.Sprintf("%d%% (%s)", result.DeductibilityPercentage, result.DeductibleAmount(items[i].Amount).StringFixed(2))
		}

		rule := result.RuleID()
		if result.IsFallback {
			rule = FallbackIcon + " " + rule
		}

		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			itemDescription(items, i),
			amount,
			result.Category,
			deductible,
			result.TaxTreatment,
			FormatConfidence(result.ConfidenceScore),
			rule)
	}

	return tw.Flush()
}

func itemDescription(items []model.LineItem, i int) string {
	if i >= len(items) {
		return ""
	}
	return items[i].Description
}

// WriteExplanations prints the reasoning behind each result.
func WriteExplanations(w io.Writer, results []model.CategorizationResult) {
	for i, result := range results {
		_, _ = fmt.Fprintf(w, "%s %s\n", SubtleStyle.Render(fmt.Sprintf("%d.", i+1)), result.Explanation)
	}
}

// WriteRules lists the rules of a rule set in declaration order.
func WriteRules(w io.Writer, set *model.RuleSet) error {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "ID\tPRIORITY\tCATEGORY\tDEDUCTIBLE\tTAX\tKEYWORDS\tVENDORS\tAMOUNT")
	_, _ = fmt.Fprintln(tw, "──\t────────\t────────\t──────────\t───\t────────\t───────\t──────")

	for _, rule := range set.Rules() {
		writeRuleRow(tw, rule)
	}
	writeRuleRow(tw, set.Fallback())

	return tw.Flush()
}

func writeRuleRow(w io.Writer, rule model.BusinessRule) {
	id := rule.ID
	if rule.IsFallback {
		id += " (fallback)"
	}

	_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%d%%\t%s\t%s\t%s\t%s\n",
		id,
		rule.Priority,
		rule.Category,
		rule.DeductibilityPercentage,
		rule.TaxTreatment,
		summarizeList(rule.Conditions.DescriptionKeywords, 3),
		summarizeList(rule.Conditions.VendorPatterns, 2),
		amountRange(rule.Conditions))
}

func summarizeList(values []string, limit int) string {
	switch {
	case len(values) == 0:
		return "any"
	case len(values) <= limit:
		return strings.Join(values, ", ")
	default:
		return fmt.Sprintf("%s, +%d", strings.Join(values[:limit], ", "), len(values)-limit)
	}
}

func amountRange(cond model.RuleCondition) string {
	switch {
	case cond.AmountMin != nil && cond.AmountMax != nil:
		return fmt.Sprintf("%s–%s", cond.AmountMin.StringFixed(2), cond.AmountMax.StringFixed(2))
	case cond.AmountMin != nil:
		return "≥ " + cond.AmountMin.StringFixed(2)
	case cond.AmountMax != nil:
		return "≤ " + cond.AmountMax.StringFixed(2)
	default:
		return "any"
	}
}

// RenderStatus renders the cache status as a box.
func RenderStatus(status cache.Status) string {
	var b strings.Builder

	line := func(label, value string) {
		fmt.Fprintf(&b, "%-18s %s\n", label+":", value)
	}

	line("Enabled", yesNo(status.Enabled))
	line("State", status.State)
	line("Rules", fmt.Sprintf("%s (%d rules)", loadedText(status.RulesLoaded), status.RuleCount))
	line("Citations", fmt.Sprintf("%s (%d citations)", loadedText(status.CitationsLoaded), status.CitationCount))
	if status.Version != "" {
		line("Version", status.Version)
	}
	if !status.LoadedAt.IsZero() {
		line("Loaded at", status.LoadedAt.Format(time.RFC3339))
	}
	line("Rules file", status.RulesPath)
	line("Citations file", status.CitationsPath)
	if status.CitationsError != "" {
		line("Citations error", ErrorStyle.Render(status.CitationsError))
	}

	return RenderBox(ChartIcon+" Rule cache", strings.TrimRight(b.String(), "\n"))
}

func yesNo(v bool) string {
	if v {
		return SuccessStyle.Render("yes")
	}
	return WarningStyle.Render("no")
}

func loadedText(v bool) string {
	if v {
		return SuccessStyle.Render("loaded")
	}
	return WarningStyle.Render("not loaded")
}

// WriteStatistics prints a usage summary and per-rule counts.
func WriteStatistics(w io.Writer, s stats.Snapshot) error {
	_, _ = fmt.Fprintf(w, "Total applications: %d\n", s.TotalApplications)
	_, _ = fmt.Fprintf(w, "Unique rules used:  %d\n", s.UniqueRulesUsed)
	_, _ = fmt.Fprintf(w, "Average confidence: %s\n", FormatConfidence(s.AverageConfidence))
	_, _ = fmt.Fprintf(w, "Fallbacks:          %d (%.1f%%)\n\n", s.FallbackCount, s.FallbackPercentage)

	if len(s.PerRuleCounts) == 0 {
		return nil
	}

	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "RULE\tCOUNT")
	_, _ = fmt.Fprintln(tw, "────\t─────")
	for _, usage := range s.TopRules() {
		_, _ = fmt.Fprintf(tw, "%s\t%d\n", usage.RuleID, usage.Count)
	}
	return tw.Flush()
}

// WriteDecisions lists audited decisions.
func WriteDecisions(w io.Writer, decisions []storage.Decision) error {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "WHEN\tBATCH\tDESCRIPTION\tAMOUNT\tCATEGORY\tDEDUCTIBLE\tCONFIDENCE\tRULE")
	_, _ = fmt.Fprintln(tw, "────\t─────\t───────────\t──────\t────────\t──────────\t──────────\t────")

	for _, d := range decisions {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d%%\t%s\t%s\n",
			d.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortID(d.BatchID),
			d.Description,
			d.Amount.StringFixed(2),
			d.Category,
			d.DeductibilityPercentage,
			FormatConfidence(d.Confidence),
			d.RuleID)
	}
	return tw.Flush()
}

// WriteCategoryTotals prints per-category totals of a batch.
func WriteCategoryTotals(w io.Writer, totals []storage.CategoryTotal) error {
	tw := newTable(w)
	_, _ = fmt.Fprintln(tw, "CATEGORY\tITEMS\tAMOUNT\tDEDUCTIBLE")
	_, _ = fmt.Fprintln(tw, "────────\t─────\t──────\t──────────")
	for _, t := range totals {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Category, t.Count, t.Amount.StringFixed(2), t.Deductible.StringFixed(2))
	}
	return tw.Flush()
}

// WriteCitations prints citations grouped under their category.
func WriteCitations(w io.Writer, category string, citations []taxrules.Citation) {
	if len(citations) == 0 {
		return
	}
	_, _ = fmt.Fprintf(w, "%s\n", BoldStyle.Render(category))
	for _, c := range citations {
		_, _ = fmt.Fprintf(w, "  %s %s: %s\n", c.Jurisdiction, c.Reference, SubtleStyle.Render(c.Description))
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
