package pattern

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// MatcherImpl implements Matcher over an immutable slice of rules.
type MatcherImpl struct {
	rules []Rule
}

// NewMatcher creates a new rule matcher with the given rules.
// Rules must come from the loader so keywords are folded and globs compiled.
func NewMatcher(rules []Rule) *MatcherImpl {
	return &MatcherImpl{rules: rules}
}

// Match evaluates a line item against all configured rules and returns matching rules.
func (m *MatcherImpl) Match(description, vendorName string, amount decimal.Decimal) []Match {
	desc := Normalize(description)
	vendor := Normalize(vendorName)

	var matches []Match
	for i, rule := range m.rules {
		if rule.IsFallback {
			continue
		}
		if match, ok := m.matchesRule(rule, desc, vendor, amount); ok {
			match.Order = i
			matches = append(matches, match)
		}
	}

	sortByPriority(matches)

	return matches
}

// matchesRule checks all three dimensions and records the evidence.
func (m *MatcherImpl) matchesRule(rule Rule, desc, vendor string, amount decimal.Decimal) (Match, bool) {
	keyword, ok := matchesDescription(rule, desc)
	if !ok {
		return Match{}, false
	}

	vendorPattern, ok := matchesVendor(rule, vendor)
	if !ok {
		return Match{}, false
	}

	if !matchesAmount(rule, amount) {
		return Match{}, false
	}

	return Match{
		Rule:          rule,
		Keyword:       keyword,
		VendorPattern: vendorPattern,
		AmountBounded: rule.Conditions.HasAmountBounds(),
	}, true
}

// matchesDescription returns the first keyword found in desc.
// An empty keyword list matches without evidence.
func matchesDescription(rule Rule, desc string) (string, bool) {
	keywords := rule.Conditions.DescriptionKeywords
	if len(keywords) == 0 {
		return "", true
	}

	for _, kw := range keywords {
		if strings.Contains(desc, kw) {
			return kw, true
		}
	}

	return "", false
}

// matchesVendor returns the first pattern that matches vendor.
// An absent vendor never satisfies a non-empty pattern list.
func matchesVendor(rule Rule, vendor string) (string, bool) {
	patterns := rule.Conditions.VendorPatterns
	if len(patterns) == 0 {
		return "", true
	}
	if vendor == "" {
		return "", false
	}

	for i, g := range rule.Conditions.VendorGlobs() {
		if g.Match(vendor) {
			return patterns[i], true
		}
	}

	return "", false
}

// matchesAmount checks the inclusive range; a missing bound is open on that side.
func matchesAmount(rule Rule, amount decimal.Decimal) bool {
	cond := rule.Conditions
	if cond.AmountMin != nil && amount.LessThan(*cond.AmountMin) {
		return false
	}
	if cond.AmountMax != nil && amount.GreaterThan(*cond.AmountMax) {
		return false
	}
	return true
}

// sortByPriority sorts matches by priority (highest first), keeping declaration order on ties.
func sortByPriority(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Rule.Priority > matches[j].Rule.Priority
	})
}
