// Package pattern provides deterministic rule matching, ranking and confidence scoring
// for expense line items.
package pattern

import (
	"github.com/shopspring/decimal"

	"github.com/manonja/quickExpense-sub001/internal/model"
)

// Matcher evaluates line items against business rules.
type Matcher interface {
	// Match returns every satisfied rule, highest priority first, ties in declaration order.
	Match(description, vendorName string, amount decimal.Decimal) []Match
}

// Rule is an alias to the model.BusinessRule type for convenience.
type Rule = model.BusinessRule

// Match is a satisfied rule together with the evidence that satisfied it.
type Match struct {
	Rule           Rule
	Keyword        string
	VendorPattern  string
	Order          int
	AmountBounded  bool
	// VendorOverride is set by Rank when the vendor evidence lets this match
	// outrank description-only candidates regardless of priority.
	VendorOverride bool
}

// VendorCorroborated reports whether the rule's vendor patterns matched the vendor.
func (m Match) VendorCorroborated() bool {
	return m.VendorPattern != ""
}

// Specificity counts the satisfied, non-trivial conditions.
func (m Match) Specificity() int {
	n := 0
	if m.Keyword != "" {
		n++
	}
	if m.VendorPattern != "" {
		n++
	}
	if m.AmountBounded {
		n++
	}
	return n
}
