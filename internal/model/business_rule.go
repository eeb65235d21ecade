// Package model defines the core data structures for the quickexpense rule engine.
package model

import (
	"fmt"

	"github.com/gobwas/glob"
	"github.com/shopspring/decimal"
)

// TaxTreatment describes how sales tax applies to a categorized line.
type TaxTreatment string

// Tax treatment constants.
const (
	TaxStandard        TaxTreatment = "standard"
	TaxGSTHST          TaxTreatment = "gst_hst"
	TaxExempt          TaxTreatment = "exempt"
	TaxZeroRated       TaxTreatment = "zero_rated"
	TaxMealsLimitation TaxTreatment = "meals_limitation"
)

// AllTaxTreatments returns every known treatment in a stable order.
func AllTaxTreatments() []TaxTreatment {
	return []TaxTreatment{TaxStandard, TaxGSTHST, TaxExempt, TaxZeroRated, TaxMealsLimitation}
}

// Valid reports whether t is a known treatment.
func (t TaxTreatment) Valid() bool {
	for _, known := range AllTaxTreatments() {
		if t == known {
			return true
		}
	}
	return false
}

// RuleCondition holds the three matching dimensions of a rule.
// Each list has OR semantics and an empty list leaves that dimension unconstrained.
type RuleCondition struct {
	AmountMin           *decimal.Decimal `json:"amount_min,omitempty"`
	AmountMax           *decimal.Decimal `json:"amount_max,omitempty"`
	DescriptionKeywords []string         `json:"description_keywords"`
	VendorPatterns      []string         `json:"vendor_patterns"`

	// vendorGlobs is compiled once by the loader, parallel to VendorPatterns.
	vendorGlobs []glob.Glob
}

// NewRuleCondition builds a condition and compiles its vendor patterns.
// Keywords and patterns are expected to be case-folded already.
func NewRuleCondition(keywords, vendorPatterns []string, minAmount, maxAmount *decimal.Decimal) (RuleCondition, error) {
	cond := RuleCondition{
		DescriptionKeywords: keywords,
		VendorPatterns:      vendorPatterns,
		AmountMin:           minAmount,
		AmountMax:           maxAmount,
	}

	if minAmount != nil && maxAmount != nil && minAmount.GreaterThan(*maxAmount) {
		return RuleCondition{}, fmt.Errorf("amount_min %s is greater than amount_max %s", minAmount, maxAmount)
	}

	cond.vendorGlobs = make([]glob.Glob, 0, len(vendorPatterns))
	for _, p := range vendorPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return RuleCondition{}, fmt.Errorf("invalid vendor pattern %q: %w", p, err)
		}
		cond.vendorGlobs = append(cond.vendorGlobs, g)
	}

	return cond, nil
}

// VendorGlobs returns the compiled vendor patterns.
func (c RuleCondition) VendorGlobs() []glob.Glob {
	return c.vendorGlobs
}

// HasAmountBounds reports whether either amount bound is set.
func (c RuleCondition) HasAmountBounds() bool {
	return c.AmountMin != nil || c.AmountMax != nil
}

// IsUnconstrained reports whether the condition matches every input.
func (c RuleCondition) IsUnconstrained() bool {
	return len(c.DescriptionKeywords) == 0 && len(c.VendorPatterns) == 0 && !c.HasAmountBounds()
}

// BusinessRule maps matching conditions to an accounting outcome.
type BusinessRule struct {
	Conditions              RuleCondition `json:"conditions"`
	ID                      string        `json:"id"`
	Name                    string        `json:"name"`
	Description             string        `json:"description,omitempty"`
	Category                string        `json:"category"`
	QBAccount               string        `json:"qb_account"`
	TaxTreatment            TaxTreatment  `json:"tax_treatment"`
	Priority                int           `json:"priority"`
	DeductibilityPercentage int           `json:"deductibility_percentage"`
	IsFallback              bool          `json:"fallback,omitempty"`
}

// Ref returns a lightweight reference to the rule for results.
func (r BusinessRule) Ref() *RuleRef {
	return &RuleRef{ID: r.ID, Name: r.Name, Priority: r.Priority}
}

// RuleRef identifies the rule that produced a result.
type RuleRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}
