package model

import "github.com/shopspring/decimal"

// CategorizationResult is the auditable decision for one line item.
type CategorizationResult struct {
	RuleApplied             *RuleRef     `json:"rule_applied,omitempty"`
	Category                string       `json:"category"`
	QBAccount               string       `json:"qb_account"`
	TaxTreatment            TaxTreatment `json:"tax_treatment"`
	Explanation             string       `json:"explanation"`
	DeductibilityPercentage int          `json:"deductibility_percentage"`
	ConfidenceScore         float64      `json:"confidence_score"`
	IsFallback              bool         `json:"is_fallback"`
}

// NewResult copies the accounting outcome of rule into a result.
func NewResult(rule BusinessRule, confidence float64, explanation string) CategorizationResult {
	return CategorizationResult{
		Category:                rule.Category,
		DeductibilityPercentage: rule.DeductibilityPercentage,
		QBAccount:               rule.QBAccount,
		TaxTreatment:            rule.TaxTreatment,
		ConfidenceScore:         confidence,
		RuleApplied:             rule.Ref(),
		IsFallback:              rule.IsFallback,
		Explanation:             explanation,
	}
}

// RuleID returns the applied rule id or "" when absent.
func (r CategorizationResult) RuleID() string {
	if r.RuleApplied == nil {
		return ""
	}
	return r.RuleApplied.ID
}

// DeductibleAmount applies the deductibility percentage to amount, rounded to cents.
func (r CategorizationResult) DeductibleAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(int64(r.DeductibilityPercentage))).Div(decimal.NewFromInt(100)).Round(2)
}
