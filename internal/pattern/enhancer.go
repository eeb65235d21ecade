package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manonja/quickExpense-sub001/internal/model"
)

// ConfidencePolicy tunes how match evidence maps to a confidence score.
type ConfidencePolicy struct {
	Base               float64 `mapstructure:"base"`
	SpecificityStep    float64 `mapstructure:"specificity_step"`
	BaselineMax        float64 `mapstructure:"baseline_max"`
	VendorBoost        float64 `mapstructure:"vendor_boost"`
	VendorFloor        float64 `mapstructure:"vendor_floor"`
	PurposeBoost       float64 `mapstructure:"purpose_boost"`
	FallbackConfidence float64 `mapstructure:"fallback"`
}

// DefaultConfidencePolicy returns the calibrated defaults.
// Without vendor evidence scores land in 0.70-0.85; with it they reach at least 0.90.
func DefaultConfidencePolicy() ConfidencePolicy {
	return ConfidencePolicy{
		Base:               0.70,
		SpecificityStep:    0.05,
		BaselineMax:        0.85,
		VendorBoost:        0.15,
		VendorFloor:        0.90,
		PurposeBoost:       0.02,
		FallbackConfidence: 0.30,
	}
}

// Validate checks that every knob is a probability and the bands are ordered.
func (p ConfidencePolicy) Validate() error {
	values := map[string]float64{
		"base":             p.Base,
		"specificity_step": p.SpecificityStep,
		"baseline_max":     p.BaselineMax,
		"vendor_boost":     p.VendorBoost,
		"vendor_floor":     p.VendorFloor,
		"purpose_boost":    p.PurposeBoost,
		"fallback":         p.FallbackConfidence,
	}
	for name, v := range values {
		if v < 0 || v > 1 {
			return fmt.Errorf("confidence %s must be within [0,1], got %v", name, v)
		}
	}
	if p.Base > p.BaselineMax {
		return errors.New("confidence base must not exceed baseline_max")
	}
	return nil
}

// Decision is the ranked winner with its score.
type Decision struct {
	Match      Match
	Confidence float64
	Candidates int
	PurposeHit bool
}

// ContextEnhancer re-ranks candidates with expense context and scores the winner.
type ContextEnhancer struct {
	policy ConfidencePolicy
}

// NewContextEnhancer creates an enhancer with the given policy.
func NewContextEnhancer(policy ConfidencePolicy) *ContextEnhancer {
	return &ContextEnhancer{policy: policy}
}

// Policy returns the active confidence policy.
func (e *ContextEnhancer) Policy() ConfidencePolicy {
	return e.policy
}

// Select ranks matches and scores the top one. It returns false for no matches.
func (e *ContextEnhancer) Select(matches []Match, ectx *model.ExpenseContext) (Decision, bool) {
	if len(matches) == 0 {
		return Decision{}, false
	}

	top := Rank(matches)[0]
	purposeHit := purposeCorroborates(top.Rule, ectx.Purpose())

	return Decision{
		Match:      top,
		Confidence: e.Confidence(top, purposeHit),
		Candidates: len(matches),
		PurposeHit: purposeHit,
	}, true
}

// Confidence scores a match; the result is clamped to [0,1].
func (e *ContextEnhancer) Confidence(m Match, purposeHit bool) float64 {
	p := e.policy

	score := p.Base + p.SpecificityStep*float64(m.Specificity())
	if score > p.BaselineMax {
		score = p.BaselineMax
	}

	if m.VendorCorroborated() {
		score += p.VendorBoost
		if score < p.VendorFloor {
			score = p.VendorFloor
		}
	}

	if purposeHit {
		score += p.PurposeBoost
	}

	return clamp(score)
}

// FallbackConfidence returns the fixed score for fallback results.
func (e *ContextEnhancer) FallbackConfidence() float64 {
	return clamp(e.policy.FallbackConfidence)
}

// purposeCorroborates reports whether the business purpose names the rule's
// category or one of its keywords.
func purposeCorroborates(rule Rule, purpose string) bool {
	if purpose == "" {
		return false
	}
	purpose = Normalize(purpose)

	for _, word := range strings.FieldsFunc(Normalize(rule.Category), func(r rune) bool {
		return r == '-' || r == '/' || r == ' ' || r == '&'
	}) {
		if len(word) > 2 && strings.Contains(purpose, word) {
			return true
		}
	}

	for _, kw := range rule.Conditions.DescriptionKeywords {
		if strings.Contains(purpose, kw) {
			return true
		}
	}

	return false
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
