package model

import (
	"errors"
	"fmt"
	"time"
)

// Rule set construction errors.
var (
	ErrDuplicateRuleID = errors.New("duplicate rule id")
	ErrMissingFallback = errors.New("rule set has no fallback rule")
	ErrFallbackInRules = errors.New("fallback rule listed among explicit rules")
)

// RuleSet is an immutable, ordered collection of explicit rules plus one fallback.
// A new RuleSet replaces the old one wholesale on reload.
type RuleSet struct {
	loadedAt time.Time
	byID     map[string]int
	version  string
	source   string
	rules    []BusinessRule
	fallback BusinessRule
}

// NewRuleSet validates rule identity and builds a rule set.
// The caller must not mutate rules after this call.
func NewRuleSet(version, source string, rules []BusinessRule, fallback BusinessRule) (*RuleSet, error) {
	if !fallback.IsFallback {
		return nil, ErrMissingFallback
	}

	byID := make(map[string]int, len(rules))
	for i, rule := range rules {
		if rule.IsFallback {
			return nil, fmt.Errorf("%w: %s", ErrFallbackInRules, rule.ID)
		}
		if _, exists := byID[rule.ID]; exists || rule.ID == fallback.ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRuleID, rule.ID)
		}
		byID[rule.ID] = i
	}

	return &RuleSet{
		version:  version,
		source:   source,
		rules:    rules,
		fallback: fallback,
		byID:     byID,
		loadedAt: time.Now(),
	}, nil
}

// Rules returns the explicit rules in declaration order.
func (s *RuleSet) Rules() []BusinessRule {
	return s.rules
}

// Fallback returns the catch-all rule.
func (s *RuleSet) Fallback() BusinessRule {
	return s.fallback
}

// Rule looks up an explicit or fallback rule by id.
func (s *RuleSet) Rule(id string) (BusinessRule, bool) {
	if id == s.fallback.ID {
		return s.fallback, true
	}
	i, ok := s.byID[id]
	if !ok {
		return BusinessRule{}, false
	}
	return s.rules[i], true
}

// Len returns the number of rules including the fallback.
func (s *RuleSet) Len() int {
	return len(s.rules) + 1
}

// Version returns the document version string.
func (s *RuleSet) Version() string {
	return s.version
}

// Source returns where the rule set was loaded from.
func (s *RuleSet) Source() string {
	return s.source
}

// LoadedAt returns the time the rule set was built.
func (s *RuleSet) LoadedAt() time.Time {
	return s.loadedAt
}
