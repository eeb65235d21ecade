// Package engine categorizes expense line items against a business rule set.
package engine

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/model"
	"github.com/manonja/quickExpense-sub001/internal/pattern"
	"github.com/manonja/quickExpense-sub001/internal/stats"
)

// CategorizationEngine maps line items to accounting categories.
// It holds an immutable rule set and is safe for concurrent use.
type CategorizationEngine struct {
	rules    *model.RuleSet
	matcher  pattern.Matcher
	enhancer *pattern.ContextEnhancer
	stats    StatsRecorder
	logger   *slog.Logger
}

// Config holds configuration options for the categorization engine.
type Config struct {
	Confidence pattern.ConfidencePolicy
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Confidence: pattern.DefaultConfidencePolicy(),
	}
}

// New creates a categorization engine with the default confidence policy.
func New(rules *model.RuleSet, recorder StatsRecorder, logger *slog.Logger) *CategorizationEngine {
	return NewWithConfig(rules, recorder, logger, DefaultConfig())
}

// NewWithConfig creates a categorization engine with custom configuration.
// A nil recorder gets a private tracker.
func NewWithConfig(rules *model.RuleSet, recorder StatsRecorder, logger *slog.Logger, config Config) *CategorizationEngine {
	if recorder == nil {
		recorder = stats.NewTracker(nil)
	}

	return &CategorizationEngine{
		rules:    rules,
		matcher:  pattern.NewMatcher(rules.Rules()),
		enhancer: pattern.NewContextEnhancer(config.Confidence),
		stats:    recorder,
		logger:   common.OrDefault(logger),
	}
}

// CategorizeLineItem picks the best rule for one line item. When vendorName is
// empty the vendor from ectx is used. It never fails: unmatched input gets the
// fallback rule.
func (e *CategorizationEngine) CategorizeLineItem(description, vendorName string, amount decimal.Decimal, ectx *model.ExpenseContext) model.CategorizationResult {
	if strings.TrimSpace(vendorName) == "" {
		vendorName = ectx.Vendor()
	}

	matches := e.matcher.Match(description, vendorName, amount)

	var result model.CategorizationResult
	if decision, ok := e.enhancer.Select(matches, ectx); ok {
		result = model.NewResult(decision.Match.Rule, decision.Confidence, pattern.Explain(decision))
	} else {
		fallback := e.rules.Fallback()
		result = model.NewResult(fallback, e.enhancer.FallbackConfidence(), pattern.ExplainFallback(fallback))
	}

	e.stats.Record(result.RuleID(), result.IsFallback, result.ConfidenceScore)

	e.logger.Debug("Categorized line item",
		"description", description,
		"vendor", vendorName,
		"amount", amount.StringFixed(2),
		"rule_id", result.RuleID(),
		"category", result.Category,
		"confidence", result.ConfidenceScore,
		"candidates", len(matches))

	return result
}

// CategorizeLineItems categorizes items in order under one shared context.
func (e *CategorizationEngine) CategorizeLineItems(items []model.LineItem, ectx *model.ExpenseContext) []model.CategorizationResult {
	results := make([]model.CategorizationResult, len(items))
	for i, item := range items {
		results[i] = e.CategorizeLineItem(item.Description, "", item.Amount, ectx)
	}
	return results
}

// Statistics returns a snapshot of rule usage since the last reset.
func (e *CategorizationEngine) Statistics() stats.Snapshot {
	return e.stats.Snapshot()
}

// RuleSet returns the rule set this engine evaluates.
func (e *CategorizationEngine) RuleSet() *model.RuleSet {
	return e.rules
}

// Policy returns the confidence policy in effect.
func (e *CategorizationEngine) Policy() pattern.ConfidencePolicy {
	return e.enhancer.Policy()
}
