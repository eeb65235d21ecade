// Package stats tracks rule usage and confidence across categorization calls.
package stats

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is a point-in-time copy of the tracker counters.
type Snapshot struct {
	PerRuleCounts      map[string]int `json:"per_rule_counts"`
	TotalApplications  int            `json:"total_applications"`
	UniqueRulesUsed    int            `json:"unique_rules_used"`
	FallbackCount      int            `json:"fallback_count"`
	AverageConfidence  float64        `json:"average_confidence"`
	FallbackPercentage float64        `json:"fallback_percentage"`
}

// RuleUsage is one row of a usage report.
type RuleUsage struct {
	RuleID string
	Count  int
}

// TopRules returns per-rule counts sorted by count descending, then id.
func (s Snapshot) TopRules() []RuleUsage {
	usage := make([]RuleUsage, 0, len(s.PerRuleCounts))
	for id, n := range s.PerRuleCounts {
		usage = append(usage, RuleUsage{RuleID: id, Count: n})
	}
	sort.Slice(usage, func(i, j int) bool {
		if usage[i].Count != usage[j].Count {
			return usage[i].Count > usage[j].Count
		}
		return usage[i].RuleID < usage[j].RuleID
	})
	return usage
}

// Tracker accumulates categorization statistics. It is safe for concurrent use.
type Tracker struct {
	perRule       map[string]int
	metrics       *metrics
	total         int
	fallback      int
	confidenceSum float64
	mu            sync.Mutex
}

// NewTracker creates a tracker. When reg is non-nil the counters are also
// exported as Prometheus metrics on it.
func NewTracker(reg prometheus.Registerer) *Tracker {
	t := &Tracker{
		perRule: make(map[string]int),
	}
	if reg != nil {
		t.metrics = newMetrics(reg)
	}
	return t
}

// Record folds one categorization into the counters. Fallback results are
// counted separately from per-rule counts.
func (t *Tracker) Record(ruleID string, isFallback bool, confidence float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	if isFallback {
		t.fallback++
	} else {
		t.perRule[ruleID]++
	}
	t.confidenceSum += confidence

	// Metrics are written under mu so the gauge always matches the counters.
	if t.metrics != nil {
		t.metrics.observe(ruleID, isFallback, confidence, t.confidenceSum/float64(t.total))
	}
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	perRule := make(map[string]int, len(t.perRule))
	for id, n := range t.perRule {
		perRule[id] = n
	}

	s := Snapshot{
		TotalApplications: t.total,
		UniqueRulesUsed:   len(perRule),
		FallbackCount:     t.fallback,
		PerRuleCounts:     perRule,
	}
	if t.total > 0 {
		s.AverageConfidence = t.confidenceSum / float64(t.total)
		s.FallbackPercentage = float64(t.fallback) / float64(t.total) * 100
	}
	return s
}

// Reset clears all counters. Exported Prometheus counters stay monotonic.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.perRule = make(map[string]int)
	t.total = 0
	t.fallback = 0
	t.confidenceSum = 0

	if t.metrics != nil {
		t.metrics.reset()
	}
}
