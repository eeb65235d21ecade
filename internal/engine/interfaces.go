package engine

import (
	"github.com/manonja/quickExpense-sub001/internal/stats"
)

// StatsRecorder receives one record per categorization.
type StatsRecorder interface {
	Record(ruleID string, isFallback bool, confidence float64)
	Snapshot() stats.Snapshot
}
