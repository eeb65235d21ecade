package pattern

import (
	"strings"

	"golang.org/x/text/cases"
)

// Normalize case-folds and trims s so comparisons are case-insensitive
// across scripts, not only ASCII.
func Normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// NormalizeAll normalizes every entry and drops blanks.
func NormalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}
