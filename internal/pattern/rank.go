package pattern

import "sort"

// Less reports whether a ranks ahead of b. The order is total: vendor
// overrides first, then higher priority, then higher specificity, then
// earlier declaration. VendorOverride must already be set by Rank.
func Less(a, b Match) bool {
	if a.VendorOverride != b.VendorOverride {
		return a.VendorOverride
	}
	if a.Rule.Priority != b.Rule.Priority {
		return a.Rule.Priority > b.Rule.Priority
	}
	if as, bs := a.Specificity(), b.Specificity(); as != bs {
		return as > bs
	}
	return a.Order < b.Order
}

// Rank returns a ranked copy of matches; the input is not modified.
//
// A vendor-corroborated match overrides priority only when it is at least as
// specific as every description-only candidate.
func Rank(matches []Match) []Match {
	ranked := make([]Match, len(matches))
	copy(ranked, matches)

	descOnly := 0
	for _, m := range ranked {
		if !m.VendorCorroborated() && m.Specificity() > descOnly {
			descOnly = m.Specificity()
		}
	}
	for i := range ranked {
		ranked[i].VendorOverride = ranked[i].VendorCorroborated() && ranked[i].Specificity() >= descOnly
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
	return ranked
}
