package cache

import "time"

// Status is a point-in-time view of the cache for administrative callers.
type Status struct {
	LoadedAt        time.Time `json:"loaded_at,omitempty"`
	State           string    `json:"state"`
	Version         string    `json:"version,omitempty"`
	RulesPath       string    `json:"rules_path"`
	CitationsPath   string    `json:"citations_path"`
	CitationsError  string    `json:"citations_error,omitempty"`
	RuleCount       int       `json:"rule_count"`
	CitationCount   int       `json:"citation_count"`
	Enabled         bool      `json:"enabled"`
	Loaded          bool      `json:"loaded"`
	RulesLoaded     bool      `json:"rules_loaded"`
	CitationsLoaded bool      `json:"citations_loaded"`
}

// CacheStatus reports what is loaded without triggering a load.
func (c *RuleCache) CacheStatus() Status {
	status := Status{
		Enabled:       c.opts.Enabled,
		State:         State(c.state.Load()).String(),
		RulesPath:     c.opts.RulesPath,
		CitationsPath: c.opts.CitationsPath,
	}
	if !c.opts.Enabled {
		return status
	}

	snap := c.current.Load()
	if snap == nil {
		return status
	}

	set := snap.engine.RuleSet()
	status.Loaded = true
	status.RulesLoaded = true
	status.RuleCount = set.Len()
	status.Version = set.Version()
	status.LoadedAt = snap.loadedAt

	if snap.citations != nil {
		status.CitationsLoaded = true
		status.CitationCount = snap.citations.Count()
	} else if snap.citationsErr != nil {
		status.CitationsError = snap.citationsErr.Error()
	}

	return status
}
