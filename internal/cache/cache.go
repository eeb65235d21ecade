// Package cache owns the lifecycle of the loaded rule set and citation table,
// with lazy loading and hot reload.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/engine"
	"github.com/manonja/quickExpense-sub001/internal/rules"
	"github.com/manonja/quickExpense-sub001/internal/stats"
	"github.com/manonja/quickExpense-sub001/internal/taxrules"
)

// State is the lifecycle state of a RuleCache.
type State int32

// Cache states.
const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a RuleCache.
type Options struct {
	Registerer    prometheus.Registerer
	OnReload      func(ReloadResult, error)
	RulesPath     string
	CitationsPath string
	Engine        engine.Config
	WatchDebounce time.Duration
	Enabled       bool
}

// DefaultWatchDebounce collapses bursts of editor writes into one reload.
const DefaultWatchDebounce = 500 * time.Millisecond

// snapshot is everything a reader needs, published as one pointer.
type snapshot struct {
	loadedAt     time.Time
	engine       *engine.CategorizationEngine
	citations    *taxrules.Service
	citationsErr error
}

// ReloadResult reports the counts before and after a reload.
type ReloadResult struct {
	LoadedAt              time.Time `json:"loaded_at"`
	Version               string    `json:"version"`
	RuleCount             int       `json:"rule_count"`
	CitationCount         int       `json:"citation_count"`
	PreviousRuleCount     int       `json:"previous_rule_count"`
	PreviousCitationCount int       `json:"previous_citation_count"`
	CitationsLoaded       bool      `json:"citations_loaded"`
}

// RuleCache lazily loads rules and swaps in replacements atomically.
// Readers never block on a reload and always see one complete snapshot.
type RuleCache struct {
	current atomic.Pointer[snapshot]
	loader  *rules.Loader
	tracker *stats.Tracker
	logger  *slog.Logger
	group   singleflight.Group
	opts    Options
	state   atomic.Int32
	loadMu  sync.Mutex
}

// New creates a cache in the unloaded state. Nothing is read until first use.
func New(opts Options, logger *slog.Logger) *RuleCache {
	if opts.WatchDebounce <= 0 {
		opts.WatchDebounce = DefaultWatchDebounce
	}
	if opts.Engine == (engine.Config{}) {
		opts.Engine = engine.DefaultConfig()
	}

	logger = common.OrDefault(logger)

	return &RuleCache{
		opts:    opts,
		loader:  rules.NewLoader(logger),
		tracker: stats.NewTracker(opts.Registerer),
		logger:  logger,
	}
}

// LoadRules loads the rule set if it is not loaded yet. Concurrent first
// callers share one load. The shared load ignores cancellation; each caller
// stops waiting when its own ctx is done.
func (c *RuleCache) LoadRules(ctx context.Context) error {
	if !c.opts.Enabled {
		return common.ErrCacheDisabled
	}
	if c.current.Load() != nil {
		return nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("load", func() (any, error) {
		return c.load(loadCtx, false)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BusinessRuleEngine returns the current engine, loading rules on first access.
func (c *RuleCache) BusinessRuleEngine(ctx context.Context) (*engine.CategorizationEngine, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, common.NewUnavailableError("business rule engine", err)
	}
	return snap.engine, nil
}

// TaxRulesService returns the current citation table, loading on first access.
// It fails when the citation table could not be loaded even if rules did.
func (c *RuleCache) TaxRulesService(ctx context.Context) (*taxrules.Service, error) {
	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, common.NewUnavailableError("tax rules service", err)
	}
	if snap.citations == nil {
		return nil, common.NewUnavailableError("tax rules service", snap.citationsErr)
	}
	return snap.citations, nil
}

// ReloadRules rebuilds the snapshot from the backing files and publishes it.
// On failure the previous snapshot keeps serving.
func (c *RuleCache) ReloadRules(ctx context.Context) (ReloadResult, error) {
	if !c.opts.Enabled {
		return ReloadResult{}, common.ErrCacheDisabled
	}
	return c.load(ctx, true)
}

// Statistics returns rule usage since the last load or reload.
func (c *RuleCache) Statistics() stats.Snapshot {
	return c.tracker.Snapshot()
}

// Options returns the cache configuration.
func (c *RuleCache) Options() Options {
	return c.opts
}

func (c *RuleCache) snapshot(ctx context.Context) (*snapshot, error) {
	if snap := c.current.Load(); snap != nil {
		return snap, nil
	}
	if err := c.LoadRules(ctx); err != nil {
		return nil, err
	}
	snap := c.current.Load()
	if snap == nil {
		return nil, errors.New("rules not loaded")
	}
	return snap, nil
}

// load builds a complete snapshot off to the side and publishes it with one
// pointer store. Loads are serialized.
func (c *RuleCache) load(ctx context.Context, force bool) (ReloadResult, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	previous := c.current.Load()
	if previous != nil && !force {
		return c.resultFor(previous, previous), nil
	}

	prevState := State(c.state.Swap(int32(StateLoading)))
	start := time.Now()

	next, err := c.build(ctx)
	if err != nil {
		c.state.Store(int32(prevState))
		c.logger.Error("Failed to load business rules",
			"rules", c.opts.RulesPath,
			"reload", force,
			"error", err)
		return ReloadResult{}, err
	}

	c.current.Store(next)
	c.state.Store(int32(StateLoaded))
	if previous != nil {
		c.tracker.Reset()
	}

	result := c.resultFor(previous, next)
	c.logger.Info("Business rules loaded",
		"rules", c.opts.RulesPath,
		"citations", c.opts.CitationsPath,
		"version", result.Version,
		"rule_count", result.RuleCount,
		"citation_count", result.CitationCount,
		"reload", previous != nil,
		"duration", time.Since(start))

	return result, nil
}

// build parses rules and citations independently. A rules failure aborts the
// load; a citations failure is recorded on the snapshot.
func (c *RuleCache) build(ctx context.Context) (*snapshot, error) {
	set, err := c.loader.LoadFile(ctx, c.opts.RulesPath)
	if err != nil {
		return nil, err
	}

	snap := &snapshot{
		engine:   engine.NewWithConfig(set, c.tracker, c.logger, c.opts.Engine),
		loadedAt: time.Now(),
	}

	citations, err := taxrules.LoadFile(ctx, c.opts.CitationsPath, c.logger)
	if err != nil {
		c.logger.Warn("Tax citations unavailable; serving rules without them",
			"citations", c.opts.CitationsPath,
			"error", err)
		snap.citationsErr = err
	} else {
		snap.citations = citations
	}

	return snap, nil
}

func (c *RuleCache) resultFor(previous, next *snapshot) ReloadResult {
	result := ReloadResult{
		LoadedAt:        next.loadedAt,
		Version:         next.engine.RuleSet().Version(),
		RuleCount:       next.engine.RuleSet().Len(),
		CitationsLoaded: next.citations != nil,
	}
	if next.citations != nil {
		result.CitationCount = next.citations.Count()
	}
	if previous != nil {
		result.PreviousRuleCount = previous.engine.RuleSet().Len()
		if previous.citations != nil {
			result.PreviousCitationCount = previous.citations.Count()
		}
	}
	return result
}
