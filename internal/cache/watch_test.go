package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/testutil"
)

func TestRuleCache_WatchReloadsOnChange(t *testing.T) {
	c, opts := setupCache(t, true)
	c.opts.WatchDebounce = 20 * time.Millisecond

	reloads := make(chan ReloadResult, 16)
	c.opts.OnReload = func(result ReloadResult, err error) {
		if err == nil {
			reloads <- result
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.LoadRules(ctx))

	watchErr := make(chan error, 1)
	go func() { watchErr <- c.Watch(ctx) }()

	// Rewrite until the watcher is registered and picks a change up.
	require.Eventually(t, func() bool {
		testutil.WriteFile(t, opts.RulesPath, testutil.RulesDoc("v2", "parking"))
		select {
		case result := <-reloads:
			return result.Version == "v2"
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	assert.Equal(t, 4, c.CacheStatus().RuleCount)

	cancel()
	select {
	case err := <-watchErr:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestRuleCache_WatchKeepsSnapshotOnBadEdit(t *testing.T) {
	c, opts := setupCache(t, true)
	c.opts.WatchDebounce = 20 * time.Millisecond

	failures := make(chan error, 16)
	c.opts.OnReload = func(_ ReloadResult, err error) {
		if err != nil {
			failures <- err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, c.LoadRules(ctx))

	go func() { _ = c.Watch(ctx) }()

	require.Eventually(t, func() bool {
		testutil.WriteFile(t, opts.RulesPath, `{"version": "bad"`)
		select {
		case <-failures:
			return true
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	status := c.CacheStatus()
	assert.True(t, status.Loaded)
	assert.Equal(t, "v1", status.Version)
}

func TestWatchTargets(t *testing.T) {
	dir := t.TempDir()

	targets, dirs, err := watchTargets(filepath.Join(dir, "a.json"), filepath.Join(dir, "b.csv"), "")
	require.NoError(t, err)
	assert.Len(t, targets, 2)
	assert.Equal(t, []string{dir}, dirs)

	_, _, err = watchTargets("", "")
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(nil)

	a := r.Get(Options{RulesPath: "configs/rules.json", CitationsPath: "configs/c.csv", Enabled: true})
	same := r.Get(Options{RulesPath: "./configs/x/../rules.json", CitationsPath: "configs/c.csv", Enabled: false})
	other := r.Get(Options{RulesPath: "configs/rules.json", CitationsPath: "other.csv", Enabled: true})

	assert.Same(t, a, same)
	assert.NotSame(t, a, other)
	assert.True(t, same.Options().Enabled)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []Key{
		{RulesPath: "configs/rules.json", CitationsPath: "configs/c.csv"},
		{RulesPath: "configs/rules.json", CitationsPath: "other.csv"},
	}, r.Keys())
}
