package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/manonja/quickExpense-sub001/internal/common"
)

const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watch reloads the cache when the rule or citation file changes, until ctx
// is done. Parent directories are watched so editors that replace files by
// rename are still seen. A failed reload is logged and not retried.
func (c *RuleCache) Watch(ctx context.Context) error {
	if !c.opts.Enabled {
		return common.ErrCacheDisabled
	}

	targets, dirs, err := watchTargets(c.opts.RulesPath, c.opts.CitationsPath)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil {
			c.logger.Warn("Failed to close file watcher", "error", closeErr)
		}
	}()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	c.logger.Info("Watching rule files",
		"rules", c.opts.RulesPath,
		"citations", c.opts.CitationsPath,
		"debounce", c.opts.WatchDebounce)

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, tracked := targets[filepath.Clean(event.Name)]; !tracked {
				continue
			}
			if event.Op&reloadOps == 0 {
				continue
			}

			c.logger.Debug("Rule file changed", "file", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(c.opts.WatchDebounce)
			} else {
				timer.Reset(c.opts.WatchDebounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("File watcher error", "error", err)

		case <-fire:
			fire = nil
			result, err := c.ReloadRules(ctx)
			if err != nil {
				c.logger.Error("Rule reload failed; previous rules still serving", "error", err)
			}
			if c.opts.OnReload != nil {
				c.opts.OnReload(result, err)
			}
		}
	}
}

// watchTargets resolves the files to track and the directories to watch.
func watchTargets(paths ...string) (map[string]struct{}, []string, error) {
	targets := make(map[string]struct{}, len(paths))
	seenDirs := make(map[string]struct{}, len(paths))
	var dirs []string

	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve %s: %w", p, err)
		}
		targets[abs] = struct{}{}

		dir := filepath.Dir(abs)
		if _, ok := seenDirs[dir]; !ok {
			seenDirs[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}

	if len(targets) == 0 {
		return nil, nil, fmt.Errorf("%w: no rule files to watch", common.ErrMissingConfig)
	}

	return targets, dirs, nil
}
