package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/manonja/quickExpense-sub001/internal/cache"
	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/config"
	"github.com/manonja/quickExpense-sub001/internal/engine"
	"github.com/manonja/quickExpense-sub001/internal/storage"
)

// cacheOptions maps configuration onto rule cache options.
func cacheOptions(cfg config.Config) cache.Options {
	return cache.Options{
		RulesPath:     cfg.Rules.Path,
		CitationsPath: cfg.Rules.CitationsPath,
		Enabled:       cfg.Rules.Enabled,
		WatchDebounce: cfg.Rules.WatchDebounce,
		Engine:        engine.Config{Confidence: cfg.Engine.Confidence},
		Registerer:    app.metrics,
	}
}

// ruleCache returns the shared cache for the configured rule files.
func ruleCache() *cache.RuleCache {
	return app.registry.Get(cacheOptions(app.cfg))
}

// loadEngine returns the engine, translating load failures for the user.
func loadEngine(ctx context.Context) (*engine.CategorizationEngine, error) {
	eng, err := ruleCache().BusinessRuleEngine(ctx)
	if err != nil {
		return nil, common.NewUserError("Business rules are not available", err)
	}
	return eng, nil
}

// initAuditStore opens the audit database and runs migrations.
func initAuditStore(ctx context.Context) (*storage.AuditStore, error) {
	store, err := storage.NewAuditStore(app.cfg.Audit.DatabasePath, nil)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
