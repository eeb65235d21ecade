package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/pattern"
)

// EnvPrefix is the prefix for environment overrides, e.g. QUICKEXPENSE_RULES_PATH.
const EnvPrefix = "QUICKEXPENSE"

// Config is the full application configuration.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Engine  EngineConfig  `mapstructure:"engine"`
}

// RulesConfig locates the rule and citation files.
type RulesConfig struct {
	Path          string        `mapstructure:"path"`
	CitationsPath string        `mapstructure:"citations_path"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	Enabled       bool          `mapstructure:"enabled"`
}

// EngineConfig tunes categorization scoring.
type EngineConfig struct {
	Confidence pattern.ConfidencePolicy `mapstructure:"confidence"`
}

// AuditConfig controls the decision audit log.
type AuditConfig struct {
	DatabasePath string `mapstructure:"database_path"`
	Enabled      bool   `mapstructure:"enabled"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default value.
func SetDefaults(v *viper.Viper) {
	policy := pattern.DefaultConfidencePolicy()

	v.SetDefault("rules.enabled", true)
	v.SetDefault("rules.path", "configs/business_rules.json")
	v.SetDefault("rules.citations_path", "configs/tax_citations.csv")
	v.SetDefault("rules.watch_debounce", "500ms")

	v.SetDefault("engine.confidence.base", policy.Base)
	v.SetDefault("engine.confidence.specificity_step", policy.SpecificityStep)
	v.SetDefault("engine.confidence.baseline_max", policy.BaselineMax)
	v.SetDefault("engine.confidence.vendor_boost", policy.VendorBoost)
	v.SetDefault("engine.confidence.vendor_floor", policy.VendorFloor)
	v.SetDefault("engine.confidence.purpose_boost", policy.PurposeBoost)
	v.SetDefault("engine.confidence.fallback", policy.FallbackConfidence)

	v.SetDefault("audit.enabled", false)
	v.SetDefault("audit.database_path", "~/.local/share/quickexpense/audit.db")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv makes QUICKEXPENSE_* variables override file values.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads configuration from v, applying defaults and validating values.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Rules.Path = ExpandPath(strings.TrimSpace(cfg.Rules.Path))
	cfg.Rules.CitationsPath = ExpandPath(strings.TrimSpace(cfg.Rules.CitationsPath))
	cfg.Audit.DatabasePath = ExpandPath(strings.TrimSpace(cfg.Audit.DatabasePath))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Rules.Enabled && c.Rules.Path == "" {
		return fmt.Errorf("%w: rules.path is required when rules are enabled", common.ErrMissingConfig)
	}
	if c.Rules.WatchDebounce < 0 {
		return fmt.Errorf("%w: rules.watch_debounce must not be negative", common.ErrInvalidConfig)
	}
	if err := c.Engine.Confidence.Validate(); err != nil {
		return fmt.Errorf("%w: engine.%w", common.ErrInvalidConfig, err)
	}
	if c.Audit.Enabled && c.Audit.DatabasePath == "" {
		return fmt.Errorf("%w: audit.database_path is required when audit is enabled", common.ErrMissingConfig)
	}
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %w", common.ErrInvalidConfig, err)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: logging.format must be console or json, got %q", common.ErrInvalidConfig, c.Logging.Format)
	}
	return nil
}
