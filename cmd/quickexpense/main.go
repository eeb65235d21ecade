package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/manonja/quickExpense-sub001/internal/cache"
	"github.com/manonja/quickExpense-sub001/internal/cli"
	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/config"
)

// application holds what startup builds and commands share.
type application struct {
	registry *cache.Registry
	metrics  *prometheus.Registry
	cfg      config.Config
}

var (
	cfgFile string
	envFile string
	version = "dev"
	app     *application
	rootCmd = &cobra.Command{
		Use:   "quickexpense",
		Short: "🧾 Expense line-item categorization engine",
		Long: `quickexpense categorizes receipt line items into accounting categories
with tax-deductibility percentages, using a priority-ordered business rule set
that can be reloaded without restarting.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/quickexpense/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with QUICKEXPENSE_* overrides")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("rules", "", "business rules file (overrides rules.path)")
	rootCmd.PersistentFlags().String("citations", "", "tax citations file (overrides rules.citations_path)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(categorizeCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := loadEnvFile(envFile); err != nil {
		return err
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		viper.AddConfigPath(fmt.Sprintf("%s/.config/quickexpense", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	if path, _ := cmd.Flags().GetString("rules"); path != "" {
		viper.Set("rules.path", path)
	}
	if path, _ := cmd.Flags().GetString("citations"); path != "" {
		viper.Set("rules.citations_path", path)
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	if err := common.SetupLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	app = &application{
		cfg:      cfg,
		registry: cache.NewRegistry(slog.Default()),
		metrics:  prometheus.NewRegistry(),
	}

	slog.Debug("Configuration loaded",
		"config_file", viper.ConfigFileUsed(),
		"rules", cfg.Rules.Path,
		"citations", cfg.Rules.CitationsPath)

	return nil
}

// loadEnvFile loads path into the environment when it exists. Variables
// already set keep their values.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "quickexpense %s\n", version)
		},
	}
}
