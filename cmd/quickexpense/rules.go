package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/manonja/quickExpense-sub001/internal/cache"
	"github.com/manonja/quickExpense-sub001/internal/cli"
	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/model"
	"github.com/manonja/quickExpense-sub001/internal/rules"
	"github.com/manonja/quickExpense-sub001/internal/taxrules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and reload business rules",
	}

	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesStatusCmd())
	cmd.AddCommand(rulesReloadCmd())
	cmd.AddCommand(rulesValidateCmd())
	cmd.AddCommand(rulesWatchCmd())
	cmd.AddCommand(rulesCitationsCmd())

	return cmd
}

func rulesListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the loaded rules in evaluation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}

			set := eng.RuleSet()
			if jsonOutput {
				all := make([]model.BusinessRule, 0, set.Len())
				all = append(all, set.Rules()...)
				return writeJSON(cmd.OutOrStdout(), append(all, set.Fallback()))
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Business rules %s (%d)", set.Version(), set.Len())))
			return cli.WriteRules(out, set)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print rules as JSON")

	return cmd
}

func rulesStatusCmd() *cobra.Command {
	var (
		jsonOutput bool
		noLoad     bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show rule cache status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc := ruleCache()
			if !noLoad {
				if err := rc.LoadRules(cmd.Context()); err != nil && !errors.Is(err, common.ErrCacheDisabled) {
					slog.Warn("Rules failed to load", "error", err)
				}
			}

			status := rc.CacheStatus()
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), status)
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.RenderStatus(status))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print status as JSON")
	cmd.Flags().BoolVar(&noLoad, "no-load", false, "report status without loading rules")

	return cmd
}

func rulesReloadCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Re-read rules and citations from disk",
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := ruleCache().ReloadRules(cmd.Context())
			if err != nil {
				return common.NewUserError("Reload failed", err)
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}

			writeReloadResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the reload result as JSON")

	return cmd
}

func writeReloadResult(w io.Writer, r cache.ReloadResult) {
	_, _ = fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("Reloaded rules %s at %s", r.Version, r.LoadedAt.Local().Format(time.TimeOnly))))
	_, _ = fmt.Fprintf(w, "  Rules:     %d (was %d)\n", r.RuleCount, r.PreviousRuleCount)
	if r.CitationsLoaded {
		_, _ = fmt.Fprintf(w, "  Citations: %d (was %d)\n", r.CitationCount, r.PreviousCitationCount)
	} else {
		_, _ = fmt.Fprintln(w, "  "+cli.FormatWarning("Citations not loaded"))
	}
}

func rulesValidateCmd() *cobra.Command {
	var citations string

	cmd := &cobra.Command{
		Use:   "validate <rules-file>",
		Short: "Check a rules file without loading it into the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), args[0], citations)
		},
	}

	cmd.Flags().StringVar(&citations, "citations", "", "also check a tax citations file")

	return cmd
}

func runValidate(ctx context.Context, out io.Writer, path, citationsPath string) error {
	set, err := rules.NewLoader(slog.Default()).LoadFile(ctx, path)
	if err != nil {
		return common.NewUserError("Rules file is invalid", err)
	}
	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s: %d rules plus fallback %q (version %s)", path, len(set.Rules()), set.Fallback().ID, set.Version())))

	if citationsPath == "" {
		return nil
	}

	svc, err := taxrules.LoadFile(ctx, citationsPath, slog.Default())
	if err != nil {
		return common.NewUserError("Citations file is invalid", err)
	}
	_, _ = fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("%s: %d citations across %d categories", citationsPath, svc.Count(), len(svc.Categories()))))

	return nil
}

func rulesWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload rules whenever the files change",
		Long: `Watch the rules and citations files and reload on every change. A bad
edit is reported and the previous rules stay in effect. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			opts := cacheOptions(app.cfg)
			opts.OnReload = func(result cache.ReloadResult, err error) {
				if err != nil {
					_, _ = fmt.Fprintln(out, cli.FormatError("Reload failed, keeping previous rules: "+err.Error()))
					return
				}
				writeReloadResult(out, result)
			}
			rc := app.registry.Get(opts)

			if err := rc.LoadRules(cmd.Context()); err != nil {
				return common.NewUserError("Business rules are not available", err)
			}
			_, _ = fmt.Fprintln(out, cli.RenderStatus(rc.CacheStatus()))
			_, _ = fmt.Fprintln(out, cli.FormatInfo("Watching for changes..."))

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Stopping watcher")
			ctx, stop := handler.HandleInterrupts(cmd.Context())
			defer stop()

			err := rc.Watch(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func rulesCitationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "citations [category]",
		Short: "Show tax citations for a category, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ruleCache().TaxRulesService(cmd.Context())
			if err != nil {
				return common.NewUserError("Tax citations are not available", err)
			}

			out := cmd.OutOrStdout()
			categories := svc.Categories()
			if len(args) == 1 {
				categories = []string{strings.TrimSpace(args[0])}
			}

			found := false
			for _, category := range categories {
				citations := svc.Citations(category)
				if len(citations) == 0 {
					continue
				}
				found = true
				cli.WriteCitations(out, category, citations)
			}
			if !found {
				_, _ = fmt.Fprintln(out, cli.FormatWarning("No citations found"))
			}
			return nil
		},
	}
}
