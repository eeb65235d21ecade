package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manonja/quickExpense-sub001/internal/cli"
	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/storage"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Review recorded categorization decisions",
	}

	cmd.AddCommand(auditListCmd())
	cmd.AddCommand(auditShowCmd())

	return cmd
}

func auditListCmd() *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := initAuditStore(cmd.Context())
			if err != nil {
				return common.NewUserError("Could not open the audit log", err)
			}
			defer closeStore(store)

			decisions, err := store.ListDecisions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, decisions)
			}
			if len(decisions) == 0 {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("No decisions recorded yet"))
				return nil
			}
			return cli.WriteDecisions(out, decisions)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of decisions")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print decisions as JSON")

	return cmd
}

func auditShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show one batch with per-category totals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID := strings.TrimSpace(args[0])

			store, err := initAuditStore(cmd.Context())
			if err != nil {
				return common.NewUserError("Could not open the audit log", err)
			}
			defer closeStore(store)

			decisions, err := store.GetBatch(cmd.Context(), batchID)
			if errors.Is(err, common.ErrNotFound) {
				return common.NewUserError("No batch "+batchID, err)
			}
			if err != nil {
				return err
			}

			totals, err := store.SummarizeBatch(cmd.Context(), batchID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return writeJSON(out, struct {
					Decisions []storage.Decision      `json:"decisions"`
					Totals    []storage.CategoryTotal `json:"totals"`
				}{decisions, totals})
			}

			if err := cli.WriteDecisions(out, decisions); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(out)
			return cli.WriteCategoryTotals(out, totals)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the batch as JSON")

	return cmd
}

func closeStore(store *storage.AuditStore) {
	if err := store.Close(); err != nil {
		slog.Warn("Failed to close audit store", "error", err)
	}
}
