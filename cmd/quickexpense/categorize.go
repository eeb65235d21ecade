package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/manonja/quickExpense-sub001/internal/cli"
	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/engine"
	"github.com/manonja/quickExpense-sub001/internal/model"
)

type categorizeOptions struct {
	description   string
	amount        string
	vendor        string
	purpose       string
	location      string
	date          string
	paymentMethod string
	file          string
	quantity      int
	audit         bool
	explain       bool
	citations     bool
	jsonOutput    bool
}

func categorizeCmd() *cobra.Command {
	var opts categorizeOptions

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Categorize expense line items",
		Long: `Categorize one line item from flags, or many from a CSV file with
description and amount columns. Expense-level context such as the vendor and
business purpose applies to every item.`,
		Example: `  quickexpense categorize --description "Marketing Fee" --amount 25 --vendor "Courtyard by Marriott Edmonton"
  quickexpense categorize --file folio.csv --vendor "Courtyard by Marriott Edmonton" --audit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCategorize(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.description, "description", "", "line item description")
	cmd.Flags().StringVar(&opts.amount, "amount", "", "line item amount")
	cmd.Flags().IntVar(&opts.quantity, "quantity", 1, "line item quantity")
	cmd.Flags().StringVar(&opts.vendor, "vendor", "", "vendor name for the whole expense")
	cmd.Flags().StringVar(&opts.purpose, "purpose", "", "business purpose")
	cmd.Flags().StringVar(&opts.location, "location", "", "where the expense was incurred")
	cmd.Flags().StringVar(&opts.date, "date", "", "transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.paymentMethod, "payment-method", "", "payment method")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "CSV file of line items")
	cmd.Flags().BoolVar(&opts.audit, "audit", false, "record decisions in the audit log")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "show why each rule was chosen")
	cmd.Flags().BoolVar(&opts.citations, "citations", false, "show tax citations for each category")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")

	cmd.MarkFlagsMutuallyExclusive("file", "description")

	return cmd
}

func runCategorize(ctx context.Context, out, errOut io.Writer, opts categorizeOptions) error {
	ectx, err := opts.expenseContext()
	if err != nil {
		return err
	}

	items, err := opts.lineItems()
	if err != nil {
		return err
	}

	eng, err := loadEngine(ctx)
	if err != nil {
		return err
	}

	results, err := categorizeWithProgress(ctx, eng, items, ectx, errOut, opts.file != "" && !opts.jsonOutput)
	if err != nil {
		return err
	}

	var batchID string
	if opts.audit || app.cfg.Audit.Enabled {
		batchID, err = auditResults(ctx, eng.RuleSet().Version(), ectx, items, results)
		if err != nil {
			return err
		}
	}

	if opts.jsonOutput {
		return writeJSON(out, categorizeReport{BatchID: batchID, Context: ectx, Items: items, Results: results})
	}

	_, _ = fmt.Fprintln(out, cli.FormatTitle(fmt.Sprintf("Categorized %d line item(s)", len(results))))
	if err := cli.WriteResults(out, items, results); err != nil {
		return err
	}

	if opts.explain {
		_, _ = fmt.Fprintln(out)
		cli.WriteExplanations(out, results)
	}

	if opts.citations {
		writeResultCitations(ctx, out, results)
	}

	if batchID != "" {
		_, _ = fmt.Fprintln(out)
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Saved to audit log as batch "+batchID))
	}

	return nil
}

type categorizeReport struct {
	Context *model.ExpenseContext        `json:"context,omitempty"`
	BatchID string                       `json:"batch_id,omitempty"`
	Items   []model.LineItem             `json:"items"`
	Results []model.CategorizationResult `json:"results"`
}

// categorizeWithProgress runs the batch, stopping early if ctx is canceled.
func categorizeWithProgress(ctx context.Context, eng *engine.CategorizationEngine, items []model.LineItem, ectx *model.ExpenseContext, errOut io.Writer, showProgress bool) ([]model.CategorizationResult, error) {
	var progress *cli.Progress
	if showProgress && len(items) > 1 {
		progress = cli.NewProgress(errOut, len(items), "Categorizing line items...")
	}

	results := make([]model.CategorizationResult, 0, len(items))
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, eng.CategorizeLineItem(item.Description, "", item.Amount, ectx))
		if progress != nil {
			progress.Step()
		}
	}
	if progress != nil {
		progress.Done()
	}

	return results, nil
}

func auditResults(ctx context.Context, rulesVersion string, ectx *model.ExpenseContext, items []model.LineItem, results []model.CategorizationResult) (string, error) {
	store, err := initAuditStore(ctx)
	if err != nil {
		return "", common.NewUserError("Could not open the audit log", err)
	}
	defer closeStore(store)

	batchID := uuid.NewString()
	if _, err := store.SaveDecisions(ctx, batchID, rulesVersion, ectx, items, results); err != nil {
		return "", fmt.Errorf("failed to save decisions: %w", err)
	}
	return batchID, nil
}

func writeResultCitations(ctx context.Context, out io.Writer, results []model.CategorizationResult) {
	svc, err := ruleCache().TaxRulesService(ctx)
	if err != nil {
		_, _ = fmt.Fprintln(out, cli.FormatWarning("Tax citations unavailable: "+err.Error()))
		return
	}

	_, _ = fmt.Fprintln(out)
	seen := make(map[string]bool)
	for _, r := range results {
		if seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		cli.WriteCitations(out, r.Category, svc.Citations(r.Category))
	}
}

func (o categorizeOptions) expenseContext() (*model.ExpenseContext, error) {
	ectx := &model.ExpenseContext{
		VendorName:      strings.TrimSpace(o.vendor),
		BusinessPurpose: strings.TrimSpace(o.purpose),
		Location:        strings.TrimSpace(o.location),
		PaymentMethod:   strings.TrimSpace(o.paymentMethod),
	}

	if o.date != "" {
		date, err := time.Parse("2006-01-02", o.date)
		if err != nil {
			return nil, common.NewUserError("Invalid --date, expected YYYY-MM-DD", err)
		}
		ectx.TransactionDate = date
	}

	if *ectx == (model.ExpenseContext{}) {
		return nil, nil //nolint:nilnil // no context is a valid input
	}
	return ectx, nil
}

func (o categorizeOptions) lineItems() ([]model.LineItem, error) {
	if o.file != "" {
		f, err := os.Open(o.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open line items: %w", err)
		}
		defer func() { _ = f.Close() }()

		items, err := cli.ReadLineItems(f)
		if err != nil {
			return nil, common.NewUserError("Could not read "+o.file, err)
		}
		return items, nil
	}

	if strings.TrimSpace(o.description) == "" || o.amount == "" {
		return nil, common.NewUserError("Provide --description and --amount, or --file", nil)
	}

	amount, err := cli.ParseAmount(o.amount)
	if err != nil {
		return nil, common.NewUserError("Invalid --amount", err)
	}

	item := model.NewLineItem(strings.TrimSpace(o.description), amount)
	item.Quantity = o.quantity
	if err := item.Validate(); err != nil {
		return nil, common.NewUserError("Invalid line item", err)
	}

	return []model.LineItem{item}, nil
}
