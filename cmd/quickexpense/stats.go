package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/manonja/quickExpense-sub001/internal/cli"
	"github.com/manonja/quickExpense-sub001/internal/common"
)

func statsCmd() *cobra.Command {
	var (
		file        string
		vendor      string
		purpose     string
		jsonOutput  bool
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Categorize a file and report rule usage",
		Long: `Categorize every line item in a CSV file and report how often each
rule fired, the average confidence, and the share of items that fell back.`,
		Example: `  quickexpense stats --file folio.csv --vendor "Courtyard by Marriott"
  quickexpense stats --file folio.csv --metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := categorizeOptions{file: file, vendor: vendor, purpose: purpose}

			items, err := opts.lineItems()
			if err != nil {
				return err
			}
			ectx, err := opts.expenseContext()
			if err != nil {
				return err
			}

			eng, err := loadEngine(cmd.Context())
			if err != nil {
				return err
			}

			if _, err := categorizeWithProgress(cmd.Context(), eng, items, ectx, cmd.ErrOrStderr(), !jsonOutput); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			snapshot := ruleCache().Statistics()
			if jsonOutput {
				return writeJSON(out, snapshot)
			}

			_, _ = fmt.Fprintln(out, cli.TitleStyle.Render(cli.ChartIcon+" Rule usage"))
			if err := cli.WriteStatistics(out, snapshot); err != nil {
				return err
			}

			if showMetrics {
				_, _ = fmt.Fprintln(out)
				return writeMetrics(out, app.metrics)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file of line items")
	cmd.Flags().StringVar(&vendor, "vendor", "", "vendor name for the whole expense")
	cmd.Flags().StringVar(&purpose, "purpose", "", "business purpose")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print statistics as JSON")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "also print collected metrics")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// writeMetrics prints every gathered counter, gauge and histogram sample.
func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return common.NewUserError("Could not gather metrics", err)
	}

	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName() + labelString(m.GetLabel())
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				_, _ = fmt.Fprintf(w, "%s %g\n", name, m.GetCounter().GetValue())
			case dto.MetricType_GAUGE:
				_, _ = fmt.Fprintf(w, "%s %g\n", name, m.GetGauge().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				_, _ = fmt.Fprintf(w, "%s count=%d sum=%g\n", name, h.GetSampleCount(), h.GetSampleSum())
			default:
				_, _ = fmt.Fprintf(w, "%s (%s)\n", name, mf.GetType())
			}
		}
	}
	return nil
}

func labelString(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, l := range labels {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%q", l.GetName(), l.GetValue())
	}
	b.WriteByte('}')
	return b.String()
}
