package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manonja/quickExpense-sub001/internal/cache"
	"github.com/manonja/quickExpense-sub001/internal/model"
	"github.com/manonja/quickExpense-sub001/internal/rules"
	"github.com/manonja/quickExpense-sub001/internal/stats"
	"github.com/manonja/quickExpense-sub001/internal/storage"
	"github.com/manonja/quickExpense-sub001/internal/taxrules"
	"github.com/manonja/quickExpense-sub001/internal/testutil"
)

func TestWriteResults(t *testing.T) {
	meals := model.BusinessRule{ID: "hotel_restaurant", Category: "Travel-Meals", DeductibilityPercentage: 50, TaxTreatment: model.TaxMealsLimitation}
	fallback := model.BusinessRule{ID: "fallback", Category: "Uncategorized", TaxTreatment: model.TaxStandard, IsFallback: true}

	items := []model.LineItem{
		model.NewLineItem("Restaurant Room Charge", decimal.RequireFromString("142.52")),
		model.NewLineItem("Mystery", decimal.RequireFromString("3")),
	}
	results := []model.CategorizationResult{
		model.NewResult(meals, 0.95, "matched"),
		model.NewResult(fallback, 0.30, "fallback"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, items, results))

	out := buf.String()
	assert.Contains(t, out, "Restaurant Room Charge")
	assert.Contains(t, out, "142.52")
	assert.Contains(t, out, "50% (71.26)")
	assert.Contains(t, out, "Travel-Meals")
	assert.Contains(t, out, "95%")
	assert.Contains(t, out, "? fallback")

	buf.Reset()
	WriteExplanations(&buf, results)
	assert.Contains(t, buf.String(), "matched")
}

func TestWriteRules(t *testing.T) {
	set, err := rules.NewLoader(nil).LoadFile(context.Background(), "../../configs/business_rules.json")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRules(&buf, set))

	out := buf.String()
	assert.Contains(t, out, "hotel_lodging")
	assert.Contains(t, out, "fallback (fallback)")
	assert.Contains(t, out, "≥ 500.00")
	assert.Contains(t, out, "≤ 499.99")
	assert.Equal(t, set.Len()+2, strings.Count(out, "\n"))
}

func TestSummarizeList(t *testing.T) {
	assert.Equal(t, "any", summarizeList(nil, 2))
	assert.Equal(t, "a, b", summarizeList([]string{"a", "b"}, 2))
	assert.Equal(t, "a, b, +2", summarizeList([]string{"a", "b", "c", "d"}, 2))
}

func TestRenderStatus(t *testing.T) {
	out := RenderStatus(cache.Status{
		Enabled:         true,
		Loaded:          true,
		RulesLoaded:     true,
		State:           "loaded",
		RuleCount:       15,
		CitationCount:   0,
		Version:         "2024.1",
		LoadedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		RulesPath:       "configs/business_rules.json",
		CitationsPath:   "configs/tax_citations.csv",
		CitationsError:  "file not found",
		CitationsLoaded: false,
	})

	assert.Contains(t, out, "15 rules")
	assert.Contains(t, out, "2024.1")
	assert.Contains(t, out, "not loaded")
	assert.Contains(t, out, "file not found")
}

func TestWriteStatistics(t *testing.T) {
	tracker := stats.NewTracker(nil)
	tracker.Record("hotel_lodging", false, 0.95)
	tracker.Record("gst_hst", false, 0.75)
	tracker.Record("fallback", true, 0.30)

	var buf bytes.Buffer
	require.NoError(t, WriteStatistics(&buf, tracker.Snapshot()))

	out := buf.String()
	assert.Contains(t, out, "Total applications: 3")
	assert.Contains(t, out, "Unique rules used:  2")
	assert.Contains(t, out, "Fallbacks:          1 (33.3%)")
	assert.Contains(t, out, "hotel_lodging")
}

func TestWriteDecisionsAndTotals(t *testing.T) {
	decisions := []storage.Decision{{
		CreatedAt:               time.Now(),
		BatchID:                 "0123456789abcdef",
		Description:             "Room Charge",
		Amount:                  decimal.RequireFromString("350"),
		Category:                "Travel-Lodging",
		DeductibilityPercentage: 100,
		Confidence:              0.95,
		RuleID:                  "hotel_lodging",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteDecisions(&buf, decisions))
	assert.Contains(t, buf.String(), "01234567")
	assert.NotContains(t, buf.String(), "0123456789abcdef")
	assert.Contains(t, buf.String(), "350.00")

	buf.Reset()
	require.NoError(t, WriteCategoryTotals(&buf, []storage.CategoryTotal{{
		Category:   "Travel-Meals",
		Count:      1,
		Amount:     decimal.RequireFromString("142.53"),
		Deductible: decimal.RequireFromString("71.27"),
	}}))
	assert.Contains(t, buf.String(), "71.27")
}

func TestWriteDecisions_FromAuditStore(t *testing.T) {
	ctx := context.Background()
	store := testutil.SetupAuditStore(t)

	meals := model.BusinessRule{ID: "hotel_restaurant", Category: "Travel-Meals", DeductibilityPercentage: 50, TaxTreatment: model.TaxMealsLimitation}
	items := []model.LineItem{model.NewLineItem("Restaurant Room Charge", decimal.RequireFromString("40"))}
	results := []model.CategorizationResult{model.NewResult(meals, 0.95, "matched")}

	_, err := store.SaveDecisions(ctx, "batch-1", "v1", nil, items, results)
	require.NoError(t, err)

	decisions, err := store.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	totals, err := store.SummarizeBatch(ctx, "batch-1")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDecisions(&buf, decisions))
	require.NoError(t, WriteCategoryTotals(&buf, totals))

	out := buf.String()
	assert.Contains(t, out, "batch-1")
	assert.Contains(t, out, "Restaurant Room Charge")
	assert.Contains(t, out, "40.00")
	assert.Contains(t, out, "20.00")
}

func TestWriteCitations(t *testing.T) {
	var buf bytes.Buffer
	WriteCitations(&buf, "Travel-Meals", nil)
	assert.Empty(t, buf.String())

	WriteCitations(&buf, "Travel-Meals", []taxrules.Citation{{Jurisdiction: "CA", Reference: "ITA s.67.1(1)", Description: "50% limit"}})
	assert.Contains(t, buf.String(), "CA ITA s.67.1(1)")
}

func TestFormatConfidence(t *testing.T) {
	assert.Contains(t, FormatConfidence(0.95), "95%")
	assert.Contains(t, FormatConfidence(0.3), "30%")
}

func TestInterruptHandler_Stop(t *testing.T) {
	var buf bytes.Buffer
	handler := NewInterruptHandler(&buf, "stopped")

	ctx, stop := handler.HandleInterrupts(context.Background())
	stop()
	stop()

	<-ctx.Done()
	assert.False(t, handler.WasInterrupted())
	assert.Empty(t, buf.String())
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 2, "Categorizing")

	p.Step()
	p.Step()
	p.Done()

	assert.NotEmpty(t, buf.String())
}
