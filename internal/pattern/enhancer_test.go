package pattern

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manonja/quickExpense-sub001/internal/model"
)

func TestLess(t *testing.T) {
	descOnly := Match{Rule: Rule{ID: "services", Priority: 60}, Keyword: "marketing", Order: 0}
	vendor := Match{Rule: Rule{ID: "lodging", Priority: 40}, Keyword: "marketing fee", VendorPattern: "*marriott*", Order: 1, VendorOverride: true}
	vendorNoOverride := Match{Rule: Rule{ID: "vendor_only", Priority: 10}, VendorPattern: "*best buy*", Order: 5}
	highPriority := Match{Rule: Rule{ID: "gst", Priority: 100}, Keyword: "gst", Order: 2}
	sameButSpecific := Match{Rule: Rule{ID: "specific", Priority: 60}, Keyword: "marketing", AmountBounded: true, Order: 3}
	sameLater := Match{Rule: Rule{ID: "later", Priority: 60}, Keyword: "marketing", Order: 4}

	tests := []struct {
		name string
		a, b Match
		want bool
	}{
		{"vendor beats higher priority description rule", vendor, descOnly, true},
		{"description rule loses to vendor", descOnly, vendor, false},
		{"vendor without override falls back to priority", descOnly, vendorNoOverride, true},
		{"higher priority wins without vendor", highPriority, descOnly, true},
		{"specificity breaks priority tie", sameButSpecific, descOnly, true},
		{"declaration order breaks full tie", descOnly, sameLater, true},
		{"irreflexive", descOnly, descOnly, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Less(tt.a, tt.b))
		})
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []Match{
		{Rule: Rule{ID: "a", Priority: 1}, Order: 0},
		{Rule: Rule{ID: "b", Priority: 5}, Order: 1},
		{Rule: Rule{ID: "c", Priority: 5}, VendorPattern: "*x*", Order: 2},
	}

	ranked := Rank(in)

	assert.Equal(t, []string{"c", "b", "a"}, matchIDs(ranked))
	assert.Equal(t, []string{"a", "b", "c"}, matchIDs(in))
}

func TestRank_VendorOverride(t *testing.T) {
	tests := []struct {
		name    string
		in      []Match
		wantIDs []string
	}{
		{
			name: "vendor rule at least as specific overrides priority",
			in: []Match{
				{Rule: Rule{ID: "professional_services", Priority: 60}, Keyword: "marketing", Order: 0},
				{Rule: Rule{ID: "hotel_lodging", Priority: 40}, Keyword: "marketing fee", VendorPattern: "*marriott*", Order: 1},
			},
			wantIDs: []string{"hotel_lodging", "professional_services"},
		},
		{
			name: "less specific vendor-only rule does not beat keyword and amount rule",
			in: []Match{
				{Rule: Rule{ID: "vendor_only", Priority: 10}, VendorPattern: "*best buy*", Order: 0},
				{Rule: Rule{ID: "capital", Priority: 90}, Keyword: "laptop", AmountBounded: true, Order: 1},
			},
			wantIDs: []string{"capital", "vendor_only"},
		},
		{
			name: "override is judged against the most specific description rule",
			in: []Match{
				{Rule: Rule{ID: "vendor_only", Priority: 10}, VendorPattern: "*acme*", Order: 0},
				{Rule: Rule{ID: "broad", Priority: 50}, Keyword: "fee", Order: 1},
				{Rule: Rule{ID: "narrow", Priority: 30}, Keyword: "fee", AmountBounded: true, Order: 2},
			},
			wantIDs: []string{"broad", "narrow", "vendor_only"},
		},
		{
			name: "vendor rules alone rank by priority",
			in: []Match{
				{Rule: Rule{ID: "lodging", Priority: 80}, Keyword: "room", VendorPattern: "*hotel*", Order: 0},
				{Rule: Rule{ID: "restaurant", Priority: 90}, Keyword: "restaurant", VendorPattern: "*hotel*", Order: 1},
			},
			wantIDs: []string{"restaurant", "lodging"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranked := Rank(tt.in)
			assert.Equal(t, tt.wantIDs, matchIDs(ranked))

			for i := range ranked {
				for j := range ranked {
					if i == j {
						continue
					}
					assert.False(t, Less(ranked[i], ranked[j]) && Less(ranked[j], ranked[i]), "asymmetric")
				}
			}
		})
	}
}

func TestContextEnhancer_SelectKeepsPriorityOverWeakVendorRule(t *testing.T) {
	e := NewContextEnhancer(DefaultConfidencePolicy())

	capital := buildRule(t, ruleFixture{id: "capital", keywords: []string{"laptop"}, min: decPtr("500"), priority: 90})
	vendorOnly := buildRule(t, ruleFixture{id: "vendor_only", vendors: []string{"*best buy*"}, priority: 10})

	matches := NewMatcher([]Rule{capital, vendorOnly}).Match("Laptop", "Best Buy", decimal.NewFromInt(1200))
	require.Len(t, matches, 2)

	d, ok := e.Select(matches, nil)
	require.True(t, ok)
	assert.Equal(t, "capital", d.Match.Rule.ID)
	assert.InDelta(t, 0.80, d.Confidence, 1e-9)
}

func TestContextEnhancer_Confidence(t *testing.T) {
	e := NewContextEnhancer(DefaultConfidencePolicy())

	descOnly := Match{Keyword: "marketing"}
	withVendor := Match{Keyword: "marketing fee", VendorPattern: "*marriott*"}
	vendorOnly := Match{VendorPattern: "*marriott*"}
	everything := Match{Keyword: "laptop", VendorPattern: "*store*", AmountBounded: true}
	trivial := Match{}

	assert.InDelta(t, 0.75, e.Confidence(descOnly, false), 1e-9)
	assert.InDelta(t, 0.95, e.Confidence(withVendor, false), 1e-9)
	assert.InDelta(t, 0.90, e.Confidence(vendorOnly, false), 1e-9)
	assert.InDelta(t, 1.0, e.Confidence(everything, false), 1e-9)
	assert.InDelta(t, 0.70, e.Confidence(trivial, false), 1e-9)
	assert.InDelta(t, 0.77, e.Confidence(descOnly, true), 1e-9)

	assert.GreaterOrEqual(t, e.Confidence(withVendor, false), 0.90)
	assert.Less(t, e.Confidence(descOnly, false), e.Confidence(withVendor, false))
	assert.InDelta(t, 0.30, e.FallbackConfidence(), 1e-9)
}

func TestContextEnhancer_ConfidenceClamped(t *testing.T) {
	policy := DefaultConfidencePolicy()
	policy.VendorBoost = 0.9
	policy.PurposeBoost = 0.5
	e := NewContextEnhancer(policy)

	got := e.Confidence(Match{Keyword: "x", VendorPattern: "*y*", AmountBounded: true}, true)
	assert.Equal(t, 1.0, got)
}

func TestContextEnhancer_Select(t *testing.T) {
	e := NewContextEnhancer(DefaultConfidencePolicy())

	_, ok := e.Select(nil, nil)
	assert.False(t, ok)

	lodging := buildRule(t, ruleFixture{id: "lodging", category: "Travel-Lodging", keywords: []string{"marketing fee"}, vendors: []string{"*marriott*"}, priority: 80})
	services := buildRule(t, ruleFixture{id: "services", category: "Professional Services", keywords: []string{"marketing"}, priority: 90})

	matches := []Match{
		{Rule: services, Keyword: "marketing", Order: 1},
		{Rule: lodging, Keyword: "marketing fee", VendorPattern: "*marriott*", Order: 0},
	}

	ectx := &model.ExpenseContext{VendorName: "Courtyard by Marriott", BusinessPurpose: "Client visit, lodging in Edmonton"}
	d, ok := e.Select(matches, ectx)
	require.True(t, ok)
	assert.Equal(t, "lodging", d.Match.Rule.ID)
	assert.Equal(t, 2, d.Candidates)
	assert.True(t, d.PurposeHit)
	assert.InDelta(t, 0.97, d.Confidence, 1e-9)
}

func TestConfidencePolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfidencePolicy().Validate())

	bad := DefaultConfidencePolicy()
	bad.VendorFloor = 1.5
	assert.Error(t, bad.Validate())

	inverted := DefaultConfidencePolicy()
	inverted.Base = 0.9
	inverted.BaselineMax = 0.8
	assert.Error(t, inverted.Validate())
}

func TestExplain(t *testing.T) {
	rule := buildRule(t, ruleFixture{id: "equipment_capital", keywords: []string{"laptop"}, min: decPtr("500"), priority: 42})

	got := Explain(Decision{
		Match:      Match{Rule: rule, Keyword: "laptop", AmountBounded: true},
		Candidates: 2,
	})

	assert.Contains(t, got, `Matched rule "equipment_capital" (priority 42)`)
	assert.Contains(t, got, `keyword "laptop"`)
	assert.Contains(t, got, "amount at least $500.00")
	assert.Contains(t, got, "chosen over 1 other candidate(s)")

	assert.Equal(t, `No rule matched; applied fallback "fallback"`, ExplainFallback(Rule{ID: "fallback"}))
}
