package rules

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/model"
)

const validJSON = `{
  "version": "test-1",
  "rules": [
    {
      "id": "hotel_lodging",
      "name": "Hotel Lodging",
      "priority": 80,
      "conditions": {
        "description_keywords": ["Room Charge", "Marketing Fee"],
        "vendor_patterns": ["*Marriott*"]
      },
      "category": "Travel-Lodging",
      "deductibility_percentage": 100,
      "qb_account": "Travel - Lodging"
    },
    {
      "id": "equipment_capital",
      "name": "Capital Equipment",
      "priority": 42,
      "conditions": {"description_keywords": ["laptop"], "amount_min": 500},
      "category": "Equipment-Capital",
      "deductibility_percentage": 100,
      "qb_account": "Equipment",
      "tax_treatment": "gst_hst"
    }
  ],
  "fallback": {
    "id": "fallback",
    "name": "Uncategorized",
    "priority": -1000,
    "category": "Uncategorized",
    "deductibility_percentage": 0,
    "qb_account": "Uncategorized Expense"
  }
}`

const validYAML = `
version: test-yaml
rules:
  - id: gst
    name: GST
    priority: 100
    conditions:
      description_keywords: [GST, HST]
    category: Tax-GST/HST
    deductibility_percentage: 100
    qb_account: GST/HST Paid
    tax_treatment: gst_hst
  - id: fallback
    name: Uncategorized
    fallback: true
    category: Uncategorized
    deductibility_percentage: 0
    qb_account: Uncategorized Expense
`

func TestLoader_ParseJSON(t *testing.T) {
	set, err := NewLoader(nil).Parse([]byte(validJSON), FormatJSON, "inline")
	require.NoError(t, err)

	assert.Equal(t, "test-1", set.Version())
	assert.Equal(t, "inline", set.Source())
	assert.Equal(t, 3, set.Len())

	lodging, ok := set.Rule("hotel_lodging")
	require.True(t, ok)
	assert.Equal(t, []string{"room charge", "marketing fee"}, lodging.Conditions.DescriptionKeywords)
	assert.Equal(t, []string{"*marriott*"}, lodging.Conditions.VendorPatterns)
	assert.Len(t, lodging.Conditions.VendorGlobs(), 1)
	assert.Equal(t, model.TaxStandard, lodging.TaxTreatment)

	capital, ok := set.Rule("equipment_capital")
	require.True(t, ok)
	require.NotNil(t, capital.Conditions.AmountMin)
	assert.True(t, capital.Conditions.AmountMin.Equal(decimal.NewFromInt(500)))
	assert.Nil(t, capital.Conditions.AmountMax)
	assert.Equal(t, model.TaxGSTHST, capital.TaxTreatment)

	fallback := set.Fallback()
	assert.True(t, fallback.IsFallback)
	assert.Equal(t, "Uncategorized", fallback.Category)
	assert.Equal(t, 0, fallback.DeductibilityPercentage)
}

func TestLoader_ParseYAMLInlineFallback(t *testing.T) {
	set, err := NewLoader(nil).Parse([]byte(validYAML), FormatYAML, "inline.yaml")
	require.NoError(t, err)

	assert.Equal(t, "test-yaml", set.Version())
	require.Len(t, set.Rules(), 1)
	assert.Equal(t, "gst", set.Rules()[0].ID)
	assert.Equal(t, []string{"gst", "hst"}, set.Rules()[0].Conditions.DescriptionKeywords)
	assert.Equal(t, "fallback", set.Fallback().ID)
}

func TestLoader_ParseRejects(t *testing.T) {
	rule := func(extra string) string {
		return `{"id": "r1", "name": "R1", "category": "Cat", "qb_account": "Acct", "deductibility_percentage": 100` + extra + `}`
	}
	fallback := `{"id": "fallback", "name": "F", "fallback": true, "category": "Uncategorized", "qb_account": "U", "deductibility_percentage": 0}`
	doc := func(rules ...string) string {
		out := `{"version": "v", "rules": [`
		for i, r := range rules {
			if i > 0 {
				out += ","
			}
			out += r
		}
		return out + `]}`
	}

	tests := []struct {
		name    string
		data    string
		wantMsg string
		wantErr error
	}{
		{
			name:    "malformed json",
			data:    `{"rules": [`,
			wantMsg: "malformed document",
		},
		{
			name:    "empty document",
			data:    ``,
			wantMsg: "empty document",
		},
		{
			name:    "unknown field",
			data:    doc(rule(`, "colour": "red"`), fallback),
			wantMsg: "unknown field",
		},
		{
			name:    "missing fallback",
			data:    doc(rule("")),
			wantErr: model.ErrMissingFallback,
		},
		{
			name:    "two fallbacks",
			data:    doc(rule(""), fallback, `{"id": "fallback2", "name": "F2", "fallback": true, "category": "U", "qb_account": "U", "deductibility_percentage": 0}`),
			wantMsg: "exactly one fallback",
		},
		{
			name:    "duplicate id",
			data:    doc(rule(""), rule(""), fallback),
			wantErr: model.ErrDuplicateRuleID,
		},
		{
			name:    "rule reuses fallback id",
			data:    doc(`{"id": "fallback", "name": "X", "category": "C", "qb_account": "A", "deductibility_percentage": 10}`, `{"id": "fallback", "name": "F", "fallback": true, "category": "U", "qb_account": "U", "deductibility_percentage": 0}`),
			wantErr: model.ErrDuplicateRuleID,
		},
		{
			name:    "percentage above 100",
			data:    doc(`{"id": "r1", "name": "R1", "category": "Cat", "qb_account": "Acct", "deductibility_percentage": 150}`, fallback),
			wantMsg: "deductibility_percentage",
		},
		{
			name:    "percentage missing",
			data:    doc(`{"id": "r1", "name": "R1", "category": "Cat", "qb_account": "Acct"}`, fallback),
			wantMsg: "required",
		},
		{
			name:    "blank category",
			data:    doc(`{"id": "r1", "name": "R1", "category": "  ", "qb_account": "Acct", "deductibility_percentage": 10}`, fallback),
			wantMsg: "category",
		},
		{
			name:    "unknown tax treatment",
			data:    doc(rule(`, "tax_treatment": "luxury"`), fallback),
			wantMsg: "tax_treatment",
		},
		{
			name:    "min greater than max",
			data:    doc(rule(`, "conditions": {"amount_min": 100, "amount_max": 50}`), fallback),
			wantMsg: "greater than amount_max",
		},
		{
			name:    "negative amount",
			data:    doc(rule(`, "conditions": {"amount_min": -5}`), fallback),
			wantMsg: "amount_min",
		},
		{
			name:    "bad vendor glob",
			data:    doc(rule(`, "conditions": {"vendor_patterns": ["[marriott"]}`), fallback),
			wantMsg: "invalid vendor pattern",
		},
		{
			name:    "blank keyword",
			data:    doc(rule(`, "conditions": {"description_keywords": ["ok", " "]}`), fallback),
			wantMsg: "description_keywords",
		},
		{
			name:    "fallback with conditions",
			data:    doc(rule(""), `{"id": "fallback", "name": "F", "fallback": true, "category": "U", "qb_account": "U", "deductibility_percentage": 0, "conditions": {"description_keywords": ["x"]}}`),
			wantMsg: "must not declare conditions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewLoader(nil).Parse([]byte(tt.data), FormatJSON, "test.json")
			require.Error(t, err)
			assert.Nil(t, set)

			assert.True(t, IsConfigurationError(err))
			assert.True(t, errors.Is(err, common.ErrInvalidConfig))
			assert.Contains(t, err.Error(), "test.json")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoader_AmountBoundsKeepPrecision(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		data   string
	}{
		{
			name:   "json",
			format: FormatJSON,
			data: `{"version": "p", "rules": [{"id": "precise", "name": "Precise", "category": "X",
			  "deductibility_percentage": 100, "qb_account": "X",
			  "conditions": {"amount_min": 0.105, "amount_max": 12345678901234.5678}}],
			  "fallback": {"id": "fallback", "name": "F", "category": "U", "deductibility_percentage": 0, "qb_account": "U"}}`,
		},
		{
			name:   "yaml",
			format: FormatYAML,
			data: `
version: p
rules:
  - id: precise
    name: Precise
    category: X
    deductibility_percentage: 100
    qb_account: X
    conditions:
      amount_min: 0.105
      amount_max: 12345678901234.5678
fallback:
  id: fallback
  name: F
  category: U
  deductibility_percentage: 0
  qb_account: U
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewLoader(nil).Parse([]byte(tt.data), tt.format, "inline")
			require.NoError(t, err)

			rule, ok := set.Rule("precise")
			require.True(t, ok)
			require.NotNil(t, rule.Conditions.AmountMin)
			require.NotNil(t, rule.Conditions.AmountMax)
			assert.True(t, rule.Conditions.AmountMin.Equal(decimal.RequireFromString("0.105")))
			assert.True(t, rule.Conditions.AmountMax.Equal(decimal.RequireFromString("12345678901234.5678")))
		})
	}
}

func TestLoader_LoadFile(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "rules.json")
	yamlPath := filepath.Join(dir, "rules.yml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(validJSON), 0o600))
	require.NoError(t, os.WriteFile(yamlPath, []byte(validYAML), 0o600))

	loader := NewLoader(nil)

	set, err := loader.LoadFile(context.Background(), jsonPath)
	require.NoError(t, err)
	assert.Equal(t, jsonPath, set.Source())

	set, err = loader.LoadFile(context.Background(), yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "test-yaml", set.Version())

	_, err = loader.LoadFile(context.Background(), filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, IsConfigurationError(err))

	_, err = loader.LoadFile(context.Background(), " ")
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = loader.LoadFile(ctx, jsonPath)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader_DefaultConfiguration(t *testing.T) {
	set, err := NewLoader(nil).LoadFile(context.Background(), filepath.Join("..", "..", "configs", "business_rules.json"))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(set.Rules()), 10)
	assert.Equal(t, "fallback", set.Fallback().ID)

	for _, id := range []string{"gst_hst", "hotel_restaurant", "hotel_lodging", "professional_services"} {
		_, ok := set.Rule(id)
		assert.True(t, ok, "expected rule %s", id)
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("rules.YAML"))
	assert.Equal(t, FormatYAML, FormatFromPath("a/b/rules.yml"))
	assert.Equal(t, FormatJSON, FormatFromPath("rules.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("rules"))
}
