package rules

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/manonja/quickExpense-sub001/internal/model"
)

// Document is the on-disk shape of a rule configuration.
type Document struct {
	Fallback *RuleDocument  `json:"fallback,omitempty" yaml:"fallback,omitempty"`
	Version  string         `json:"version" yaml:"version"`
	Rules    []RuleDocument `json:"rules" yaml:"rules"`
}

// RuleDocument is one rule entry before validation.
type RuleDocument struct {
	DeductibilityPercentage *int              `json:"deductibility_percentage" yaml:"deductibility_percentage" validate:"required,min=0,max=100"`
	ID                      string            `json:"id" yaml:"id" validate:"required,notblank"`
	Name                    string            `json:"name" yaml:"name" validate:"required"`
	Description             string            `json:"description,omitempty" yaml:"description,omitempty"`
	Category                string            `json:"category" yaml:"category" validate:"required,notblank"`
	QBAccount               string            `json:"qb_account" yaml:"qb_account" validate:"required"`
	TaxTreatment            string            `json:"tax_treatment,omitempty" yaml:"tax_treatment,omitempty" validate:"omitempty,tax_treatment"`
	Conditions              ConditionDocument `json:"conditions" yaml:"conditions"`
	Priority                int               `json:"priority" yaml:"priority"`
	Fallback                bool              `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// ConditionDocument is the raw condition block of a rule.
type ConditionDocument struct {
	AmountMin           *decimal.Decimal `json:"amount_min,omitempty" yaml:"amount_min,omitempty" validate:"omitempty,gte=0"`
	AmountMax           *decimal.Decimal `json:"amount_max,omitempty" yaml:"amount_max,omitempty" validate:"omitempty,gte=0"`
	DescriptionKeywords []string         `json:"description_keywords,omitempty" yaml:"description_keywords,omitempty" validate:"dive,notblank"`
	VendorPatterns      []string         `json:"vendor_patterns,omitempty" yaml:"vendor_patterns,omitempty" validate:"dive,notblank"`
}

// newDocumentValidator builds a validator that reports JSON field names.
func newDocumentValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Bounds are compared as floats; only the sign matters here.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("tax_treatment", func(fl validator.FieldLevel) bool {
		return model.TaxTreatment(fl.Field().String()).Valid()
	})

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}
