package model

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// LineItem is one charge entry on a receipt or invoice.
type LineItem struct {
	Description string          `json:"description" validate:"required,notblank"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Quantity    int             `json:"quantity" validate:"gte=1"`
}

// NewLineItem creates a line item with a quantity of one.
func NewLineItem(description string, amount decimal.Decimal) LineItem {
	return LineItem{Description: description, Amount: amount, Quantity: 1}
}

// Validate checks the line item invariants.
func (li LineItem) Validate() error {
	if err := lineItemValidator().Struct(li); err != nil {
		return fmt.Errorf("invalid line item %q: %w", li.Description, err)
	}
	return nil
}

// ExpenseContext carries optional expense-level hints for disambiguation.
type ExpenseContext struct {
	TransactionDate time.Time        `json:"transaction_date,omitempty"`
	TotalAmount     *decimal.Decimal `json:"total_amount,omitempty"`
	VendorName      string           `json:"vendor_name,omitempty"`
	BusinessPurpose string           `json:"business_purpose,omitempty"`
	PaymentMethod   string           `json:"payment_method,omitempty"`
	Location        string           `json:"location,omitempty"`
}

// Vendor returns the trimmed vendor name, or "" for a nil context.
func (c *ExpenseContext) Vendor() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.VendorName)
}

// Purpose returns the trimmed business purpose, or "" for a nil context.
func (c *ExpenseContext) Purpose() string {
	if c == nil {
		return ""
	}
	return strings.TrimSpace(c.BusinessPurpose)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// lineItemValidator lazily builds a validator that understands decimal amounts.
func lineItemValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
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
		validate = v
	})
	return validate
}
