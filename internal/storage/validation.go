package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manonja/quickExpense-sub001/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrEmptySlice     = errors.New("slice cannot be empty")
	ErrLengthMismatch = errors.New("items and results differ in length")
	ErrInvalidLimit   = errors.New("limit must be positive")
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateBatch checks that every item has a result and is itself valid.
func validateBatch(items []model.LineItem, results []model.CategorizationResult) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: items", ErrEmptySlice)
	}
	if len(items) != len(results) {
		return fmt.Errorf("%w: %d items, %d results", ErrLengthMismatch, len(items), len(results))
	}
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item at index %d: %w", i, err)
		}
	}
	return nil
}
