// Package rules loads business rule documents into validated rule sets.
package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manonja/quickExpense-sub001/internal/common"
)

// ConfigurationError describes why a rule document was rejected.
type ConfigurationError struct {
	Err    error
	Source string
	RuleID string
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString(common.ErrInvalidConfig.Error())
	if e.Source != "" {
		fmt.Fprintf(&b, " in %s", e.Source)
	}
	if e.RuleID != "" {
		fmt.Fprintf(&b, ": rule %q", e.RuleID)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %s", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is lets errors.Is match common.ErrInvalidConfig.
func (e *ConfigurationError) Is(target error) bool {
	return target == common.ErrInvalidConfig
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
