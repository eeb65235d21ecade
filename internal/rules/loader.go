package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/model"
	"github.com/manonja/quickExpense-sub001/internal/pattern"
)

// Format identifies the encoding of a rule document.
type Format string

// Supported document formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Loader parses rule documents into validated rule sets.
type Loader struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewLoader creates a rule loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{
		validate: newDocumentValidator(),
		logger:   common.OrDefault(logger),
	}
}

// LoadFile reads and parses the rule document at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*model.RuleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: rules path", common.ErrMissingConfig)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	return l.Parse(data, FormatFromPath(path), path)
}

// Parse decodes data and validates every rule.
func (l *Loader) Parse(data []byte, format Format, source string) (*model.RuleSet, error) {
	doc, err := decodeDocument(data, format)
	if err != nil {
		return nil, &ConfigurationError{Source: source, Reason: "malformed document", Err: err}
	}

	fallbackDoc, explicit, err := splitFallback(doc)
	if err != nil {
		return nil, &ConfigurationError{Source: source, Err: err}
	}

	rules := make([]model.BusinessRule, 0, len(explicit))
	for _, rd := range explicit {
		rule, buildErr := l.buildRule(rd, source)
		if buildErr != nil {
			return nil, buildErr
		}
		rules = append(rules, rule)
	}

	fallback, err := l.buildRule(fallbackDoc, source)
	if err != nil {
		return nil, err
	}
	if !fallback.Conditions.IsUnconstrained() {
		return nil, &ConfigurationError{Source: source, RuleID: fallback.ID, Field: "conditions", Reason: "fallback rule must not declare conditions"}
	}
	fallback.IsFallback = true

	set, err := model.NewRuleSet(doc.Version, source, rules, fallback)
	if err != nil {
		return nil, &ConfigurationError{Source: source, Err: err}
	}

	l.logger.Debug("Parsed rule document",
		"source", source,
		"version", doc.Version,
		"rules", set.Len())

	return set, nil
}

func decodeDocument(data []byte, format Format) (Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return doc, errors.New("empty document")
			}
			return doc, err
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return doc, errors.New("empty document")
			}
			return doc, err
		}
	default:
		return doc, fmt.Errorf("unsupported format %q", format)
	}

	return doc, nil
}

// splitFallback separates the single fallback entry from the explicit rules.
func splitFallback(doc Document) (RuleDocument, []RuleDocument, error) {
	var fallbacks []RuleDocument
	if doc.Fallback != nil {
		fb := *doc.Fallback
		fb.Fallback = true
		fallbacks = append(fallbacks, fb)
	}

	explicit := make([]RuleDocument, 0, len(doc.Rules))
	for _, rd := range doc.Rules {
		if rd.Fallback {
			fallbacks = append(fallbacks, rd)
			continue
		}
		explicit = append(explicit, rd)
	}

	switch len(fallbacks) {
	case 0:
		return RuleDocument{}, nil, model.ErrMissingFallback
	case 1:
		return fallbacks[0], explicit, nil
	default:
		return RuleDocument{}, nil, fmt.Errorf("expected exactly one fallback rule, found %d", len(fallbacks))
	}
}

func (l *Loader) buildRule(rd RuleDocument, source string) (model.BusinessRule, error) {
	if err := l.validate.Struct(rd); err != nil {
		return model.BusinessRule{}, validationError(rd.ID, source, err)
	}

	cond, err := model.NewRuleCondition(
		pattern.NormalizeAll(rd.Conditions.DescriptionKeywords),
		pattern.NormalizeAll(rd.Conditions.VendorPatterns),
		rd.Conditions.AmountMin,
		rd.Conditions.AmountMax,
	)
	if err != nil {
		return model.BusinessRule{}, &ConfigurationError{Source: source, RuleID: rd.ID, Field: "conditions", Err: err}
	}

	treatment := model.TaxTreatment(rd.TaxTreatment)
	if treatment == "" {
		treatment = model.TaxStandard
	}

	return model.BusinessRule{
		ID:                      strings.TrimSpace(rd.ID),
		Name:                    rd.Name,
		Description:             rd.Description,
		Priority:                rd.Priority,
		Conditions:              cond,
		Category:                strings.TrimSpace(rd.Category),
		DeductibilityPercentage: *rd.DeductibilityPercentage,
		QBAccount:               rd.QBAccount,
		TaxTreatment:            treatment,
		IsFallback:              rd.Fallback,
	}, nil
}

// validationError converts the first validator failure into a ConfigurationError.
func validationError(ruleID, source string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigurationError{Source: source, RuleID: ruleID, Err: err}
	}

	fe := verrs[0]
	reason := fmt.Sprintf("failed %q check", fe.Tag())
	if fe.Param() != "" {
		reason = fmt.Sprintf("failed %q check (%s)", fe.Tag(), fe.Param())
	}

	return &ConfigurationError{
		Source: source,
		RuleID: ruleID,
		Field:  fe.Namespace(),
		Reason: reason,
	}
}
