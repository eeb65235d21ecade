// Package taxrules serves tax citations for expense categories.
package taxrules

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/pattern"
)

// Citation links a category to the statute that governs it.
type Citation struct {
	Category     string `json:"category"`
	Jurisdiction string `json:"jurisdiction"`
	Reference    string `json:"citation"`
	Description  string `json:"description"`
}

// Service is an immutable citation lookup table keyed by category.
type Service struct {
	byCategory map[string][]Citation
	source     string
	categories []string
	count      int
}

var requiredColumns = []string{"category", "citation"}

// LoadFile reads a citation table from a CSV file with a header row.
func LoadFile(ctx context.Context, path string, logger *slog.Logger) (*Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: citations path", common.ErrMissingConfig)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open citations file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			common.OrDefault(logger).Warn("Failed to close citations file", "path", path, "error", closeErr)
		}
	}()

	svc, err := Parse(f, path)
	if err != nil {
		return nil, err
	}

	common.OrDefault(logger).Debug("Loaded tax citations",
		"source", path,
		"citations", svc.Count(),
		"categories", len(svc.categories))

	return svc, nil
}

// Parse reads CSV citations. Columns are located by header name, so
// jurisdiction and description are optional and order does not matter.
func Parse(r io.Reader, source string) (*Service, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s: empty citations table", common.ErrInvalidConfig, source)
		}
		return nil, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, source, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s: missing %q column", common.ErrInvalidConfig, source, name)
		}
	}

	svc := &Service{
		byCategory: make(map[string][]Citation),
		source:     source,
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", common.ErrInvalidConfig, source, err)
		}

		line, _ := reader.FieldPos(0)
		citation := Citation{
			Category:     field(record, columns, "category"),
			Jurisdiction: field(record, columns, "jurisdiction"),
			Reference:    field(record, columns, "citation"),
			Description:  field(record, columns, "description"),
		}
		if citation.Category == "" || citation.Reference == "" {
			return nil, fmt.Errorf("%w: %s: line %d: category and citation are required", common.ErrInvalidConfig, source, line)
		}

		key := pattern.Normalize(citation.Category)
		if _, seen := svc.byCategory[key]; !seen {
			svc.categories = append(svc.categories, citation.Category)
		}
		svc.byCategory[key] = append(svc.byCategory[key], citation)
		svc.count++
	}

	sort.Strings(svc.categories)

	return svc, nil
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// Citations returns the citations for category, matched case-insensitively.
func (s *Service) Citations(category string) []Citation {
	found := s.byCategory[pattern.Normalize(category)]
	if len(found) == 0 {
		return nil
	}
	out := make([]Citation, len(found))
	copy(out, found)
	return out
}

// Count returns the number of citations loaded.
func (s *Service) Count() int {
	return s.count
}

// Categories returns the distinct categories with citations, sorted.
func (s *Service) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// Source returns the file the table was loaded from.
func (s *Service) Source() string {
	return s.source
}
