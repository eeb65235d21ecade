package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/manonja/quickExpense-sub001/internal/model"
)

// ErrNoItems is returned when an input file has a header but no rows.
var ErrNoItems = errors.New("no line items found")

// ReadLineItems parses line items from CSV with a header naming at least
// description and amount. A quantity column is optional.
func ReadLineItems(r io.Reader) ([]model.LineItem, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoItems
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	descCol, ok := columns["description"]
	if !ok {
		return nil, errors.New(`missing "description" column`)
	}
	amountCol, ok := columns["amount"]
	if !ok {
		return nil, errors.New(`missing "amount" column`)
	}
	qtyCol, hasQty := columns["quantity"]

	var items []model.LineItem
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line items: %w", err)
		}
		line, _ := reader.FieldPos(0)

		amount, err := ParseAmount(record[amountCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		item := model.NewLineItem(strings.TrimSpace(record[descCol]), amount)
		if hasQty && strings.TrimSpace(record[qtyCol]) != "" {
			qty, err := strconv.Atoi(strings.TrimSpace(record[qtyCol]))
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid quantity %q", line, record[qtyCol])
			}
			item.Quantity = qty
		}

		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
	}

	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

// ParseAmount accepts plain or currency-formatted amounts such as "$1,250.00".
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}
