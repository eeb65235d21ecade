package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/manonja/quickExpense-sub001/internal/common"
	"github.com/manonja/quickExpense-sub001/internal/model"
)

// Decision is one audited categorization.
type Decision struct {
	CreatedAt               time.Time       `json:"created_at"`
	Amount                  decimal.Decimal `json:"amount"`
	ID                      string          `json:"id"`
	BatchID                 string          `json:"batch_id"`
	Description             string          `json:"description"`
	Vendor                  string          `json:"vendor,omitempty"`
	RuleID                  string          `json:"rule_id"`
	Category                string          `json:"category"`
	QBAccount               string          `json:"qb_account"`
	TaxTreatment            string          `json:"tax_treatment"`
	Explanation             string          `json:"explanation"`
	RulesVersion            string          `json:"rules_version"`
	Position                int             `json:"position"`
	Quantity                int             `json:"quantity"`
	DeductibilityPercentage int             `json:"deductibility_percentage"`
	Confidence              float64         `json:"confidence"`
	IsFallback              bool            `json:"is_fallback"`
}

// CategoryTotal aggregates a batch by category.
type CategoryTotal struct {
	Category   string          `json:"category"`
	Amount     decimal.Decimal `json:"amount"`
	Deductible decimal.Decimal `json:"deductible"`
	Count      int             `json:"count"`
}

// SaveDecisions records a categorized batch in one transaction. items and
// results must be parallel slices. The vendor comes from ectx when present.
func (s *AuditStore) SaveDecisions(ctx context.Context, batchID, rulesVersion string, ectx *model.ExpenseContext, items []model.LineItem, results []model.CategorizationResult) ([]Decision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}
	if err := validateBatch(items, results); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO decisions (
			id, batch_id, position, description, vendor, amount, quantity,
			rule_id, category, qb_account, tax_treatment, deductibility_percentage,
			confidence, is_fallback, explanation, rules_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	vendor := ectx.Vendor()
	decisions := make([]Decision, len(items))

	for i, item := range items {
		result := results[i]
		d := Decision{
			ID:                      uuid.NewString(),
			BatchID:                 batchID,
			Position:                i,
			Description:             item.Description,
			Vendor:                  vendor,
			Amount:                  item.Amount,
			Quantity:                item.Quantity,
			RuleID:                  result.RuleID(),
			Category:                result.Category,
			QBAccount:               result.QBAccount,
			TaxTreatment:            string(result.TaxTreatment),
			DeductibilityPercentage: result.DeductibilityPercentage,
			Confidence:              result.ConfidenceScore,
			IsFallback:              result.IsFallback,
			Explanation:             result.Explanation,
			RulesVersion:            rulesVersion,
			CreatedAt:               now,
		}

		_, err = stmt.ExecContext(ctx,
			d.ID, d.BatchID, d.Position, d.Description, nullString(d.Vendor), d.Amount.String(), d.Quantity,
			nullString(d.RuleID), d.Category, d.QBAccount, d.TaxTreatment, d.DeductibilityPercentage,
			d.Confidence, d.IsFallback, d.Explanation, d.RulesVersion, d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to save decision %d: %w", i, err)
		}
		decisions[i] = d
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit decisions: %w", err)
	}

	s.logger.Debug("Saved decisions", "batch_id", batchID, "count", len(decisions))

	return decisions, nil
}

const decisionColumns = `id, batch_id, position, description, vendor, amount, quantity,
	rule_id, category, qb_account, tax_treatment, deductibility_percentage,
	confidence, is_fallback, explanation, rules_version, created_at`

// ListDecisions returns the most recent decisions, newest batch first.
func (s *AuditStore) ListDecisions(ctx context.Context, limit int) ([]Decision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		ORDER BY created_at DESC, batch_id, position
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanDecisions(rows)
}

// GetBatch returns the decisions of one batch in item order.
func (s *AuditStore) GetBatch(ctx context.Context, batchID string) ([]Decision, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE batch_id = ?
		ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch: %w", err)
	}
	defer func() { _ = rows.Close() }()

	decisions, err := scanDecisions(rows)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, fmt.Errorf("batch %s: %w", batchID, common.ErrNotFound)
	}
	return decisions, nil
}

// SummarizeBatch totals a batch by category. Amounts are summed as decimals
// so the deductible total is exact to the cent.
func (s *AuditStore) SummarizeBatch(ctx context.Context, batchID string) ([]CategoryTotal, error) {
	decisions, err := s.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var totals []CategoryTotal
	for _, d := range decisions {
		i, ok := index[d.Category]
		if !ok {
			i = len(totals)
			index[d.Category] = i
			totals = append(totals, CategoryTotal{Category: d.Category})
		}

		result := model.CategorizationResult{DeductibilityPercentage: d.DeductibilityPercentage}
		totals[i].Count++
		totals[i].Amount = totals[i].Amount.Add(d.Amount)
		totals[i].Deductible = totals[i].Deductible.Add(result.DeductibleAmount(d.Amount))
	}

	return totals, nil
}

func scanDecisions(rows *sql.Rows) ([]Decision, error) {
	var decisions []Decision
	for rows.Next() {
		var (
			d      Decision
			vendor sql.NullString
			ruleID sql.NullString
			amount string
			expl   sql.NullString
		)
		if err := rows.Scan(
			&d.ID, &d.BatchID, &d.Position, &d.Description, &vendor, &amount, &d.Quantity,
			&ruleID, &d.Category, &d.QBAccount, &d.TaxTreatment, &d.DeductibilityPercentage,
			&d.Confidence, &d.IsFallback, &expl, &d.RulesVersion, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}

		parsed, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("decision %s has invalid amount %q: %w", d.ID, amount, err)
		}
		d.Amount = parsed
		d.Vendor = vendor.String
		d.RuleID = ruleID.String
		d.Explanation = expl.String

		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decisions: %w", err)
	}
	return decisions, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
