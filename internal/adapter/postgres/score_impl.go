package postgres

import (
	"context"
	"fmt"

	"github.com/user/a11y-auditor/internal/entity"
)

// ScoreRepoImpl provides a concrete implementation for the ScoreRepository interface using PostgreSQL.
type ScoreRepoImpl struct {
	db Pool
}

// NewScoreRepo creates a new instance of ScoreRepoImpl.
func NewScoreRepo(db Pool) *ScoreRepoImpl {
	return &ScoreRepoImpl{db: db}
}

// SaveScores replaces every row of a run date in one transaction, so regenerating a
// report never leaves a mix of old and new rows behind.
func (r *ScoreRepoImpl) SaveScores(ctx context.Context, date entity.RunDate, rows []entity.ScoreRow) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin score transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM audit_scores WHERE run_date = $1;`, date.String()); err != nil {
		return fmt.Errorf("failed to clear scores of %s: %w", date, err)
	}

	query := `
		INSERT INTO audit_scores (run_date, domain, page_type, viewport, score, violations, passes, url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	for _, row := range rows {
		_, err := tx.Exec(ctx, query,
			date.String(),
			row.Domain,
			row.PageType,
			row.Viewport,
			row.Score,
			row.Violations,
			row.Passes,
			row.URL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert score %s/%s/%s: %w", row.Domain, row.PageType, row.Viewport, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit scores of %s: %w", date, err)
	}
	return nil
}

// History returns all score rows of a domain, oldest run first.
func (r *ScoreRepoImpl) History(ctx context.Context, domain string) ([]entity.ScoreRow, error) {
	query := `
		SELECT run_date::text, domain, page_type, viewport, score, violations, passes, url
		FROM audit_scores
		WHERE domain = $1
		ORDER BY run_date ASC, page_type ASC, viewport ASC;
	`
	rows, err := r.db.Query(ctx, query, domain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []entity.ScoreRow
	for rows.Next() {
		var row entity.ScoreRow
		var runDate string
		if err := rows.Scan(
			&runDate,
			&row.Domain,
			&row.PageType,
			&row.Viewport,
			&row.Score,
			&row.Violations,
			&row.Passes,
			&row.URL,
		); err != nil {
			return nil, err
		}
		row.RunDate = entity.RunDate(runDate)
		history = append(history, row)
	}

	return history, rows.Err()
}
