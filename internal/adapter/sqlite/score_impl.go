package sqlite

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/user/a11y-auditor/internal/entity"
)

// ScoreRepoImpl implements the ScoreRepository interface on SQLite.
type ScoreRepoImpl struct {
	db *sql.DB
}

// NewScoreRepo creates a new instance of ScoreRepoImpl.
func NewScoreRepo(db *sql.DB) *ScoreRepoImpl {
	return &ScoreRepoImpl{db: db}
}

// SaveScores replaces every row of a run date in one transaction.
func (r *ScoreRepoImpl) SaveScores(ctx context.Context, date entity.RunDate, rows []entity.ScoreRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin scores")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM audit_scores WHERE run_date = ?`, date.String()); err != nil {
		return eris.Wrapf(err, "sqlite: clear scores %s", date)
	}
	for _, row := range rows {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO audit_scores (run_date, domain, page_type, viewport, score, violations, passes, url) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			date.String(), row.Domain, row.PageType, row.Viewport, row.Score, row.Violations, row.Passes, row.URL,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert score %s/%s/%s", row.Domain, row.PageType, row.Viewport)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit scores")
}

// History returns all score rows of a domain, oldest run first.
func (r *ScoreRepoImpl) History(ctx context.Context, domain string) ([]entity.ScoreRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT run_date, domain, page_type, viewport, score, violations, passes, url
		 FROM audit_scores WHERE domain = ? ORDER BY run_date, page_type, viewport`,
		domain,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query history %s", domain)
	}
	defer rows.Close()

	var history []entity.ScoreRow
	for rows.Next() {
		var row entity.ScoreRow
		var runDate string
		if err := rows.Scan(&runDate, &row.Domain, &row.PageType, &row.Viewport, &row.Score, &row.Violations, &row.Passes, &row.URL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan score")
		}
		row.RunDate = entity.RunDate(runDate)
		history = append(history, row)
	}
	return history, eris.Wrap(rows.Err(), "sqlite: iterate scores")
}
