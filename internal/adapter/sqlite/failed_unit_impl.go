package sqlite

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"

	"github.com/user/a11y-auditor/internal/entity"
)

// FailedUnitRepoImpl implements the FailedUnitRepository interface on SQLite.
type FailedUnitRepoImpl struct {
	db *sql.DB
}

// NewFailedUnitRepo creates a new instance of FailedUnitRepoImpl.
func NewFailedUnitRepo(db *sql.DB) *FailedUnitRepoImpl {
	return &FailedUnitRepoImpl{db: db}
}

// Record creates or updates the failure of a unit, counting attempts.
func (r *FailedUnitRepoImpl) Record(ctx context.Context, fu *entity.FailedUnit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO failed_units (run_date, domain, page_type, viewport, url, last_state, error_type, failure_reason, attempts, failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?)
		 ON CONFLICT (run_date, domain, page_type, viewport) DO UPDATE SET
			url = excluded.url,
			last_state = excluded.last_state,
			error_type = excluded.error_type,
			failure_reason = excluded.failure_reason,
			attempts = failed_units.attempts + 1,
			failed_at = excluded.failed_at`,
		fu.RunDate.String(), fu.Domain, fu.PageType, fu.Viewport, fu.URL,
		string(fu.LastState), fu.ErrorType, fu.FailureReason, fu.FailedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: record failed unit %s/%s/%s", fu.Domain, fu.PageType, fu.Viewport)
}

// ListByDate returns the failed units of a run date in the order they failed.
func (r *FailedUnitRepoImpl) ListByDate(ctx context.Context, date entity.RunDate) ([]*entity.FailedUnit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, run_date, domain, page_type, viewport, url, last_state, error_type, failure_reason, attempts, failed_at
		 FROM failed_units WHERE run_date = ? ORDER BY failed_at, id`,
		date.String(),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query failed units %s", date)
	}
	defer rows.Close()

	var failed []*entity.FailedUnit
	for rows.Next() {
		var fu entity.FailedUnit
		var runDate, lastState string
		if err := rows.Scan(&fu.ID, &runDate, &fu.Domain, &fu.PageType, &fu.Viewport, &fu.URL,
			&lastState, &fu.ErrorType, &fu.FailureReason, &fu.Attempts, &fu.FailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failed unit")
		}
		fu.RunDate = entity.RunDate(runDate)
		fu.LastState = entity.UnitState(lastState)
		failed = append(failed, &fu)
	}
	return failed, eris.Wrap(rows.Err(), "sqlite: iterate failed units")
}

// Delete removes a failure record.
func (r *FailedUnitRepoImpl) Delete(ctx context.Context, date entity.RunDate, domain, pageType, viewport string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM failed_units WHERE run_date = ? AND domain = ? AND page_type = ? AND viewport = ?`,
		date.String(), domain, pageType, viewport,
	)
	return eris.Wrapf(err, "sqlite: delete failed unit %s/%s/%s", domain, pageType, viewport)
}
