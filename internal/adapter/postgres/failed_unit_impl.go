package postgres

import (
	"context"

	"github.com/user/a11y-auditor/internal/entity"
)

// FailedUnitRepoImpl provides a concrete implementation for the FailedUnitRepository interface using PostgreSQL.
type FailedUnitRepoImpl struct {
	db Pool
}

// NewFailedUnitRepo creates a new instance of FailedUnitRepoImpl.
func NewFailedUnitRepo(db Pool) *FailedUnitRepoImpl {
	return &FailedUnitRepoImpl{db: db}
}

// Record creates or updates the failure of a unit.
// It increments attempts on conflict.
func (r *FailedUnitRepoImpl) Record(ctx context.Context, fu *entity.FailedUnit) error {
	query := `
		INSERT INTO failed_units (run_date, domain, page_type, viewport, url, last_state, error_type, failure_reason, attempts, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9)
		ON CONFLICT (run_date, domain, page_type, viewport) DO UPDATE SET
			url = EXCLUDED.url,
			last_state = EXCLUDED.last_state,
			error_type = EXCLUDED.error_type,
			failure_reason = EXCLUDED.failure_reason,
			attempts = failed_units.attempts + 1,
			failed_at = EXCLUDED.failed_at;
	`
	_, err := r.db.Exec(ctx, query,
		fu.RunDate.String(),
		fu.Domain,
		fu.PageType,
		fu.Viewport,
		fu.URL,
		string(fu.LastState),
		fu.ErrorType,
		fu.FailureReason,
		fu.FailedAt,
	)
	return err
}

// ListByDate retrieves the failed units of a run date in the order they failed.
func (r *FailedUnitRepoImpl) ListByDate(ctx context.Context, date entity.RunDate) ([]*entity.FailedUnit, error) {
	query := `
		SELECT id, run_date::text, domain, page_type, viewport, url, last_state, error_type, failure_reason, attempts, failed_at
		FROM failed_units
		WHERE run_date = $1
		ORDER BY failed_at ASC;
	`
	rows, err := r.db.Query(ctx, query, date.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var failed []*entity.FailedUnit
	for rows.Next() {
		var fu entity.FailedUnit
		var runDate, lastState string
		if err := rows.Scan(
			&fu.ID,
			&runDate,
			&fu.Domain,
			&fu.PageType,
			&fu.Viewport,
			&fu.URL,
			&lastState,
			&fu.ErrorType,
			&fu.FailureReason,
			&fu.Attempts,
			&fu.FailedAt,
		); err != nil {
			return nil, err
		}
		fu.RunDate = entity.RunDate(runDate)
		fu.LastState = entity.UnitState(lastState)
		failed = append(failed, &fu)
	}

	return failed, rows.Err()
}

// Delete removes a failure record, typically after the unit was persisted on a later attempt.
func (r *FailedUnitRepoImpl) Delete(ctx context.Context, date entity.RunDate, domain, pageType, viewport string) error {
	query := `DELETE FROM failed_units WHERE run_date = $1 AND domain = $2 AND page_type = $3 AND viewport = $4;`
	_, err := r.db.Exec(ctx, query, date.String(), domain, pageType, viewport)
	return err
}
