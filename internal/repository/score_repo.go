package repository

import (
	"context"

	"github.com/user/a11y-auditor/internal/entity"
)

// ScoreRepository keeps derived score rows for history queries. It is never a source of truth.
type ScoreRepository interface {
	// SaveScores replaces all rows of the rows' run date.
	SaveScores(ctx context.Context, date entity.RunDate, rows []entity.ScoreRow) error
	History(ctx context.Context, domain string) ([]entity.ScoreRow, error)
}

// FailedUnitRepository records units that ended in the failed state.
type FailedUnitRepository interface {
	Record(ctx context.Context, failed *entity.FailedUnit) error
	ListByDate(ctx context.Context, date entity.RunDate) ([]*entity.FailedUnit, error)
	// Delete clears a failure once the unit has been persisted.
	Delete(ctx context.Context, date entity.RunDate, domain, pageType, viewport string) error
}

// DomainLockRepository serialises audits of the same domain across processes.
type DomainLockRepository interface {
	// Acquire returns ErrLockHeld if another holder owns the lock.
	Acquire(ctx context.Context, domain string) (release func(), err error)
}
