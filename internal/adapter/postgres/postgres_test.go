package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/a11y-auditor/internal/entity"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestMigrate(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS audit_scores").WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepo_SaveScores(t *testing.T) {
	mock := newMock(t)
	repo := NewScoreRepo(mock)

	rows := []entity.ScoreRow{
		{Domain: "galaxus.de", PageType: "home", Viewport: "DESKTOP", Score: 91.5, Violations: 3, Passes: 40, URL: "https://www.galaxus.de/"},
		{Domain: "otto.de", PageType: "home", Viewport: "DESKTOP", Score: 77, Violations: 8, Passes: 35, URL: "https://www.otto.de/"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM audit_scores WHERE run_date = $1")).
		WithArgs("2025-04-28").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	for _, r := range rows {
		mock.ExpectExec("INSERT INTO audit_scores").
			WithArgs("2025-04-28", r.Domain, r.PageType, r.Viewport, r.Score, r.Violations, r.Passes, r.URL).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	require.NoError(t, repo.SaveScores(context.Background(), "2025-04-28", rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepo_SaveScoresRollsBack(t *testing.T) {
	mock := newMock(t)
	repo := NewScoreRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM audit_scores").WithArgs("2025-04-28").WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO audit_scores").
		WithArgs("2025-04-28", "otto.de", "home", "DESKTOP", 0.0, 0, 0, "").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.SaveScores(context.Background(), "2025-04-28", []entity.ScoreRow{{Domain: "otto.de", PageType: "home", Viewport: "DESKTOP"}})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScoreRepo_History(t *testing.T) {
	mock := newMock(t)
	repo := NewScoreRepo(mock)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT run_date::text, domain")).
		WithArgs("galaxus.de").
		WillReturnRows(pgxmock.NewRows([]string{"run_date", "domain", "page_type", "viewport", "score", "violations", "passes", "url"}).
			AddRow("2025-04-28", "galaxus.de", "home", "DESKTOP", 91.5, 3, 40, "https://www.galaxus.de/").
			AddRow("2025-05-05", "galaxus.de", "home", "DESKTOP", 93.0, 2, 41, "https://www.galaxus.de/"))

	history, err := repo.History(context.Background(), "galaxus.de")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, entity.RunDate("2025-05-05"), history[1].RunDate)
	assert.Equal(t, 93.0, history[1].Score)
	assert.Equal(t, 2, history[1].Violations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedUnitRepo_Record(t *testing.T) {
	mock := newMock(t)
	repo := NewFailedUnitRepo(mock)
	failedAt := time.Date(2025, 4, 28, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO failed_units").
		WithArgs("2025-04-28", "otto.de", "product detail", "IPHONE", "https://www.otto.de/p/1",
			"stabilized", "analysis_timeout", "rule engine analysis timed out", failedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Record(context.Background(), &entity.FailedUnit{
		RunDate:       "2025-04-28",
		Domain:        "otto.de",
		PageType:      "product detail",
		Viewport:      "IPHONE",
		URL:           "https://www.otto.de/p/1",
		LastState:     entity.UnitStabilized,
		ErrorType:     "analysis_timeout",
		FailureReason: "rule engine analysis timed out",
		FailedAt:      failedAt,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFailedUnitRepo_ListAndDelete(t *testing.T) {
	mock := newMock(t)
	repo := NewFailedUnitRepo(mock)
	failedAt := time.Date(2025, 4, 28, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM failed_units").
		WithArgs("2025-04-28").
		WillReturnRows(pgxmock.NewRows([]string{"id", "run_date", "domain", "page_type", "viewport", "url", "last_state", "error_type", "failure_reason", "attempts", "failed_at"}).
			AddRow(int64(7), "2025-04-28", "otto.de", "home", "DESKTOP", "https://www.otto.de/", "navigated", "navigation_failed", "net::ERR_NAME_NOT_RESOLVED", 2, failedAt))
	mock.ExpectExec("DELETE FROM failed_units").
		WithArgs("2025-04-28", "otto.de", "home", "DESKTOP").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	failed, err := repo.ListByDate(context.Background(), "2025-04-28")
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, int64(7), failed[0].ID)
	assert.Equal(t, entity.UnitNavigated, failed[0].LastState)
	assert.Equal(t, 2, failed[0].Attempts)

	require.NoError(t, repo.Delete(context.Background(), "2025-04-28", "otto.de", "home", "DESKTOP"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
