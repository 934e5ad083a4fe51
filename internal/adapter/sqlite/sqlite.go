package sqlite

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Open opens a SQLite database at the given path and configures WAL mode.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return db, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS audit_scores (
	run_date   TEXT    NOT NULL,
	domain     TEXT    NOT NULL,
	page_type  TEXT    NOT NULL,
	viewport   TEXT    NOT NULL,
	score      REAL    NOT NULL,
	violations INTEGER NOT NULL,
	passes     INTEGER NOT NULL,
	url        TEXT    NOT NULL DEFAULT '',
	PRIMARY KEY (run_date, domain, page_type, viewport)
);

CREATE INDEX IF NOT EXISTS idx_audit_scores_domain ON audit_scores(domain);

CREATE TABLE IF NOT EXISTS failed_units (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	run_date       TEXT     NOT NULL,
	domain         TEXT     NOT NULL,
	page_type      TEXT     NOT NULL,
	viewport       TEXT     NOT NULL,
	url            TEXT     NOT NULL,
	last_state     TEXT     NOT NULL,
	error_type     TEXT     NOT NULL,
	failure_reason TEXT     NOT NULL,
	attempts       INTEGER  NOT NULL DEFAULT 1,
	failed_at      DATETIME NOT NULL,
	UNIQUE (run_date, domain, page_type, viewport)
);
`

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, migration)
	return eris.Wrap(err, "sqlite: migrate")
}
