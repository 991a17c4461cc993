package database

import (
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
)

// Schema for the session store. A single table does not warrant a migration
// tool; EnsureSchema is idempotent and runs at startup.
const schema = `
CREATE TABLE IF NOT EXISTS web_session (
    id            TEXT PRIMARY KEY,
    token         TEXT        NOT NULL,
    user_id       INTEGER     NOT NULL,
    user_name     TEXT        NOT NULL DEFAULT '',
    user_email    TEXT        NOT NULL DEFAULT '',
    user_role     TEXT        NOT NULL,
    company_name  TEXT        NOT NULL DEFAULT '',
    verified      BOOLEAN     NOT NULL DEFAULT FALSE,
    user_status   TEXT        NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL,
    expires_at    TIMESTAMPTZ NOT NULL,
    last_seen_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS web_session_expires_at_idx ON web_session (expires_at);
`

func Open(conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.DatabaseAddress(),
		Path:     conf.Database.Name,
		RawQuery: q.Encode(),
	}

	db, err := sqlx.Open(conf.Database.Engine, u.String())
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func EnsureSchema(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return errors.Wrap(err, "ensuring schema")
	}
	return nil
}
