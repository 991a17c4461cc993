package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core/session"
)

type sessionRow struct {
	ID          string    `db:"id"`
	Token       string    `db:"token"`
	UserID      int       `db:"user_id"`
	UserName    string    `db:"user_name"`
	UserEmail   string    `db:"user_email"`
	UserRole    string    `db:"user_role"`
	CompanyName string    `db:"company_name"`
	Verified    bool      `db:"verified"`
	UserStatus  string    `db:"user_status"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
	LastSeenAt  time.Time `db:"last_seen_at"`
}

func newSessionRow(sess session.Session) sessionRow {
	return sessionRow{
		ID:          sess.ID,
		Token:       sess.Token,
		UserID:      sess.User.ID,
		UserName:    sess.User.Name,
		UserEmail:   sess.User.Email,
		UserRole:    sess.User.Role,
		CompanyName: sess.User.CompanyName,
		Verified:    sess.User.Verified,
		UserStatus:  sess.User.Status,
		CreatedAt:   sess.CreatedAt,
		ExpiresAt:   sess.ExpiresAt,
		LastSeenAt:  sess.LastSeenAt,
	}
}

func (r sessionRow) toSession() session.Session {
	return session.Session{
		ID:    r.ID,
		Token: r.Token,
		User: session.User{
			ID:          r.UserID,
			Name:        r.UserName,
			Email:       r.UserEmail,
			Role:        r.UserRole,
			CompanyName: r.CompanyName,
			Verified:    r.Verified,
			Status:      r.UserStatus,
		},
		CreatedAt:  r.CreatedAt,
		ExpiresAt:  r.ExpiresAt,
		LastSeenAt: r.LastSeenAt,
	}
}

type sessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) error {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO web_session (
			id, token, user_id, user_name, user_email, user_role,
			company_name, verified, user_status, created_at, expires_at, last_seen_at
		) VALUES (
			:id, :token, :user_id, :user_name, :user_email, :user_role,
			:company_name, :verified, :user_status, :created_at, :expires_at, :last_seen_at
		)`, newSessionRow(sess))
	return errors.Wrap(err, "inserting session")
}

func (repo *sessionRepository) GetSession(ctx context.Context, id string) (session.Session, error) {
	var row sessionRow
	err := repo.db.GetContext(ctx, &row, `SELECT * FROM web_session WHERE id = $1`, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return session.Session{}, session.ErrNotFound
		}
		return session.Session{}, errors.Wrap(err, "selecting session")
	}
	return row.toSession(), nil
}

func (repo *sessionRepository) TouchSession(ctx context.Context, id string, at time.Time) error {
	res, err := repo.db.ExecContext(ctx, `UPDATE web_session SET last_seen_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return errors.Wrap(err, "touching session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM web_session WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (repo *sessionRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM web_session WHERE expires_at < $1`, now)
	if err != nil {
		return 0, errors.Wrap(err, "deleting expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted sessions")
	}
	return int(n), nil
}
