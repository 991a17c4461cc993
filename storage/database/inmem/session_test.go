package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core/session"
)

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	repo := NewSessionRepository()
	sess := session.Session{
		ID:        "s1",
		Token:     "tok",
		User:      session.User{ID: 1, Role: session.RoleAdmin},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	if err := repo.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}

	got, err := repo.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("GetSession() failed: %v", err)
	}
	if got.Token != "tok" || got.User.ID != 1 {
		t.Errorf("GetSession() = %+v, want stored session", got)
	}

	if _, err := repo.GetSession(ctx, "nope"); errors.Cause(err) != session.ErrNotFound {
		t.Errorf("GetSession(missing) error = %v, want ErrNotFound", err)
	}

	at := now.Add(time.Minute)
	if err := repo.TouchSession(ctx, "s1", at); err != nil {
		t.Fatalf("TouchSession() failed: %v", err)
	}
	got, _ = repo.GetSession(ctx, "s1")
	if !got.LastSeenAt.Equal(at) {
		t.Errorf("LastSeenAt = %v, want %v", got.LastSeenAt, at)
	}
	if err := repo.TouchSession(ctx, "nope", at); errors.Cause(err) != session.ErrNotFound {
		t.Errorf("TouchSession(missing) error = %v, want ErrNotFound", err)
	}

	if err := repo.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession() failed: %v", err)
	}
	if err := repo.DeleteSession(ctx, "s1"); errors.Cause(err) != session.ErrNotFound {
		t.Errorf("DeleteSession(again) error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_DeleteExpiredSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	repo := NewSessionRepository()
	for _, sess := range []session.Session{
		{ID: "live", ExpiresAt: now.Add(time.Hour)},
		{ID: "dead1", ExpiresAt: now.Add(-time.Hour)},
		{ID: "dead2", ExpiresAt: now.Add(-time.Minute)},
	} {
		if err := repo.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
	}

	n, err := repo.DeleteExpiredSessions(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredSessions() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d sessions, want 2", n)
	}
	if _, err := repo.GetSession(ctx, "live"); err != nil {
		t.Errorf("live session was deleted: %v", err)
	}
}
