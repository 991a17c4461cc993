package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/session"
)

// Logger is a no-op core.Logger for tests.
type Logger struct{}

func (Logger) Debug(msg string, args ...interface{}) {}
func (Logger) Info(msg string, args ...interface{})  {}
func (Logger) Warn(msg string, args ...interface{})  {}
func (Logger) Error(msg string, args ...interface{}) {}
func (Logger) Fatal(msg string, args ...interface{}) {}

// NewConfig returns a config suitable for tests: no external services, short
// poll intervals.
func NewConfig() *core.Config {
	conf := &core.Config{
		Debug:                    true,
		TestMode:                 true,
		Env:                      "TEST",
		AppName:                  "Appalto Smart",
		SecretKey:                "test-secret-key",
		SessionTTL:               time.Hour,
		NotificationPollInterval: 10 * time.Millisecond,
		ExtractionPollInterval:   time.Millisecond,
	}
	conf.WorkDir = core.Getwd()
	conf.Server.ShutdownTimeout = time.Second
	conf.Marketplace.Timeout = time.Second
	return conf
}

// CreateSession persists a session for usr and returns it.
func CreateSession(t *testing.T, repo session.Repository, usr session.User, token string) session.Session {
	t.Helper()
	now := time.Now().UTC()
	sess := session.Session{
		ID:         "sess-" + usr.Email,
		Token:      token,
		User:       usr,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
		LastSeenAt: now,
	}
	if err := repo.CreateSession(context.Background(), sess); err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}
