package main

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core/session"
	inmemdb "github.com/appaltosmart/webclient/storage/database/inmem"
	testutil "github.com/appaltosmart/webclient/tests"
)

var errBadCredentials = errors.New("marketplace: unauthorized")

type fakeAuth struct{}

func (fakeAuth) Login(ctx context.Context, email, password string) (string, session.User, error) {
	if email == "known@test.it" && password == "goodpwd" {
		return "tok", session.User{ID: 1, Name: "Known", Email: email, Role: session.RoleAdmin}, nil
	}
	return "", session.User{}, errBadCredentials
}

func setup(t *testing.T) (*commandLine, session.Repository) {
	t.Helper()
	repo := inmemdb.NewSessionRepository()
	svc := session.NewService(repo, fakeAuth{}, testutil.NewConfig())
	return &commandLine{sessSvc: svc}, repo
}

type cliTest struct {
	name    string
	args    []string // without program name
	pwd     string
	wantErr error
}

func Test_commandLine_checkLogin(t *testing.T) {
	cli, _ := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"checklogin"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"checklogin", "-email", "known@test.it"}, wantErr: errHelp},
		{name: "bad credentials", args: []string{"checklogin", "-email", "known@test.it"}, pwd: "wrong", wantErr: errBadCredentials},
		{name: "ok", args: []string{"checklogin", "-email", "known@test.it"}, pwd: "goodpwd"},
	}
	for _, tt := range tests {
		args := append([]string{"webctl"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(tt.pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); errors.Cause(err) != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_purgeSessions(t *testing.T) {
	cli, repo := setup(t)

	now := time.Now().UTC()
	for _, sess := range []session.Session{
		{ID: "live", ExpiresAt: now.Add(time.Hour)},
		{ID: "dead", ExpiresAt: now.Add(-time.Hour)},
	} {
		if err := repo.CreateSession(context.Background(), sess); err != nil {
			t.Fatalf("CreateSession() failed: %v", err)
		}
	}

	if err := cli.run([]string{"webctl", "purgesessions"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}
	if _, err := repo.GetSession(context.Background(), "dead"); errors.Cause(err) != session.ErrNotFound {
		t.Error("expired session survived the purge")
	}
	if _, err := repo.GetSession(context.Background(), "live"); err != nil {
		t.Errorf("live session was purged: %v", err)
	}
}
