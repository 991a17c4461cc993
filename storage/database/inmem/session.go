package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/appaltosmart/webclient/core/session"
)

type sessionRepository struct {
	mutex sync.RWMutex
	table map[string]*session.Session
}

// NewSessionRepository returns a memory-backed session store, used in DEV/TEST
// and whenever no database is configured.
func NewSessionRepository() session.Repository {
	return &sessionRepository{table: make(map[string]*session.Session)}
}

func (repo *sessionRepository) CreateSession(_ context.Context, sess session.Session) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()
	repo.table[sess.ID] = &sess
	return nil
}

func (repo *sessionRepository) GetSession(_ context.Context, id string) (session.Session, error) {
	repo.mutex.RLock()
	defer repo.mutex.RUnlock()

	if sess, ok := repo.table[id]; ok {
		return *sess, nil
	}
	return session.Session{}, session.ErrNotFound
}

func (repo *sessionRepository) TouchSession(_ context.Context, id string, at time.Time) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	sess, ok := repo.table[id]
	if !ok {
		return session.ErrNotFound
	}
	sess.LastSeenAt = at
	return nil
}

func (repo *sessionRepository) DeleteSession(_ context.Context, id string) error {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	if _, ok := repo.table[id]; !ok {
		return session.ErrNotFound
	}
	delete(repo.table, id)
	return nil
}

func (repo *sessionRepository) DeleteExpiredSessions(_ context.Context, now time.Time) (int, error) {
	repo.mutex.Lock()
	defer repo.mutex.Unlock()

	var n int
	for id, sess := range repo.table {
		if sess.Expired(now) {
			delete(repo.table, id)
			n++
		}
	}
	return n, nil
}
