package web

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core/extraction"
)

// how long a finished watch stays readable by the status page before eviction
const watchRetention = 15 * time.Minute

// watchState is the progress of one server-side extraction watch, polled by
// the extraction status page.
type watchState struct {
	ExtractionID string
	Status       string
	Items        []extraction.Item
	Error        string
}

func (st watchState) done() bool {
	return st.Status == extraction.StatusCompleted || st.Status == extraction.StatusFailed
}

// extractionRegistry keeps running PDF-extraction watches in memory. Watches
// belong to the server, not a request: navigating away must not abandon them.
// Terminal results linger for the retention window and are then evicted.
type extractionRegistry struct {
	mu        sync.Mutex
	retention time.Duration
	watches   map[string]*watchState
	cancels   map[string]context.CancelFunc
	timers    map[string]*time.Timer
}

func newExtractionRegistry() *extractionRegistry {
	return &extractionRegistry{
		retention: watchRetention,
		watches:   make(map[string]*watchState),
		cancels:   make(map[string]context.CancelFunc),
		timers:    make(map[string]*time.Timer),
	}
}

func (r *extractionRegistry) get(id string) (watchState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.watches[id]; ok {
		return *st, true
	}
	return watchState{}, false
}

func (r *extractionRegistry) put(id string, st watchState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watches[id] = &st
	if st.done() && r.timers[id] == nil {
		r.timers[id] = time.AfterFunc(r.retention, func() { r.remove(id) })
	}
}

func (r *extractionRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.cancels[id]; ok {
		cancel()
		delete(r.cancels, id)
	}
	if tm, ok := r.timers[id]; ok {
		tm.Stop()
		delete(r.timers, id)
	}
	delete(r.watches, id)
}

func (r *extractionRegistry) stopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cancel := range r.cancels {
		cancel()
		delete(r.cancels, id)
	}
	for id, tm := range r.timers {
		tm.Stop()
		delete(r.timers, id)
	}
}

// watch registers a new watch handle and runs the poll loop in the background.
func (s *Server) watchExtraction(token string, res extraction.Result) string {
	handle := uuid.New().String()

	st := watchState{ExtractionID: res.ID, Status: res.Status, Items: res.Items, Error: res.Error}
	if res.Done() {
		s.extractions.put(handle, st)
		return handle
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.extractions.mu.Lock()
	s.extractions.watches[handle] = &st
	s.extractions.cancels[handle] = cancel
	s.extractions.mu.Unlock()

	go func() {
		defer cancel()
		final, err := s.deps.Watcher.Watch(ctx, token, res.ID)
		done := watchState{ExtractionID: res.ID, Status: final.Status, Items: final.Items, Error: final.Error}
		if err != nil {
			if done.Status == "" {
				done.Status = extraction.StatusFailed
			}
			if done.Error == "" {
				done.Error = err.Error()
			}
			if errors.Cause(err) != extraction.ErrFailed && ctx.Err() == nil {
				s.deps.Logger.Error("watching extraction", err)
			}
		}
		s.extractions.put(handle, done)

		s.extractions.mu.Lock()
		delete(s.extractions.cancels, handle)
		s.extractions.mu.Unlock()
	}()

	return handle
}
