package web

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/notification"
	"github.com/appaltosmart/webclient/core/session"
	"github.com/appaltosmart/webclient/services/marketplace"
)

// pollerRegistry tracks one notification poller per live session. Pollers are
// started lazily on the first request of a session and stopped on logout,
// forced invalidation or server shutdown; a poller also removes itself when
// its session's TTL runs out or the marketplace revokes the token.
type pollerRegistry struct {
	mu      sync.Mutex
	inboxes map[string]*notification.Inbox
	cancels map[string]context.CancelFunc
}

func newPollerRegistry() *pollerRegistry {
	return &pollerRegistry{
		inboxes: make(map[string]*notification.Inbox),
		cancels: make(map[string]context.CancelFunc),
	}
}

func (r *pollerRegistry) inbox(sessionID string) *notification.Inbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inboxes[sessionID]
}

func (r *pollerRegistry) add(sessionID string, inbox *notification.Inbox, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.inboxes[sessionID]; ok {
		cancel()
		return false
	}
	r.inboxes[sessionID] = inbox
	r.cancels[sessionID] = cancel
	return true
}

func (r *pollerRegistry) stop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.cancels[sessionID]; ok {
		cancel()
		delete(r.cancels, sessionID)
		delete(r.inboxes, sessionID)
	}
}

func (r *pollerRegistry) stopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, cancel := range r.cancels {
		cancel()
		delete(r.cancels, id)
		delete(r.inboxes, id)
	}
}

// ensurePoller starts the session's notification poller if it is not running
// yet. The poll context carries the session's expiry as its deadline, so an
// idle session stops polling when its TTL runs out; a 401 from the
// marketplace ends the loop early and destroys the session with it.
func (s *Server) ensurePoller(sess session.Session) {
	if s.pollers.inbox(sess.ID) != nil {
		return
	}

	inbox := notification.NewInbox(s.deps.Mkt, sess.Token, s.deps.Logger)

	var digest notification.DigestFunc
	if s.deps.Conf.DigestEnabled && s.deps.Email != nil {
		digest = s.newDigestFunc(sess.User)
	}

	ctx, cancel := context.WithDeadline(context.Background(), sess.ExpiresAt)
	if !s.pollers.add(sess.ID, inbox, cancel) {
		return // lost the race to a concurrent request
	}

	fatal := func(err error) bool { return errors.Cause(err) == marketplace.ErrUnauthorized }
	poller := notification.NewPoller(inbox, s.deps.Conf.NotificationPollInterval, s.deps.Logger, digest, fatal)
	go func() {
		if err := poller.Run(ctx); err != nil {
			s.deps.Logger.Warn("notification poller stopped, token revoked", err)
			if iErr := s.deps.SessionSvc.Invalidate(context.Background(), sess.ID); iErr != nil {
				s.deps.Logger.Error("invalidating session after revoked token", iErr)
			}
		}
		s.pollers.stop(sess.ID)
	}()
}

// newDigestFunc forwards freshly seen unread notifications to the user by email.
func (s *Server) newDigestFunc(usr session.User) notification.DigestFunc {
	return func(fresh []notification.Notification) {
		msgs := make([]string, 0, len(fresh))
		for _, n := range fresh {
			msgs = append(msgs, n.Message)
		}
		s.deps.Email.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
			Subject:      fmt.Sprintf("%d new notification(s)", len(fresh)),
			TemplateName: "notification_digest",
			TemplateData: struct {
				Name     string
				Messages []string
			}{Name: usr.Name, Messages: msgs},
			BodyStr: strings.Join(msgs, "\n"),
		})
	}
}
