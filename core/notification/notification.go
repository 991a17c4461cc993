package notification

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
)

type Notification struct {
	ID        int       `json:"id"`
	Message   string    `json:"message"`
	ReadAt    time.Time `json:"read_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (n Notification) Unread() bool { return n.ReadAt.IsZero() }

// Fetcher is the slice of the marketplace client the inbox needs.
type Fetcher interface {
	Notifications(ctx context.Context, token string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, token string, id int) error
	MarkAllNotificationsRead(ctx context.Context, token string) error
}

// Inbox caches one session's notifications and its unread count. Mark
// operations mutate the cache optimistically before the marketplace call; on
// failure the error is only logged and the next refresh reconciles with
// server truth.
type Inbox struct {
	mu     sync.RWMutex
	items  []Notification
	unread int

	fetcher Fetcher
	token   string
	logger  core.Logger
}

func NewInbox(fetcher Fetcher, token string, logger core.Logger) *Inbox {
	return &Inbox{fetcher: fetcher, token: token, logger: logger}
}

// Refresh replaces the cache with server truth and returns the unread items
// that were not present before (used by the digest hook).
func (in *Inbox) Refresh(ctx context.Context) ([]Notification, error) {
	items, err := in.fetcher.Notifications(ctx, in.token)
	if err != nil {
		return nil, errors.Wrap(err, "fetching notifications")
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	known := make(map[int]bool, len(in.items))
	for _, n := range in.items {
		known[n.ID] = true
	}

	var fresh []Notification
	unread := 0
	for _, n := range items {
		if n.Unread() {
			unread++
			if !known[n.ID] {
				fresh = append(fresh, n)
			}
		}
	}
	in.items = items
	in.unread = unread
	return fresh, nil
}

func (in *Inbox) Unread() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.unread
}

func (in *Inbox) Items() []Notification {
	in.mu.RLock()
	defer in.mu.RUnlock()
	items := make([]Notification, len(in.items))
	copy(items, in.items)
	return items
}

// MarkRead marks a single notification read: the counter drops by exactly one
// (never below 0) before the server call goes out.
func (in *Inbox) MarkRead(ctx context.Context, id int) {
	in.mu.Lock()
	now := time.Now().UTC()
	for i := range in.items {
		if in.items[i].ID == id && in.items[i].Unread() {
			in.items[i].ReadAt = now
			if in.unread > 0 {
				in.unread--
			}
			break
		}
	}
	in.mu.Unlock()

	if err := in.fetcher.MarkNotificationRead(ctx, in.token, id); err != nil {
		in.logger.Error("marking notification read", errors.Wrap(err, "marking notification read"))
	}
}

// MarkAllRead zeroes the counter and stamps ReadAt on every item.
func (in *Inbox) MarkAllRead(ctx context.Context) {
	in.mu.Lock()
	now := time.Now().UTC()
	for i := range in.items {
		if in.items[i].Unread() {
			in.items[i].ReadAt = now
		}
	}
	in.unread = 0
	in.mu.Unlock()

	if err := in.fetcher.MarkAllNotificationsRead(ctx, in.token); err != nil {
		in.logger.Error("marking all notifications read", errors.Wrap(err, "marking all notifications read"))
	}
}
