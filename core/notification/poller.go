package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/appaltosmart/webclient/core"
)

// DigestFunc receives unread notifications first seen by a poll tick.
type DigestFunc func(fresh []Notification)

// FatalFunc reports whether a refresh error means the session behind the
// poller is gone. Optional; without it every error is retried on the next tick.
type FatalFunc func(err error) bool

// Poller refreshes an inbox on a fixed interval for as long as its session
// lives. Plain ticker, no drift correction, no backoff; the loop stops when
// its context ends or a tick hits a fatal error.
type Poller struct {
	inbox    *Inbox
	interval time.Duration
	logger   core.Logger
	digest   DigestFunc // optional
	fatal    FatalFunc  // optional
}

func NewPoller(inbox *Inbox, interval time.Duration, logger core.Logger, digest DigestFunc, fatal FatalFunc) *Poller {
	return &Poller{inbox: inbox, interval: interval, logger: logger, digest: digest, fatal: fatal}
}

// Run polls until ctx is cancelled or a tick fails fatally; the fatal error is
// returned so the caller can tear down the session's state. The first fetch
// happens immediately.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.tick(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.tick(ctx); err != nil {
				return err
			}
		}
	}
}

func (p *Poller) tick(ctx context.Context) error {
	fresh, err := p.inbox.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if p.fatal != nil && p.fatal(err) {
			return err
		}
		p.logger.Warn(fmt.Sprintf("notification poll: %v", err), err)
		return nil
	}
	if p.digest != nil && len(fresh) > 0 {
		p.digest(fresh)
	}
	return nil
}
