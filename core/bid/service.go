package bid

import (
	"context"

	"github.com/pkg/errors"
)

type (
	// Upserter is the slice of the marketplace client the bid flow needs.
	Upserter interface {
		UpsertBid(ctx context.Context, token string, tenderID int, draft Draft) (Bid, error)
		SubmitBid(ctx context.Context, token string, bidID int) (Bid, error)
	}

	Service struct {
		mkt Upserter
	}
)

func NewService(mkt Upserter) *Service {
	return &Service{mkt: mkt}
}

// SaveDraft upserts the bid with its line items and optional file. Prices are
// validated on entry (SetPrice), so the draft is persisted as-is.
func (s *Service) SaveDraft(ctx context.Context, token string, f *Form) (Bid, error) {
	b, err := s.mkt.UpsertBid(ctx, token, f.TenderID, f.Draft())
	return b, errors.Wrap(err, "saving bid draft")
}

// Submit runs the two-phase submission: persist the draft, then transition it
// to submitted. Precondition violations abort before any network call. A
// failure after phase one leaves the bid in draft; the user retries manually
// (no idempotency key is sent, matching the marketplace contract).
func (s *Service) Submit(ctx context.Context, token string, f *Form) (Bid, error) {
	if err := f.ValidateSubmit(); err != nil {
		return Bid{}, err
	}

	draft, err := s.SaveDraft(ctx, token, f)
	if err != nil {
		return Bid{}, err
	}

	b, err := s.mkt.SubmitBid(ctx, token, draft.ID)
	return b, errors.Wrap(err, "submitting bid")
}
