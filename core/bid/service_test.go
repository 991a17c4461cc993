package bid

import (
	"context"
	"testing"

	"github.com/pkg/errors"
)

type fakeUpserter struct {
	upserts int
	submits int

	upsertErr error
	submitErr error
}

func (f *fakeUpserter) UpsertBid(ctx context.Context, token string, tenderID int, draft Draft) (Bid, error) {
	f.upserts++
	if f.upsertErr != nil {
		return Bid{}, f.upsertErr
	}
	return Bid{ID: 99, TenderID: tenderID, TotalAmount: draft.TotalAmount, Status: StatusDraft}, nil
}

func (f *fakeUpserter) SubmitBid(ctx context.Context, token string, bidID int) (Bid, error) {
	f.submits++
	if f.submitErr != nil {
		return Bid{}, f.submitErr
	}
	return Bid{ID: bidID, Status: StatusSubmitted}, nil
}

func validForm(t *testing.T) *Form {
	t.Helper()
	f := NewForm(testTender())
	if err := f.SetPrice(10, 100); err != nil {
		t.Fatalf("SetPrice() failed: %v", err)
	}
	f.OfferFile = &Upload{Filename: "offer.pdf"}
	return f
}

func TestService_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("two phases in order", func(t *testing.T) {
		mkt := &fakeUpserter{}
		svc := NewService(mkt)

		b, err := svc.Submit(ctx, "tok", validForm(t))
		if err != nil {
			t.Fatalf("Submit() failed: %v", err)
		}
		if b.Status != StatusSubmitted {
			t.Errorf("Status = %s, want %s", b.Status, StatusSubmitted)
		}
		if mkt.upserts != 1 || mkt.submits != 1 {
			t.Errorf("upserts = %d, submits = %d; want 1 and 1", mkt.upserts, mkt.submits)
		}
	})

	t.Run("invalid form makes no network call", func(t *testing.T) {
		mkt := &fakeUpserter{}
		svc := NewService(mkt)

		f := NewForm(testTender()) // zero total, no file
		if _, err := svc.Submit(ctx, "tok", f); err == nil {
			t.Fatal("Submit() expected error, got nil")
		}
		if mkt.upserts != 0 || mkt.submits != 0 {
			t.Errorf("upserts = %d, submits = %d; want 0 and 0", mkt.upserts, mkt.submits)
		}
	})

	t.Run("upsert failure skips phase two", func(t *testing.T) {
		mkt := &fakeUpserter{upsertErr: errors.New("boom")}
		svc := NewService(mkt)

		if _, err := svc.Submit(ctx, "tok", validForm(t)); err == nil {
			t.Fatal("Submit() expected error, got nil")
		}
		if mkt.submits != 0 {
			t.Errorf("submits = %d, want 0", mkt.submits)
		}
	})

	t.Run("submit failure leaves the draft behind", func(t *testing.T) {
		mkt := &fakeUpserter{submitErr: errors.New("boom")}
		svc := NewService(mkt)

		if _, err := svc.Submit(ctx, "tok", validForm(t)); err == nil {
			t.Fatal("Submit() expected error, got nil")
		}
		if mkt.upserts != 1 {
			t.Errorf("upserts = %d, want 1", mkt.upserts)
		}
	})
}

func TestService_SaveDraft(t *testing.T) {
	mkt := &fakeUpserter{}
	svc := NewService(mkt)

	// a zero-total draft is perfectly saveable; only submission demands more
	f := NewForm(testTender())
	b, err := svc.SaveDraft(context.Background(), "tok", f)
	if err != nil {
		t.Fatalf("SaveDraft() failed: %v", err)
	}
	if b.Status != StatusDraft {
		t.Errorf("Status = %s, want %s", b.Status, StatusDraft)
	}
}
