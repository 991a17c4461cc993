package extraction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core/tender"
)

type testLogger struct{}

func (testLogger) Debug(msg string, args ...interface{}) {}
func (testLogger) Info(msg string, args ...interface{})  {}
func (testLogger) Warn(msg string, args ...interface{})  {}
func (testLogger) Error(msg string, args ...interface{}) {}
func (testLogger) Fatal(msg string, args ...interface{}) {}

type fakeGetter struct {
	mu      sync.Mutex
	polls   int
	results []Result // successive responses; the last one repeats
	err     error
}

func (f *fakeGetter) Extraction(ctx context.Context, token, id string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Result{}, f.err
	}
	i := f.polls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.polls++
	return f.results[i], nil
}

func TestWatcher_Watch(t *testing.T) {
	items := []Item{
		{Description: "Excavation", Unit: "m3", Quantity: 120},
		{Description: "Concrete C25", Unit: "m3", Quantity: 45},
		{Description: "Rebar", Unit: "kg", Quantity: 3200},
		{Description: "Formwork", Unit: "m2", Quantity: 260},
		{Description: "Backfill", Unit: "m3", Quantity: 80},
	}

	t.Run("polls until completed", func(t *testing.T) {
		getter := &fakeGetter{results: []Result{
			{ID: "abc123", Status: StatusPending},
			{ID: "abc123", Status: StatusProcessing},
			{ID: "abc123", Status: StatusCompleted, Items: items},
		}}
		w := NewWatcher(getter, time.Millisecond, testLogger{})

		res, err := w.Watch(context.Background(), "tok", "abc123")
		if err != nil {
			t.Fatalf("Watch() failed: %v", err)
		}
		if res.Status != StatusCompleted {
			t.Errorf("Status = %s, want %s", res.Status, StatusCompleted)
		}
		if len(res.Items) != 5 {
			t.Errorf("got %d items, want 5", len(res.Items))
		}
		if getter.polls != 3 {
			t.Errorf("polls = %d, want 3", getter.polls)
		}
	})

	t.Run("failed extraction", func(t *testing.T) {
		getter := &fakeGetter{results: []Result{
			{ID: "abc123", Status: StatusFailed, Error: "unreadable PDF"},
		}}
		w := NewWatcher(getter, time.Millisecond, testLogger{})

		res, err := w.Watch(context.Background(), "tok", "abc123")
		if errors.Cause(err) != ErrFailed {
			t.Fatalf("Watch() error = %v, want ErrFailed", err)
		}
		if res.Error != "unreadable PDF" {
			t.Errorf("Error = %q, want %q", res.Error, "unreadable PDF")
		}
	})

	t.Run("context cancellation bounds the wait", func(t *testing.T) {
		getter := &fakeGetter{results: []Result{{ID: "abc123", Status: StatusProcessing}}}
		w := NewWatcher(getter, time.Millisecond, testLogger{})

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()

		if _, err := w.Watch(ctx, "tok", "abc123"); errors.Cause(err) != context.DeadlineExceeded {
			t.Fatalf("Watch() error = %v, want context.DeadlineExceeded", err)
		}
	})

	t.Run("poll failure aborts", func(t *testing.T) {
		getter := &fakeGetter{err: errors.New("boom")}
		w := NewWatcher(getter, time.Millisecond, testLogger{})

		if _, err := w.Watch(context.Background(), "tok", "abc123"); err == nil {
			t.Fatal("Watch() expected error, got nil")
		}
	})
}

func TestMatchItems(t *testing.T) {
	existing := []tender.BOQItem{
		{ID: 1, Description: "Excavation works", Unit: "m3", Quantity: 100, ItemType: tender.ItemUnitPriced, DisplayOrder: 1},
		{ID: 2, Description: "Site setup", ItemType: tender.ItemLumpSum, DisplayOrder: 2},
	}
	extracted := []Item{
		{Description: "excavation", Unit: "m3", Quantity: 120},              // matches row 1 (contained)
		{Description: "Site setup and fencing", Unit: "ls", Quantity: 1},    // matches row 2 (contains)
		{Description: "Concrete C25", Unit: "m3", Quantity: 45},             // unmatched, appended
		{Description: "Rebar", Unit: "kg", Quantity: 3200, ItemType: "lump_sum"}, // appended with its own type
	}

	merged := MatchItems(extracted, existing)
	if len(merged) != 4 {
		t.Fatalf("got %d items, want 4", len(merged))
	}

	// matched rows keep identity, take extracted unit/quantity
	if merged[0].ID != 1 || merged[0].Quantity != 120 {
		t.Errorf("row 1 = %+v, want ID 1 with quantity 120", merged[0])
	}
	if merged[1].ID != 2 || merged[1].Unit != "ls" {
		t.Errorf("row 2 = %+v, want ID 2 with unit ls", merged[1])
	}

	// unmatched rows are appended after the manual ones, in order
	if merged[2].Description != "Concrete C25" || merged[2].DisplayOrder != 3 {
		t.Errorf("row 3 = %+v, want Concrete C25 at display order 3", merged[2])
	}
	if merged[2].ItemType != tender.ItemUnitPriced {
		t.Errorf("row 3 type = %s, want default %s", merged[2].ItemType, tender.ItemUnitPriced)
	}
	if merged[3].ItemType != tender.ItemLumpSum || merged[3].DisplayOrder != 4 {
		t.Errorf("row 4 = %+v, want lump_sum at display order 4", merged[3])
	}
}

func TestMatchItems_emptyDescriptions(t *testing.T) {
	existing := []tender.BOQItem{{ID: 1, Description: "", DisplayOrder: 1}}
	merged := MatchItems([]Item{{Description: "  "}}, existing)

	// blank descriptions never match; the extracted row is appended as-is
	if len(merged) != 2 {
		t.Fatalf("got %d items, want 2", len(merged))
	}
}
