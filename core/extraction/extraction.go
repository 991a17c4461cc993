package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/tender"
)

// Statuses reported by the marketplace extraction pipeline.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Item is one BOQ row extracted from an uploaded PDF.
type Item struct {
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	ItemType    string  `json:"item_type"`
}

type Result struct {
	ID     string `json:"extraction_id"`
	Status string `json:"status"`
	Items  []Item `json:"items"`
	Error  string `json:"error"`
}

func (r Result) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// ErrFailed is returned when the marketplace reports a failed extraction.
var ErrFailed = errors.New("extraction failed")

// Getter is the slice of the marketplace client the watcher needs.
type Getter interface {
	Extraction(ctx context.Context, token, id string) (Result, error)
}

// Watcher polls a running extraction on a fixed interval until it reaches a
// terminal status. There is no backoff and no duration cap; cancelling ctx is
// the only way to bound the wait.
type Watcher struct {
	client   Getter
	interval time.Duration
	logger   core.Logger
}

func NewWatcher(client Getter, interval time.Duration, logger core.Logger) *Watcher {
	return &Watcher{client: client, interval: interval, logger: logger}
}

func (w *Watcher) Watch(ctx context.Context, token, id string) (Result, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Result{}, errors.Wrap(ctx.Err(), "watching extraction "+id)
		case <-ticker.C:
			res, err := w.client.Extraction(ctx, token, id)
			if err != nil {
				return Result{}, errors.Wrap(err, "polling extraction "+id)
			}
			switch res.Status {
			case StatusCompleted:
				return res, nil
			case StatusFailed:
				if res.Error != "" {
					return res, errors.Wrap(ErrFailed, res.Error)
				}
				return res, ErrFailed
			}
			// pending/processing: keep polling
		}
	}
}

// MatchItems merges extracted items into an existing BOQ list. An extracted
// item matches a row when either description contains the other,
// case-insensitively; matched rows take the extracted unit/quantity, the rest
// are appended in order after the manual rows.
func MatchItems(extracted []Item, existing []tender.BOQItem) []tender.BOQItem {
	merged := make([]tender.BOQItem, len(existing))
	copy(merged, existing)

	for _, ex := range extracted {
		if i := matchIndex(ex.Description, merged); i >= 0 {
			if ex.Unit != "" {
				merged[i].Unit = ex.Unit
			}
			if ex.Quantity > 0 {
				merged[i].Quantity = ex.Quantity
			}
			continue
		}
		itemType := ex.ItemType
		if itemType == "" {
			itemType = tender.ItemUnitPriced
		}
		merged = append(merged, tender.BOQItem{
			Description:  ex.Description,
			Unit:         ex.Unit,
			Quantity:     ex.Quantity,
			ItemType:     itemType,
			DisplayOrder: tender.NextDisplayOrder(merged),
		})
	}
	return merged
}

func matchIndex(desc string, items []tender.BOQItem) int {
	needle := strings.ToLower(strings.TrimSpace(desc))
	if needle == "" {
		return -1
	}
	for i, it := range items {
		hay := strings.ToLower(strings.TrimSpace(it.Description))
		if hay == "" {
			continue
		}
		if strings.Contains(hay, needle) || strings.Contains(needle, hay) {
			return i
		}
	}
	return -1
}
