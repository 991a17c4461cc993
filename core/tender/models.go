package tender

import (
	"sort"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/appaltosmart/webclient/core"
)

// Statuses; transitions are requested by this client but enforced by the marketplace.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusOpen      = "open"
	StatusReview    = "review"
	StatusAwarded   = "awarded"
	StatusClosed    = "closed"
)

// BOQ item types
const (
	ItemUnitPriced = "unit_priced"
	ItemLumpSum    = "lump_sum"
)

// Budget buckets offered on the tender form; the marketplace stores the label as-is.
var BudgetBuckets = []string{
	"< 50.000",
	"50.000 - 200.000",
	"200.000 - 500.000",
	"500.000 - 1.000.000",
	"> 1.000.000",
}

type BOQItem struct {
	ID           int     `json:"id"`
	Description  string  `json:"description"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity"`
	ItemType     string  `json:"item_type"`
	DisplayOrder int     `json:"display_order"`
}

func (it BOQItem) UnitPriced() bool { return it.ItemType != ItemLumpSum }

type Tender struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Budget      string    `json:"budget"`
	Deadline    time.Time `json:"deadline"`
	Status      string    `json:"status"`
	BOQItems    []BOQItem `json:"boq_items"`
	Unlocked    bool      `json:"unlocked"`
	CreatedAt   time.Time `json:"created_at"`
}

// Open reports whether bids can still be composed against this tender.
func (t Tender) Open(now time.Time) bool {
	if t.Status != StatusOpen && t.Status != StatusPublished {
		return false
	}
	return t.Deadline.IsZero() || now.Before(t.Deadline)
}

// TimeLeft returns the remaining time before the deadline, floored at 0.
func (t Tender) TimeLeft(now time.Time) time.Duration {
	if t.Deadline.IsZero() {
		return 0
	}
	left := t.Deadline.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// SortItems orders BOQ items by display order, then ID for stability.
func SortItems(items []BOQItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].DisplayOrder != items[j].DisplayOrder {
			return items[i].DisplayOrder < items[j].DisplayOrder
		}
		return items[i].ID < items[j].ID
	})
}

// NextDisplayOrder returns the display order for a row appended to `items`.
func NextDisplayOrder(items []BOQItem) int {
	max := 0
	for _, it := range items {
		if it.DisplayOrder > max {
			max = it.DisplayOrder
		}
	}
	return max + 1
}

// NewBOQItem carries one BOQ row of a tender form.
type NewBOQItem struct {
	Description  string  `json:"description" validate:"required"`
	Unit         string  `json:"unit"`
	Quantity     float64 `json:"quantity" validate:"gte=0"`
	ItemType     string  `json:"item_type" validate:"required,oneof=unit_priced lump_sum"`
	DisplayOrder int     `json:"display_order"`
}

// NewTender contains information needed to create a new Tender.
type NewTender struct {
	Title       string       `json:"title" validate:"required"`
	Description string       `json:"description"`
	Location    string       `json:"location" validate:"required"`
	Budget      string       `json:"budget" validate:"required"`
	Deadline    time.Time    `json:"deadline" validate:"required,futuredate"`
	Items       []NewBOQItem `json:"boq_items" validate:"dive"`
}

func (nt *NewTender) Validate(validate *validator.Validate, _ ut.Translator) error {
	nt.Title = core.CleanString(nt.Title)
	nt.Location = core.CleanString(nt.Location)
	return validate.Struct(nt)
}

// UpdateTender defines what may be modified on an existing draft Tender.
type UpdateTender struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Location    string       `json:"location"`
	Budget      string       `json:"budget"`
	Deadline    time.Time    `json:"deadline" validate:"omitempty,futuredate"`
	Items       []NewBOQItem `json:"boq_items" validate:"omitempty,dive"`
}

func (ut_ *UpdateTender) Validate(validate *validator.Validate) error {
	ut_.Title = core.CleanString(ut_.Title)
	ut_.Location = core.CleanString(ut_.Location)
	return validate.Struct(ut_)
}

// PublishReady reports whether a tender has what the marketplace requires for
// publishing; surfaced client-side to avoid a doomed request.
func (t Tender) PublishReady() error {
	if len(t.BOQItems) == 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "boq_items", Error: "at least one BOQ item is required to publish",
		})
	}
	return nil
}
