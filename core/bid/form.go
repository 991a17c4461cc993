package bid

import (
	"math"

	"github.com/appaltosmart/webclient/core"
	"github.com/appaltosmart/webclient/core/tender"
)

// Line is one BOQ row of the composition form with its entered price.
type Line struct {
	Item  tender.BOQItem
	Price float64
}

// Total is price × quantity for unit-priced rows, the price alone for lump sums.
func (l Line) Total() float64 {
	if l.Item.UnitPriced() {
		return l.Price * l.Item.Quantity
	}
	return l.Price
}

type Discount struct {
	Mode  string // percent | fixed; empty means none
	Value float64
}

// Form holds the client-side state of the bid composition screen. All amounts
// here are for display; the marketplace recomputes the authoritative total.
type Form struct {
	TenderID  int
	Lines     []Line
	Discount  Discount
	Proposal  string
	OfferFile *Upload
	Signature *Upload
}

// NewForm builds a composition form for a tender, one zero-priced line per BOQ
// item in display order.
func NewForm(t tender.Tender) *Form {
	items := make([]tender.BOQItem, len(t.BOQItems))
	copy(items, t.BOQItems)
	tender.SortItems(items)

	lines := make([]Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{Item: it})
	}
	return &Form{TenderID: t.ID, Lines: lines}
}

// SetPrice records a price for a BOQ item. Negative or non-finite input is
// rejected and the previous value is kept.
func (f *Form) SetPrice(itemID int, price float64) error {
	// strconv.ParseFloat lets "NaN" and "Inf" through; both would poison the
	// totals and the draft payload
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "price", Error: "price must be a finite amount",
		})
	}
	if price < 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "price", Error: "price cannot be negative",
		})
	}
	for i := range f.Lines {
		if f.Lines[i].Item.ID == itemID {
			f.Lines[i].Price = price
			return nil
		}
	}
	return core.NewValidationError(nil, core.FieldError{
		Field: "price", Error: "unknown BOQ item",
	})
}

// SetDiscount records the discount. The value must be finite; percent must be
// within [0, 100]; a fixed amount must not be negative.
func (f *Form) SetDiscount(mode string, value float64) error {
	if mode == "" {
		f.Discount = Discount{}
		return nil
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "discount", Error: "discount must be a finite amount",
		})
	}
	switch mode {
	case DiscountPercent:
		if value < 0 || value > 100 {
			return core.NewValidationError(nil, core.FieldError{
				Field: "discount", Error: "percentage must be between 0 and 100",
			})
		}
	case DiscountFixed:
		if value < 0 {
			return core.NewValidationError(nil, core.FieldError{
				Field: "discount", Error: "discount cannot be negative",
			})
		}
	default:
		return core.NewValidationError(nil, core.FieldError{
			Field: "discount", Error: "unknown discount mode",
		})
	}
	f.Discount = Discount{Mode: mode, Value: value}
	return nil
}

func (f *Form) Subtotal() float64 {
	var sum float64
	for _, l := range f.Lines {
		sum += l.Total()
	}
	return sum
}

func (f *Form) DiscountAmount() float64 {
	switch f.Discount.Mode {
	case DiscountPercent:
		return f.Subtotal() * f.Discount.Value / 100
	case DiscountFixed:
		return f.Discount.Value
	}
	return 0
}

// Total is the discounted subtotal, floored at 0.
func (f *Form) Total() float64 {
	total := f.Subtotal() - f.DiscountAmount()
	if total < 0 {
		return 0
	}
	return total
}

// ValidateSubmit enforces the submit preconditions: a positive total and
// either an uploaded offer file or a captured signature. A violation means no
// request is sent at all.
func (f *Form) ValidateSubmit() error {
	var flds []core.FieldError
	if f.Total() <= 0 {
		flds = append(flds, core.FieldError{
			Field: "total", Error: "bid total must be greater than zero",
		})
	}
	if f.OfferFile == nil && f.Signature == nil {
		flds = append(flds, core.FieldError{
			Field: "offer_file", Error: "an offer file or a signature is required",
		})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Items flattens the form lines into the wire representation.
func (f *Form) Items() []BidItem {
	items := make([]BidItem, 0, len(f.Lines))
	for _, l := range f.Lines {
		items = append(items, BidItem{
			BOQItemID:   l.Item.ID,
			Description: l.Item.Description,
			Unit:        l.Item.Unit,
			Quantity:    l.Item.Quantity,
			Price:       l.Price,
			Total:       l.Total(),
		})
	}
	return items
}

// Draft builds the upsert payload. The signature doubles as the offer file
// when no separate file was uploaded.
func (f *Form) Draft() Draft {
	file := f.OfferFile
	if file == nil {
		file = f.Signature
	}
	return Draft{
		Items:         f.Items(),
		DiscountMode:  f.Discount.Mode,
		DiscountValue: f.Discount.Value,
		TotalAmount:   f.Total(),
		Proposal:      f.Proposal,
		OfferFile:     file,
	}
}
