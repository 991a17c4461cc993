package billing

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Balance is the contractor's prepaid credit balance. Credits are spent to
// unlock tender details; the marketplace owns the ledger.
type Balance struct {
	Credits    int `json:"credits"`
	UnlockCost int `json:"unlock_cost"`
}

func (b Balance) CanUnlock() bool { return b.Credits >= b.UnlockCost }

// Transaction is a read-only ledger projection.
type Transaction struct {
	ID          int       `json:"id"`
	Kind        string    `json:"kind"` // purchase | unlock | refund
	Amount      float64   `json:"amount"`
	Credits     int       `json:"credits"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreditPack is a purchasable bundle offered on the billing page.
type CreditPack struct {
	Code    string  `json:"code"`
	Credits int     `json:"credits"`
	Price   float64 `json:"price"`
}

var Packs = []CreditPack{
	{Code: "starter", Credits: 10, Price: 49},
	{Code: "pro", Credits: 50, Price: 199},
	{Code: "enterprise", Credits: 200, Price: 599},
}

func PackByCode(code string) (CreditPack, bool) {
	for _, p := range Packs {
		if p.Code == code {
			return p, true
		}
	}
	return CreditPack{}, false
}

type PurchaseRequest struct {
	Pack string `json:"pack" validate:"required,oneof=starter pro enterprise"`
}

func (pr PurchaseRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(pr)
}
