package account

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Owner-side projections. All state lives in the marketplace; these types only
// shape what the owner dashboard renders and the two forms it may post back.

type DashboardStats struct {
	TotalUsers    int     `json:"total_users"`
	ActiveTenders int     `json:"active_tenders"`
	BidsSubmitted int     `json:"bids_submitted"`
	Revenue       float64 `json:"revenue"`
}

type RevenuePoint struct {
	Period string  `json:"period"` // e.g. "2026-08"
	Amount float64 `json:"amount"`
}

// ManagedUser is a platform account as seen by the owner (and the contractor
// directory, which shares the shape).
type ManagedUser struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	CompanyName string    `json:"company_name"`
	Verified    bool      `json:"verified"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// UserUpdate defines what the owner may change on an account.
type UserUpdate struct {
	Status   string `json:"status" validate:"omitempty,oneof=active suspended"`
	Verified *bool  `json:"verified"`
}

func (uu UserUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(uu)
}

type AuditLogEntry struct {
	ID        int       `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// PlatformConfig is the owner-editable marketplace configuration.
type PlatformConfig struct {
	CommissionPct float64 `json:"commission_pct" validate:"gte=0,lte=100"`
	UnlockCost    int     `json:"unlock_cost" validate:"gte=0"`
	SupportEmail  string  `json:"support_email" validate:"omitempty,email"`
}

func (pc PlatformConfig) Validate(validate *validator.Validate) error {
	return validate.Struct(pc)
}
