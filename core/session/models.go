package session

import (
	"time"
)

// Roles
const (
	RoleAdmin      = "admin"
	RoleContractor = "contractor"
	RoleOwner      = "owner"
)

var (
	AllRoles = []string{RoleAdmin, RoleContractor, RoleOwner}

	roleHomePaths = map[string]string{
		RoleAdmin:      "/admin",
		RoleContractor: "/contractor",
		RoleOwner:      "/owner",
	}
)

func ValidRole(role string) bool {
	_, ok := roleHomePaths[role]
	return ok
}

// HomePath returns the landing path for a role; unknown roles land on "/".
func HomePath(role string) string {
	if p, ok := roleHomePaths[role]; ok {
		return p
	}
	return "/"
}

// User is the denormalized account snapshot cached alongside the session
// so pages render immediately without a round-trip to the marketplace.
// The marketplace remains the authority; the snapshot is trusted until the
// first API call answers 401.
type User struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	CompanyName string `json:"company_name"`
	Verified    bool   `json:"verified"`
	Status      string `json:"status"`
}

func (u User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u User) IsContractor() bool { return u.Role == RoleContractor }
func (u User) IsOwner() bool      { return u.Role == RoleOwner }

func (u User) HomePath() string { return HomePath(u.Role) }

// Session holds the marketplace bearer token and the user snapshot for one
// signed-in browser.
type Session struct {
	ID         string    `json:"id"`
	Token      string    `json:"-"`
	User       User      `json:"user"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	ExpiresAt  time.Time `json:"expires_at"` // UTC
	LastSeenAt time.Time `json:"last_seen_at"`
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
