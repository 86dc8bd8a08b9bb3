package auth

import (
	"time"

	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/user"
)

type Tier int

const (
	Anonymous Tier = iota
	Customer
	Admin
)

func (t Tier) String() string {
	switch t {
	case Customer:
		return "customer"
	case Admin:
		return "admin"
	default:
		return "anonymous"
	}
}

// Principal is the requester. The zero value is an anonymous caller without a
// session; a guest has a SessionID but no User.
type Principal struct {
	User      *user.User
	SessionID string
	ExpiresAt time.Time
}

func (p *Principal) Tier() Tier {
	switch {
	case p == nil || p.User == nil:
		return Anonymous
	case p.User.IsAdmin():
		return Admin
	default:
		return Customer
	}
}

func (p *Principal) UserID() int64 {
	if p == nil || p.User == nil {
		return 0
	}
	return p.User.ID
}

// HasSession reports whether the requester holds a live session, guest or not.
func (p *Principal) HasSession() bool {
	return p != nil && p.SessionID != ""
}

// CartIdentity keys the cart by user for authenticated requesters and by the
// session for guests.
func (p *Principal) CartIdentity() (cart.Identity, bool) {
	switch {
	case p.UserID() > 0:
		return cart.ForUser(p.UserID()), true
	case p.HasSession():
		return cart.ForSession(p.SessionID), true
	default:
		return cart.Identity{}, false
	}
}
