package auth

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/session"
	"github.com/MikeMC777/storefront/internal/user"
)

const (
	principalKey = "principal"
	// CookieName carries the token for browser clients.
	CookieName = "storefront_session"
)

var (
	ErrLoginRequired = apperr.Unauthorized("please log in first").WithRedirect("/login")
	ErrAdminRequired = apperr.Forbidden("admin access required").WithRedirect("/products")
)

// UserLoader reloads the user on each request so role changes apply at once.
type UserLoader interface {
	Get(ctx context.Context, id int64) (*user.User, error)
}

func bearer(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if v, err := c.Cookie(CookieName); err == nil {
		return v
	}
	return ""
}

// Authenticate resolves the requester. Missing, invalid, expired or revoked
// tokens leave the request anonymous; the Require* gates decide what that
// means for the route.
func Authenticate(issuer *Issuer, sessions session.Store, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := &Principal{}
		c.Set(principalKey, p)

		raw := bearer(c)
		if raw == "" {
			c.Next()
			return
		}
		claims, err := issuer.Parse(raw)
		if err != nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		revoked, err := sessions.Revoked(ctx, claims.SessionID)
		if err != nil {
			log.Printf("[auth] rid=%s revocation check: %v", httpx.RID(c), err)
			httpx.Error(c, apperr.Internal("session check failed", err))
			return
		}
		if revoked {
			c.Next()
			return
		}

		if uid := claims.UserID(); uid > 0 {
			u, err := users.Get(ctx, uid)
			if err != nil {
				// deleted account
				c.Next()
				return
			}
			p.User = u
		}
		p.SessionID = claims.SessionID
		p.ExpiresAt = claims.ExpiresAt.Time
		c.Next()
	}
}

// Current returns the requester resolved by Authenticate.
func Current(c *gin.Context) *Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(*Principal); ok {
			return p
		}
	}
	return &Principal{}
}

// RequireSession admits guests and authenticated users.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Current(c).HasSession() {
			httpx.Error(c, ErrLoginRequired)
			return
		}
		c.Next()
	}
}

// RequireCustomer admits authenticated users of any role.
func RequireCustomer() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Current(c).Tier() < Customer {
			httpx.Error(c, ErrLoginRequired)
			return
		}
		c.Next()
	}
}

// RequireAdmin admits admins, owners and staff. Customers get 403, anonymous
// callers 401.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch Current(c).Tier() {
		case Admin:
			c.Next()
		case Customer:
			httpx.Error(c, ErrAdminRequired)
		default:
			httpx.Error(c, ErrLoginRequired)
		}
	}
}

// Logout revokes the session for the rest of its lifetime.
func Logout(ctx context.Context, sessions session.Store, p *Principal) error {
	if !p.HasSession() {
		return nil
	}
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	return sessions.Revoke(ctx, p.SessionID, ttl)
}
