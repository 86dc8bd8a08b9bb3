package main

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MikeMC777/storefront/internal/auth"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/httpx"
	"github.com/MikeMC777/storefront/internal/session"
	"github.com/MikeMC777/storefront/internal/user"
)

type tokenResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	Guest     bool       `json:"guest"`
	User      *user.User `json:"user,omitempty"`
}

func setSessionCookie(c *gin.Context, t *auth.Token) {
	maxAge := int(time.Until(t.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, t.Token, maxAge, "/", "", false, true)
}

// registerHandler godoc
// @Summary  Create a customer account
// @Tags     auth
// @Param    body body user.RegisterInput true "account"
// @Success  201 {object} user.User
// @Failure  422 {object} httpx.ErrorBody
// @Router   /auth/register [post]
func registerHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in user.RegisterInput
		if !httpx.Bind(c, &in) {
			return
		}
		u, err := svc.Register(c.Request.Context(), in)
		if err != nil {
			httpx.Error(c, withRedirect(err, "/register"))
			return
		}
		log.Printf("[auth] rid=%s registered user %d", httpx.RID(c), u.ID)
		c.JSON(http.StatusCreated, u)
	}
}

// loginHandler godoc
// @Summary  Log in; a guest cart held by the caller's session moves to the account
// @Tags     auth
// @Param    body body user.LoginInput true "credentials"
// @Success  200 {object} tokenResponse
// @Failure  401 {object} httpx.ErrorBody
// @Router   /auth/login [post]
func loginHandler(users *user.Service, carts *cart.Service, issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in user.LoginInput
		if !httpx.Bind(c, &in) {
			return
		}
		ctx := c.Request.Context()
		u, err := users.Authenticate(ctx, in.Username, in.Password)
		if err != nil {
			httpx.Error(c, withRedirect(err, "/login"))
			return
		}
		tok, err := issuer.IssueUser(u, in.Remember)
		if err != nil {
			httpx.Error(c, err)
			return
		}

		if p := auth.Current(c); p.HasSession() && p.User == nil {
			n, err := carts.Merge(ctx, cart.ForSession(p.SessionID), cart.ForUser(u.ID))
			if err != nil {
				// the login itself succeeded
				log.Printf("[auth] rid=%s merge guest cart: %v", httpx.RID(c), err)
			} else if n > 0 {
				log.Printf("[auth] rid=%s merged %d guest lines into user %d", httpx.RID(c), n, u.ID)
			}
		}

		setSessionCookie(c, tok)
		c.JSON(http.StatusOK, tokenResponse{Token: tok.Token, ExpiresAt: tok.ExpiresAt, User: u})
	}
}

func logoutHandler(sessions session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := auth.Logout(c.Request.Context(), sessions, auth.Current(c)); err != nil {
			httpx.Error(c, err)
			return
		}
		c.SetCookie(auth.CookieName, "", -1, "/", "", false, true)
		c.Status(http.StatusNoContent)
	}
}

// guestHandler issues an anonymous session so a visitor can hold a cart.
func guestHandler(issuer *auth.Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, err := issuer.IssueGuest()
		if err != nil {
			httpx.Error(c, err)
			return
		}
		setSessionCookie(c, tok)
		c.JSON(http.StatusCreated, tokenResponse{Token: tok.Token, ExpiresAt: tok.ExpiresAt, Guest: true})
	}
}

func getProfileHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		u := auth.Current(c).User
		addr, err := svc.Address(ctx, u.ID)
		if err != nil && !errors.Is(err, user.ErrAddressNotFound) {
			httpx.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u, "address": addr})
	}
}

func updateProfileHandler(svc *user.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in user.ProfileInput
		if !httpx.Bind(c, &in) {
			return
		}
		u, err := svc.UpdateProfile(c.Request.Context(), auth.Current(c).UserID(), in)
		if err != nil {
			httpx.Error(c, withRedirect(err, "/profile"))
			return
		}
		c.JSON(http.StatusOK, u)
	}
}
