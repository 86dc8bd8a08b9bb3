// Package auth issues and checks session tokens and gates routes by the tier
// of the requester: anonymous, customer or admin.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MikeMC777/storefront/internal/user"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims of a session token. Subject is the user id, empty for guests.
type Claims struct {
	SessionID string    `json:"sid"`
	Role      user.Role `json:"role,omitempty"`
	Staff     bool      `json:"staff,omitempty"`
	Guest     bool      `json:"guest,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret      []byte
	sessionTTL  time.Duration
	rememberTTL time.Duration
	guestTTL    time.Duration
	now         func() time.Time
}

func NewIssuer(secret string, sessionTTL, rememberTTL, guestTTL time.Duration) *Issuer {
	return &Issuer{
		secret:      []byte(secret),
		sessionTTL:  sessionTTL,
		rememberTTL: rememberTTL,
		guestTTL:    guestTTL,
		now:         time.Now,
	}
}

// Token is what login and guest issuance hand back to the client.
// swagger:model Token
type Token struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Guest     bool      `json:"guest,omitempty"`
}

// IssueUser signs a token for u. remember selects the long session lifetime.
func (i *Issuer) IssueUser(u *user.User, remember bool) (*Token, error) {
	ttl := i.sessionTTL
	if remember {
		ttl = i.rememberTTL
	}
	return i.issue(Claims{Role: u.Role, Staff: u.IsStaff}, strconv.FormatInt(u.ID, 10), ttl)
}

// IssueGuest signs an anonymous session token that can hold a cart.
func (i *Issuer) IssueGuest() (*Token, error) {
	return i.issue(Claims{Guest: true}, "", i.guestTTL)
}

func (i *Issuer) issue(c Claims, subject string, ttl time.Duration) (*Token, error) {
	now := i.now()
	c.SessionID = uuid.NewString()
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        c.SessionID,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Token: signed, SessionID: c.SessionID, ExpiresAt: c.ExpiresAt.Time, Guest: c.Guest}, nil
}

// Parse verifies the signature and expiry of raw.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	var c Claims
	_, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// UserID returns the subject as a user id, 0 for guests.
func (c *Claims) UserID() int64 {
	if c.Guest || c.Subject == "" {
		return 0
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
