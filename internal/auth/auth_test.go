package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/session"
	"github.com/MikeMC777/storefront/internal/user"
)

type stubUsers map[int64]*user.User

func (s stubUsers) Get(_ context.Context, id int64) (*user.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

func newIssuer() *Issuer {
	return NewIssuer("test-secret", 12*time.Hour, 336*time.Hour, 24*time.Hour)
}

func TestIssuer_RoundTrip(t *testing.T) {
	iss := newIssuer()
	u := &user.User{ID: 7, Role: user.RoleAdmin}

	tok, err := iss.IssueUser(u, false)
	require.NoError(t, err)
	claims, err := iss.Parse(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID())
	assert.Equal(t, user.RoleAdmin, claims.Role)
	assert.Equal(t, tok.SessionID, claims.SessionID)

	remembered, err := iss.IssueUser(u, true)
	require.NoError(t, err)
	assert.True(t, remembered.ExpiresAt.After(tok.ExpiresAt.Add(300*time.Hour)))
}

func TestIssuer_Guest(t *testing.T) {
	iss := newIssuer()
	tok, err := iss.IssueGuest()
	require.NoError(t, err)
	claims, err := iss.Parse(tok.Token)
	require.NoError(t, err)
	assert.True(t, claims.Guest)
	assert.Zero(t, claims.UserID())
}

func TestIssuer_RejectsExpiredAndForeign(t *testing.T) {
	iss := newIssuer()
	tok, err := iss.IssueUser(&user.User{ID: 1, Role: user.RoleCustomer}, false)
	require.NoError(t, err)

	iss.now = func() time.Time { return time.Now().Add(13 * time.Hour) }
	_, err = iss.Parse(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewIssuer("other-secret", time.Hour, time.Hour, time.Hour)
	_, err = other.Parse(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func gated(iss *Issuer, store session.Store, users UserLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Authenticate(iss, store, users))
	ok := func(c *gin.Context) { c.String(http.StatusOK, Current(c).Tier().String()) }
	r.GET("/cart", RequireSession(), ok)
	r.GET("/orders", RequireCustomer(), ok)
	r.GET("/admin", RequireAdmin(), ok)
	return r
}

func call(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGates(t *testing.T) {
	iss := newIssuer()
	users := stubUsers{
		1: {ID: 1, Role: user.RoleCustomer},
		2: {ID: 2, Role: user.RoleOwner},
		3: {ID: 3, Role: user.RoleCustomer, IsStaff: true},
	}
	r := gated(iss, session.NewMemoryStore(), users)

	guest, err := iss.IssueGuest()
	require.NoError(t, err)
	customer, err := iss.IssueUser(users[1], false)
	require.NoError(t, err)
	owner, err := iss.IssueUser(users[2], false)
	require.NoError(t, err)
	staff, err := iss.IssueUser(users[3], false)
	require.NoError(t, err)

	tests := []struct {
		name, path, token string
		status            int
	}{
		{"anonymous cart", "/cart", "", http.StatusUnauthorized},
		{"guest cart", "/cart", guest.Token, http.StatusOK},
		{"guest orders", "/orders", guest.Token, http.StatusUnauthorized},
		{"customer orders", "/orders", customer.Token, http.StatusOK},
		{"customer admin", "/admin", customer.Token, http.StatusForbidden},
		{"anonymous admin", "/admin", "", http.StatusUnauthorized},
		{"owner admin", "/admin", owner.Token, http.StatusOK},
		{"staff admin", "/admin", staff.Token, http.StatusOK},
		{"garbage token", "/orders", "not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(r, tt.path, tt.token)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGates_RoleChangeAppliesImmediately(t *testing.T) {
	iss := newIssuer()
	users := stubUsers{1: {ID: 1, Role: user.RoleAdmin}}
	r := gated(iss, session.NewMemoryStore(), users)

	tok, err := iss.IssueUser(users[1], false)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, call(r, "/admin", tok.Token).Code)

	users[1].Role = user.RoleCustomer
	assert.Equal(t, http.StatusForbidden, call(r, "/admin", tok.Token).Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	iss := newIssuer()
	store := session.NewMemoryStore()
	users := stubUsers{1: {ID: 1, Role: user.RoleCustomer}}
	r := gated(iss, store, users)

	tok, err := iss.IssueUser(users[1], false)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, call(r, "/orders", tok.Token).Code)

	p := &Principal{User: users[1], SessionID: tok.SessionID, ExpiresAt: tok.ExpiresAt}
	require.NoError(t, Logout(context.Background(), store, p))
	assert.Equal(t, http.StatusUnauthorized, call(r, "/orders", tok.Token).Code)
}
