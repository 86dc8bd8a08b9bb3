package user_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/activity"
	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/memstore"
	"github.com/MikeMC777/storefront/internal/user"
)

func newService() *user.Service {
	s := memstore.New()
	return user.NewService(s.Users(), s.Users(), s, activity.NewService(s.Activity()), nil)
}

func register(t *testing.T, svc *user.Service, name string) *user.User {
	t.Helper()
	u, err := svc.Register(context.Background(), user.RegisterInput{Username: name, Password: "pw", ConfirmPassword: "pw"})
	require.NoError(t, err)
	return u
}

func TestRegister(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u := register(t, svc, " ann ")
	assert.Equal(t, "ann", u.Username)
	assert.Equal(t, user.RoleCustomer, u.Role)
	assert.NotEqual(t, "pw", u.PasswordHash)

	_, err := svc.Register(ctx, user.RegisterInput{Username: "ann", Password: "pw", ConfirmPassword: "pw"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Contains(t, e.Fields, "username")

	_, err = svc.Register(ctx, user.RegisterInput{Username: "bob", Password: "pw", ConfirmPassword: "px"})
	assert.ErrorIs(t, err, user.ErrPasswordMismatch)
}

func TestAuthenticate(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	register(t, svc, "ann")

	u, err := svc.Authenticate(ctx, "ann", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Username)

	_, err = svc.Authenticate(ctx, "ann", "nope")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, user.ErrInvalidCredentials)
}

func TestSetRole_OwnerRule(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	owner, created, err := svc.EnsureOwner(ctx, "root", "pw")
	require.NoError(t, err)
	require.True(t, created)
	_, created, _ = svc.EnsureOwner(ctx, "root", "other")
	assert.False(t, created)

	ann := register(t, svc, "ann")
	bob := register(t, svc, "bob")

	// customers cannot change roles
	_, err = svc.SetRole(ctx, bob, ann.ID, user.RoleAdmin)
	assert.Equal(t, apperr.EFORBIDDEN, apperr.Code(err))

	admin, err := svc.SetRole(ctx, owner, ann.ID, user.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	_, err = svc.SetRole(ctx, admin, bob.ID, user.RoleOwner)
	assert.ErrorIs(t, err, user.ErrOwnerOnly)
	_, err = svc.SetRole(ctx, admin, owner.ID, user.RoleCustomer)
	assert.ErrorIs(t, err, user.ErrOwnerOnly)

	got, _ := svc.Get(ctx, owner.ID)
	assert.Equal(t, user.RoleOwner, got.Role)

	_, err = svc.SetRole(ctx, owner, bob.ID, user.Role("root"))
	assert.Equal(t, apperr.EINVALID, apperr.Code(err))
}

func TestUpdateProfile(t *testing.T) {
	svc := newService()
	ctx := context.Background()
	ann := register(t, svc, "ann")

	phone, first := " 0812345678 ", "Ann"
	u, err := svc.UpdateProfile(ctx, ann.ID, user.ProfileInput{Phone: &phone, FirstName: &first})
	require.NoError(t, err)
	require.NotNil(t, u.Phone)
	assert.Equal(t, "0812345678", *u.Phone)
	assert.Equal(t, "Ann", u.FirstName)

	age := -1
	_, err = svc.UpdateProfile(ctx, ann.ID, user.ProfileInput{Age: &age})
	assert.Equal(t, apperr.EINVALID, apperr.Code(err))

	_, err = svc.Address(ctx, ann.ID)
	assert.ErrorIs(t, err, user.ErrAddressNotFound)
}

func TestSetRole_DemotionRevokesBackOffice(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	svc := user.NewService(s.Users(), s.Users(), s, activity.NewService(s.Activity()), nil)

	root, _, err := svc.EnsureOwner(ctx, "root", "pw")
	require.NoError(t, err)
	assert.False(t, root.IsStaff)
	second, _, err := svc.EnsureOwner(ctx, "second", "pw")
	require.NoError(t, err)

	demoted, err := svc.SetRole(ctx, second, root.ID, user.RoleCustomer)
	require.NoError(t, err)
	assert.False(t, demoted.IsAdmin())

	staff := register(t, svc, "clerk")
	require.NoError(t, s.Users().SetStaff(ctx, staff.ID, true))
	got, _ := svc.Get(ctx, staff.ID)
	require.True(t, got.IsAdmin())

	_, err = svc.SetRole(ctx, second, staff.ID, user.RoleCustomer)
	require.NoError(t, err)
	got, _ = svc.Get(ctx, staff.ID)
	assert.False(t, got.IsStaff)
	assert.False(t, got.IsAdmin())
}
