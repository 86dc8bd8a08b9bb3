package cart_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/memstore"
	"github.com/MikeMC777/storefront/internal/user"
)

func setup(t *testing.T) (*cart.Service, *memstore.Store, *catalog.Product, int64) {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	u := &user.User{Username: "ann"}
	require.NoError(t, s.Users().Create(ctx, u))
	p := &catalog.Product{Name: "Keyboard", Price: 100, Stock: 5}
	require.NoError(t, s.Catalog().Create(ctx, p))
	return cart.NewService(s.Carts(), s.Catalog(), s), s, p, u.ID
}

func TestAddItem_SumsQuantities(t *testing.T) {
	svc, _, p, uid := setup(t)
	ctx := context.Background()
	id := cart.ForUser(uid)

	_, err := svc.AddItem(ctx, id, p.ID, 1)
	require.NoError(t, err)
	it, err := svc.AddItem(ctx, id, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, it.Quantity)

	v, err := svc.View(ctx, id)
	require.NoError(t, err)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, int64(300), v.Total)
	assert.Equal(t, 3, v.Count)
}

func TestAddItem_Rejects(t *testing.T) {
	svc, _, p, uid := setup(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, cart.ForUser(uid), p.ID, 0)
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, cart.ForUser(uid), 999, 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = svc.AddItem(ctx, cart.Identity{}, p.ID, 1)
	assert.ErrorIs(t, err, cart.ErrInvalidIdentity)
}

func TestSetQuantity_DecreaseAtOneRemovesLine(t *testing.T) {
	svc, _, p, uid := setup(t)
	ctx := context.Background()
	id := cart.ForUser(uid)
	_, err := svc.AddItem(ctx, id, p.ID, 1)
	require.NoError(t, err)

	it, err := svc.SetQuantity(ctx, id, p.ID, cart.Increase)
	require.NoError(t, err)
	assert.Equal(t, 2, it.Quantity)

	_, err = svc.SetQuantity(ctx, id, p.ID, cart.Decrease)
	require.NoError(t, err)
	it, err = svc.SetQuantity(ctx, id, p.ID, cart.Decrease)
	require.NoError(t, err)
	assert.Nil(t, it)

	v, _ := svc.View(ctx, id)
	assert.Empty(t, v.Lines)

	_, err = svc.SetQuantity(ctx, id, p.ID, cart.Decrease)
	assert.ErrorIs(t, err, cart.ErrLineNotFound)
	_, err = svc.SetQuantity(ctx, id, p.ID, cart.Action("double"))
	assert.ErrorIs(t, err, cart.ErrInvalidAction)
}

func TestRemoveItem_Idempotent(t *testing.T) {
	svc, _, p, uid := setup(t)
	ctx := context.Background()
	id := cart.ForUser(uid)
	require.NoError(t, svc.RemoveItem(ctx, id, p.ID))
	_, err := svc.AddItem(ctx, id, p.ID, 2)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveItem(ctx, id, p.ID))
	require.NoError(t, svc.RemoveItem(ctx, id, p.ID))
	total, err := svc.Total(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestView_UsesLivePrice(t *testing.T) {
	svc, s, p, uid := setup(t)
	ctx := context.Background()
	id := cart.ForUser(uid)
	_, err := svc.AddItem(ctx, id, p.ID, 2)
	require.NoError(t, err)

	p.Price = 150
	require.NoError(t, s.Catalog().Update(ctx, p))
	total, err := svc.Total(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(300), total)
}

func TestMerge_GuestIntoUser(t *testing.T) {
	svc, s, p, uid := setup(t)
	ctx := context.Background()
	other := &catalog.Product{Name: "Mouse", Price: 50, Stock: 5}
	require.NoError(t, s.Catalog().Create(ctx, other))

	guest, owner := cart.ForSession("guest-sid"), cart.ForUser(uid)
	_, err := svc.AddItem(ctx, guest, p.ID, 2)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, guest, other.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, owner, p.ID, 1)
	require.NoError(t, err)

	n, err := svc.Merge(ctx, guest, owner)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	v, _ := svc.View(ctx, owner)
	assert.Equal(t, 4, v.Count)
	assert.Equal(t, int64(350), v.Total)

	g, _ := svc.View(ctx, guest)
	assert.Empty(t, g.Lines)

	n, err = svc.Merge(ctx, cart.ForSession("nobody"), owner)
	require.NoError(t, err)
	assert.Zero(t, n)
}
