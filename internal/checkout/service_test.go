package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/catalog"
	"github.com/MikeMC777/storefront/internal/memstore"
	"github.com/MikeMC777/storefront/internal/notify"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/session"
	"github.com/MikeMC777/storefront/internal/user"
)

type recorder struct{ events []string }

func (r *recorder) Publish(eventType string, _ any) { r.events = append(r.events, eventType) }

var _ notify.Publisher = (*recorder)(nil)

// failingClear breaks the last step of the commit.
type failingClear struct{ cart.Repository }

func (failingClear) Clear(context.Context, int64) (int64, error) {
	return 0, errors.New("disk on fire")
}

type fixture struct {
	store    *memstore.Store
	sessions *session.MemoryStore
	feed     *recorder
	userID   int64
	a, b     *catalog.Product
	cartID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{store: memstore.New(), sessions: session.NewMemoryStore(), feed: &recorder{}}

	u := &user.User{Username: "somchai", PasswordHash: "x", Role: user.RoleCustomer}
	require.NoError(t, f.store.Users().Create(ctx, u))
	f.userID = u.ID

	f.a = &catalog.Product{Name: "A", Price: 100, Stock: 5}
	f.b = &catalog.Product{Name: "B", Price: 50, Stock: 1}
	require.NoError(t, f.store.Catalog().Create(ctx, f.a))
	require.NoError(t, f.store.Catalog().Create(ctx, f.b))

	c, err := f.store.Carts().GetOrCreate(ctx, cart.ForUser(u.ID))
	require.NoError(t, err)
	f.cartID = c.ID
	return f
}

func (f *fixture) fill(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.store.Carts().AddQuantity(ctx, f.cartID, f.a.ID, 2)
	require.NoError(t, err)
	_, err = f.store.Carts().AddQuantity(ctx, f.cartID, f.b.ID, 1)
	require.NoError(t, err)
}

func (f *fixture) service(carts cart.Repository, confirmStep bool) *Service {
	return NewService(carts, f.store.Catalog(), f.store.Orders(), f.store.Users(), f.sessions, f.store, f.feed,
		Options{ConfirmStep: confirmStep, PendingTTL: time.Minute})
}

func validForm() Form {
	return Form{
		ReceiverName:  "Somchai Jaidee",
		Phone:         "0812345678",
		AddressLine:   "99/1 Sukhumvit Rd",
		City:          "Bangkok",
		PaymentMethod: order.MethodTransfer,
	}
}

func stock(t *testing.T, f *fixture, id int64) int {
	t.Helper()
	p, err := f.store.Catalog().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestConfirm_PlacesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fill(t)
	svc := f.service(f.store.Carts(), true)

	res, err := svc.Submit(ctx, "sid-1", f.userID, validForm())
	require.NoError(t, err)
	require.NotNil(t, res.Pending)
	assert.Equal(t, int64(250), res.Pending.Total)
	assert.Nil(t, res.Order)

	o, err := svc.Confirm(ctx, "sid-1", f.userID)
	require.NoError(t, err)

	assert.Equal(t, int64(250), o.TotalPrice)
	assert.Equal(t, order.StatusPending, o.Status)
	require.Len(t, o.Items, 2)
	assert.Equal(t, int64(100), o.Items[0].UnitPrice)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.Equal(t, int64(50), o.Items[1].UnitPrice)

	assert.Equal(t, 3, stock(t, f, f.a.ID))
	assert.Equal(t, 0, stock(t, f, f.b.ID))

	stored, err := f.store.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, stored.Payments, 1)
	assert.Equal(t, int64(250), stored.Payments[0].Amount)
	assert.Equal(t, order.PaymentPending, stored.Payments[0].Status)
	assert.Equal(t, order.MethodTransfer, stored.Payments[0].Method)

	lines, err := f.store.Carts().Lines(ctx, f.cartID, false)
	require.NoError(t, err)
	assert.Empty(t, lines)

	addr, err := f.store.Users().GetAddress(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "Somchai Jaidee", addr.ReceiverName)

	_, err = svc.PendingFor(ctx, "sid-1")
	assert.ErrorIs(t, err, ErrNoPending)
	assert.Equal(t, []string{notify.EventOrderCreated}, f.feed.events)
}

func TestConfirm_EmptyCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.service(f.store.Carts(), false)

	_, err := svc.Submit(ctx, "sid-1", f.userID, validForm())
	require.Error(t, err)
	assert.Equal(t, apperr.EPRECONDITION, apperr.Code(err))

	n, err := f.store.Orders().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConfirm_SecondConfirmIsPrecondition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fill(t)
	svc := f.service(f.store.Carts(), true)

	_, err := svc.Submit(ctx, "sid-1", f.userID, validForm())
	require.NoError(t, err)
	// keep a copy of the pending record to replay it
	var p Pending
	_, err = f.sessions.Get(ctx, "sid-1", pendingKey, &p)
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, "sid-1", f.userID)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Put(ctx, "sid-1", pendingKey, p, time.Minute))
	_, err = svc.Confirm(ctx, "sid-1", f.userID)
	assert.ErrorIs(t, err, ErrEmptyCart)

	n, err := f.store.Orders().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConfirm_WithoutPending(t *testing.T) {
	f := newFixture(t)
	f.fill(t)
	svc := f.service(f.store.Carts(), true)

	_, err := svc.Confirm(context.Background(), "sid-1", f.userID)
	assert.ErrorIs(t, err, ErrNoPending)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "/checkout", e.Redirect)
}

func TestConfirm_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fill(t)
	svc := f.service(failingClear{f.store.Carts()}, true)

	_, err := svc.Submit(ctx, "sid-1", f.userID, validForm())
	require.NoError(t, err)

	_, err = svc.Confirm(ctx, "sid-1", f.userID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFailed)
	assert.Equal(t, apperr.EINTERNAL, apperr.Code(err))

	n, err := f.store.Orders().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	list, err := f.store.Orders().List(ctx, order.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	sales, err := f.store.Orders().PaidSales(ctx)
	require.NoError(t, err)
	assert.Zero(t, sales)

	assert.Equal(t, 5, stock(t, f, f.a.ID))
	assert.Equal(t, 1, stock(t, f, f.b.ID))

	lines, err := f.store.Carts().Lines(ctx, f.cartID, false)
	require.NoError(t, err)
	assert.Len(t, lines, 2)

	_, err = f.store.Users().GetAddress(ctx, f.userID)
	assert.ErrorIs(t, err, user.ErrAddressNotFound)

	// the user can retry
	_, err = svc.PendingFor(ctx, "sid-1")
	assert.NoError(t, err)
	assert.Empty(t, f.feed.events)
}

func TestSubmit_InvalidForm(t *testing.T) {
	f := newFixture(t)
	f.fill(t)
	svc := f.service(f.store.Carts(), true)

	form := validForm()
	form.ReceiverName = " "
	form.PaymentMethod = "bitcoin"
	_, err := svc.Submit(context.Background(), "sid-1", f.userID, form)
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.EINVALID, e.Code)
	assert.Contains(t, e.Fields, "receiver_name")
	assert.Contains(t, e.Fields, "payment_method")
}

func TestSubmit_SingleStepCommits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fill(t)
	svc := f.service(f.store.Carts(), false)

	res, err := svc.Submit(ctx, "", f.userID, validForm())
	require.NoError(t, err)
	require.NotNil(t, res.Order)
	assert.Equal(t, int64(250), res.Order.TotalPrice)
	assert.Equal(t, "99/1 Sukhumvit Rd, Bangkok", res.Order.AddressLine)
}

func TestDraft_PrefillsSavedAddress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fill(t)
	require.NoError(t, f.store.Users().UpsertAddress(ctx, &user.Address{
		UserID: f.userID, ReceiverName: "Mali", Phone: "099", AddressLine: "1 Silom",
	}))
	svc := f.service(f.store.Carts(), true)

	d, err := svc.Draft(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), d.Total)
	assert.Equal(t, "2.50", d.TotalDisplay)
	assert.Equal(t, "Mali", d.Form.ReceiverName)
}

func TestAbandon(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fill(t)
	svc := f.service(f.store.Carts(), true)

	_, err := svc.Submit(ctx, "sid-1", f.userID, validForm())
	require.NoError(t, err)
	require.NoError(t, svc.Abandon(ctx, "sid-1"))
	_, err = svc.Confirm(ctx, "sid-1", f.userID)
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestConfirm_SnapshotsPriceAtCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.fill(t)
	svc := f.service(f.store.Carts(), true)

	res, err := svc.Submit(ctx, "sid-1", f.userID, validForm())
	require.NoError(t, err)
	assert.Equal(t, int64(250), res.Pending.Total)

	// repriced between the two steps
	f.a.Price = 120
	require.NoError(t, f.store.Catalog().Update(ctx, f.a))

	o, err := svc.Confirm(ctx, "sid-1", f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(290), o.TotalPrice)
	require.Len(t, o.Items, 2)
	assert.Equal(t, f.a.ID, *o.Items[0].ProductID)
	assert.Equal(t, int64(120), o.Items[0].UnitPrice)
	assert.Equal(t, int64(290), o.Payments[0].Amount)

	a, err := f.store.Catalog().GetByID(ctx, f.a.ID)
	require.NoError(t, err)
	a.Price = 999
	require.NoError(t, f.store.Catalog().Update(ctx, a))

	stored, err := f.store.Orders().GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(290), stored.TotalPrice)
	assert.Equal(t, int64(120), stored.Items[0].UnitPrice)
	assert.Equal(t, int64(50), stored.Items[1].UnitPrice)
	assert.Equal(t, int64(290), stored.Payments[0].Amount)
}
