// Package checkout turns a cart into an order. The commit reads the cart,
// writes the order snapshot, moves stock, records the payment intent, saves
// the shipping address and empties the cart in a single transaction.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/db"
	"github.com/MikeMC777/storefront/internal/money"
	"github.com/MikeMC777/storefront/internal/notify"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/session"
	"github.com/MikeMC777/storefront/internal/user"
)

const pendingKey = "checkout"

var (
	ErrEmptyCart = apperr.Precondition("your cart is empty").WithRedirect("/cart")
	ErrNoPending = apperr.Precondition("please fill in the checkout form first").WithRedirect("/checkout")
	ErrFailed    = apperr.Internal("checkout failed, please try again", nil).WithRedirect("/checkout")
)

var tracer = otel.Tracer("github.com/MikeMC777/storefront/internal/checkout")

// StockDecrementer lowers product stock, flooring at zero.
type StockDecrementer interface {
	DecrementStock(ctx context.Context, id int64, qty int) error
}

type Options struct {
	// ConfirmStep keeps the form in the session until Confirm. When false,
	// Submit commits straight away.
	ConfirmStep bool
	PendingTTL  time.Duration
}

type Service struct {
	carts     cart.Repository
	stock     StockDecrementer
	orders    order.Repository
	addresses user.AddressRepository
	sessions  session.Store
	tx        db.TxManager
	feed      notify.Publisher
	opts      Options
	now       func() time.Time
}

func NewService(carts cart.Repository, stock StockDecrementer, orders order.Repository, addresses user.AddressRepository,
	sessions session.Store, tx db.TxManager, feed notify.Publisher, opts Options) *Service {
	if feed == nil {
		feed = notify.Discard{}
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 30 * time.Minute
	}
	return &Service{
		carts:     carts,
		stock:     stock,
		orders:    orders,
		addresses: addresses,
		sessions:  sessions,
		tx:        tx,
		feed:      feed,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) lines(ctx context.Context, userID int64) ([]cart.Line, error) {
	c, err := s.carts.Find(ctx, cart.ForUser(userID))
	if errors.Is(err, cart.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	lines, err := s.carts.Lines(ctx, c.ID, false)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	return lines, nil
}

// Draft returns the cart and a form prefilled from the saved address.
func (s *Service) Draft(ctx context.Context, userID int64) (*Draft, error) {
	lines, err := s.lines(ctx, userID)
	if err != nil {
		return nil, err
	}
	addr, err := s.addresses.GetAddress(ctx, userID)
	if err != nil && !errors.Is(err, user.ErrAddressNotFound) {
		return nil, err
	}
	total := cart.Total(lines)
	return &Draft{
		Lines:        lines,
		Total:        total,
		TotalDisplay: money.String(total),
		Form:         FormFromAddress(addr),
	}, nil
}

// Submit validates the form. With the confirmation step enabled it parks the
// form in the session and returns the summary; otherwise it places the order.
func (s *Service) Submit(ctx context.Context, sid string, userID int64, form Form) (*Result, error) {
	form = form.normalized()
	if err := form.Validate(); err != nil {
		return nil, err
	}
	lines, err := s.lines(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !s.opts.ConfirmStep {
		o, err := s.commit(ctx, userID, form)
		if err != nil {
			return nil, err
		}
		return &Result{Order: o}, nil
	}

	if sid == "" {
		return nil, session.ErrNoSession
	}
	p := &Pending{Form: form, Total: cart.Total(lines), CreatedAt: s.now()}
	if err := s.sessions.Put(ctx, sid, pendingKey, p, s.opts.PendingTTL); err != nil {
		return nil, fmt.Errorf("store pending checkout: %w", err)
	}
	return &Result{Pending: p, Lines: lines, TotalDisplay: money.String(p.Total)}, nil
}

// PendingFor returns the parked form, or ErrNoPending.
func (s *Service) PendingFor(ctx context.Context, sid string) (*Pending, error) {
	if sid == "" {
		return nil, ErrNoPending
	}
	var p Pending
	found, err := s.sessions.Get(ctx, sid, pendingKey, &p)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNoPending
	}
	return &p, nil
}

// Confirm places the order from the parked form. The pending record survives
// a failed commit so the user can retry.
func (s *Service) Confirm(ctx context.Context, sid string, userID int64) (*order.Order, error) {
	p, err := s.PendingFor(ctx, sid)
	if err != nil {
		return nil, err
	}
	o, err := s.commit(ctx, userID, p.Form)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Delete(ctx, sid, pendingKey); err != nil {
		log.Printf("[checkout] order %d placed but pending record not cleared: %v", o.ID, err)
	}
	return o, nil
}

// Abandon drops the parked form.
func (s *Service) Abandon(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}
	return s.sessions.Delete(ctx, sid, pendingKey)
}

func (s *Service) commit(ctx context.Context, userID int64, form Form) (_ *order.Order, err error) {
	ctx, span := tracer.Start(ctx, "checkout.commit")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "checkout failed")
		}
		span.End()
	}()

	var o *order.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.carts.Find(ctx, cart.ForUser(userID))
		if errors.Is(err, cart.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return fmt.Errorf("find cart: %w", err)
		}
		lines, err := s.carts.Lines(ctx, c.ID, true)
		if err != nil {
			return fmt.Errorf("lock cart lines: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		uid := userID
		o = &order.Order{
			UserID:       &uid,
			TotalPrice:   cart.Total(lines),
			Status:       order.StatusPending,
			ReceiverName: form.ReceiverName,
			Phone:        form.Phone,
			AddressLine:  form.shippingLine(),
			Items:        make([]order.Item, 0, len(lines)),
		}
		for _, l := range lines {
			pid := l.ProductID
			o.Items = append(o.Items, order.Item{
				ProductID:   &pid,
				ProductName: l.Name,
				Quantity:    l.Quantity,
				UnitPrice:   l.Price,
			})
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, l := range lines {
			if err := s.stock.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return fmt.Errorf("decrement stock of product %d: %w", l.ProductID, err)
			}
		}

		pay := order.Payment{OrderID: o.ID, Amount: o.TotalPrice, Method: form.PaymentMethod, Status: order.PaymentPending}
		if err := s.orders.AddPayment(ctx, &pay); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		o.Payments = []order.Payment{pay}

		if err := s.addresses.UpsertAddress(ctx, form.address(userID)); err != nil {
			return fmt.Errorf("save address: %w", err)
		}
		if _, err := s.carts.Clear(ctx, c.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if errors.Is(err, ErrEmptyCart) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		log.Printf("[checkout] user %d: rolled back: %v", userID, err)
		return nil, ErrFailed.Wrap(err)
	}

	span.SetAttributes(
		attribute.Int64("order.id", o.ID),
		attribute.Int64("order.total", o.TotalPrice),
		attribute.Int("order.items", len(o.Items)),
	)
	log.Printf("[checkout] user %d placed order %d total=%s", userID, o.ID, money.String(o.TotalPrice))
	s.feed.Publish(notify.EventOrderCreated, o)
	return o, nil
}
