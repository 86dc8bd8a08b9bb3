package order

import (
	"context"
	"fmt"

	"github.com/MikeMC777/storefront/internal/activity"
	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/db"
	"github.com/MikeMC777/storefront/internal/money"
	"github.com/MikeMC777/storefront/internal/notify"
)

var ErrInvalidStatus = apperr.InvalidFields("invalid status", map[string]string{
	"status": "status must be one of pending, paid, shipping, shipped, delivered, cancelled",
})

// Counter is implemented by the user and catalog services.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Service struct {
	repo     Repository
	tx       db.TxManager
	audit    activity.Recorder
	feed     notify.Publisher
	users    Counter
	products Counter
}

func NewService(repo Repository, tx db.TxManager, audit activity.Recorder, feed notify.Publisher, users, products Counter) *Service {
	if feed == nil {
		feed = notify.Discard{}
	}
	return &Service{repo: repo, tx: tx, audit: audit, feed: feed, users: users, products: products}
}

func normalize(f Filter) Filter {
	if f.Limit <= 0 || f.Limit > maxLimit {
		f.Limit = defaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// ListForUser returns the user's orders, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]Order, error) {
	if userID <= 0 {
		return []Order{}, nil
	}
	return s.List(ctx, Filter{UserID: userID, Limit: limit, Offset: offset})
}

// GetForUser hides other users' orders behind ErrNotFound.
func (s *Service) GetForUser(ctx context.Context, id, userID int64) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	out, err := s.repo.List(ctx, normalize(f))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

// All pages through every order, newest first.
func (s *Service) All(ctx context.Context) ([]Order, error) {
	var all []Order
	f := Filter{Limit: maxLimit}
	for {
		page, err := s.repo.List(ctx, f)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < f.Limit {
			return all, nil
		}
		f.Offset += f.Limit
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdateStatus sets any known status. Payments follow the order: paid settles
// pending payments, cancelled voids them.
func (s *Service) UpdateStatus(ctx context.Context, actorID, id int64, status Status) (*Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.transition(ctx, actorID, id, status, activity.ActionOrderStatus)
}

// Cancel force-sets the order to cancelled.
func (s *Service) Cancel(ctx context.Context, actorID, id int64) (*Order, error) {
	return s.transition(ctx, actorID, id, StatusCancelled, activity.ActionOrderCancelled)
}

func (s *Service) transition(ctx context.Context, actorID, id int64, status Status, action string) (*Order, error) {
	var (
		o     *Order
		entry *activity.Entry
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if o, err = s.repo.GetByID(ctx, id); err != nil {
			return err
		}
		prev := o.Status
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
		switch status {
		case StatusPaid:
			_, err = s.repo.SetPaymentStatus(ctx, id, PaymentPending, PaymentSuccess)
		case StatusCancelled:
			_, err = s.repo.SetPaymentStatus(ctx, id, PaymentPending, PaymentCancelled)
		}
		if err != nil {
			return fmt.Errorf("update payments: %w", err)
		}
		entry, err = s.audit.Record(ctx, actorID, action, activity.KindOrder, id,
			"order #%d: %s -> %s", id, prev, status)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.feed.Publish(notify.EventActivity, entry)
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	var err error
	if st.Users, err = s.users.Count(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if st.Products, err = s.products.Count(ctx); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if st.Orders, err = s.repo.Count(ctx); err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	if st.PaidSales, err = s.repo.PaidSales(ctx); err != nil {
		return nil, fmt.Errorf("sum sales: %w", err)
	}
	st.Display = money.String(st.PaidSales)
	return &st, nil
}
