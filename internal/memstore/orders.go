package memstore

import (
	"context"
	"sort"

	"github.com/MikeMC777/storefront/internal/order"
)

type Orders struct{ s *Store }

var _ order.Repository = (*Orders)(nil)

func (r *Orders) Create(ctx context.Context, o *order.Order) error {
	defer r.s.wlock(ctx)()
	st := r.s.st
	if o.UserID != nil {
		if _, ok := st.users[*o.UserID]; !ok {
			return errForeignKey("orders.user_id")
		}
	}
	o.ID = st.next("orders")
	o.CreatedAt = r.s.now()
	o.UpdatedAt = o.CreatedAt

	for i := range o.Items {
		it := &o.Items[i]
		if it.Quantity < 1 {
			return errCheck("order_items.quantity")
		}
		it.ID = st.next("order_items")
		it.OrderID = o.ID
		st.orderItems[it.ID] = *it
	}
	row := *o
	row.Items, row.Payments = nil, nil
	st.orders[o.ID] = row
	return nil
}

func (r *Orders) AddPayment(ctx context.Context, p *order.Payment) error {
	defer r.s.wlock(ctx)()
	st := r.s.st
	if _, ok := st.orders[p.OrderID]; !ok {
		return errForeignKey("payments.order_id")
	}
	p.ID = st.next("payments")
	p.CreatedAt = r.s.now()
	st.payments[p.ID] = *p
	return nil
}

func (r *Orders) load(o order.Order, withPayments bool) order.Order {
	st := r.s.st
	o.Items = []order.Item{}
	for _, id := range sortedKeys(st.orderItems) {
		if it := st.orderItems[id]; it.OrderID == o.ID {
			o.Items = append(o.Items, it)
		}
	}
	if withPayments {
		for _, id := range sortedKeys(st.payments) {
			if p := st.payments[id]; p.OrderID == o.ID {
				o.Payments = append(o.Payments, p)
			}
		}
	}
	return o
}

func (r *Orders) GetByID(ctx context.Context, id int64) (*order.Order, error) {
	defer r.s.rlock(ctx)()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o = r.load(o, true)
	return &o, nil
}

func (r *Orders) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	defer r.s.rlock(ctx)()
	out := make([]order.Order, 0)
	for _, o := range r.s.st.orders {
		if f.UserID > 0 && (o.UserID == nil || *o.UserID != f.UserID) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	out = page(out, f.Limit, f.Offset)
	for i := range out {
		out[i] = r.load(out[i], false)
	}
	return out, nil
}

func (r *Orders) UpdateStatus(ctx context.Context, id int64, status order.Status) error {
	defer r.s.wlock(ctx)()
	o, ok := r.s.st.orders[id]
	if !ok {
		return order.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = r.s.now()
	r.s.st.orders[id] = o
	return nil
}

func (r *Orders) SetPaymentStatus(ctx context.Context, orderID int64, from, to order.PaymentStatus) (int64, error) {
	defer r.s.wlock(ctx)()
	var n int64
	for id, p := range r.s.st.payments {
		if p.OrderID == orderID && p.Status == from {
			p.Status = to
			r.s.st.payments[id] = p
			n++
		}
	}
	return n, nil
}

func (r *Orders) Count(ctx context.Context) (int64, error) {
	defer r.s.rlock(ctx)()
	return int64(len(r.s.st.orders)), nil
}

func (r *Orders) PaidSales(ctx context.Context) (int64, error) {
	defer r.s.rlock(ctx)()
	var sum int64
	for _, p := range r.s.st.payments {
		if p.Status == order.PaymentSuccess {
			sum += p.Amount
		}
	}
	return sum, nil
}
