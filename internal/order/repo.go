// Package order is the order ledger: orders, their item snapshots and payments.
package order

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/db"
)

var ErrNotFound = apperr.NotFound("order not found").WithRedirect("/orders")

type Repository interface {
	// Create inserts o and o.Items, filling in ids and timestamps.
	Create(ctx context.Context, o *Order) error
	AddPayment(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	// List returns orders newest first, each with its items.
	List(ctx context.Context, f Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	// SetPaymentStatus moves the order's payments in state from to state to.
	SetPaymentStatus(ctx context.Context, orderID int64, from, to PaymentStatus) (int64, error)
	Count(ctx context.Context) (int64, error)
	// PaidSales sums successful payment amounts.
	PaidSales(ctx context.Context) (int64, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

const orderColumns = `id, user_id, total_price, status, receiver_name, phone, address_line, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.Status, &o.ReceiverName, &o.Phone,
		&o.AddressLine, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGRepo) Create(ctx context.Context, o *Order) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn := db.Conn(ctx, r.db)
	if err := conn.QueryRow(ctx, `
		INSERT INTO orders (user_id, total_price, status, receiver_name, phone, address_line, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
		RETURNING id, created_at, updated_at
	`, o.UserID, o.TotalPrice, o.Status, o.ReceiverName, o.Phone, o.AddressLine).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return err
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		if err := conn.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price)
			VALUES ($1,$2,$3,$4,$5)
			RETURNING id
		`, o.ID, it.ProductID, it.ProductName, it.Quantity, it.UnitPrice).Scan(&it.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGRepo) AddPayment(ctx context.Context, p *Payment) error {
	return db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO payments (order_id, amount, method, status, created_at)
		VALUES ($1,$2,$3,$4,NOW())
		RETURNING id, created_at
	`, p.OrderID, p.Amount, p.Method, p.Status).Scan(&p.ID, &p.CreatedAt)
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	conn := db.Conn(ctx, r.db)
	o, err := scanOrder(conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	items, err := r.items(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	if o.Items == nil {
		o.Items = []Item{}
	}

	rows, err := conn.Query(ctx, `
		SELECT id, order_id, amount, method, status, created_at
		FROM payments WHERE order_id=$1 ORDER BY id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		o.Payments = append(o.Payments, p)
	}
	return o, rows.Err()
}

func (r *PGRepo) items(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]Item, len(orderIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func (r *PGRepo) List(ctx context.Context, f Filter) ([]Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1 = 0 OR user_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, f.UserID, string(f.Status), f.Limit, f.Offset)
	if err != nil {
		return nil, err
	}
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]int64, len(out))
	for i := range out {
		ids[i] = out[i].ID
	}
	items, err := r.items(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Items = items[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []Item{}
		}
	}
	return out, nil
}

func (r *PGRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	ct, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SetPaymentStatus(ctx context.Context, orderID int64, from, to PaymentStatus) (int64, error) {
	ct, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE payments SET status=$3 WHERE order_id=$1 AND status=$2`, orderID, from, to)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *PGRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}

func (r *PGRepo) PaidSales(ctx context.Context) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status=$1`, PaymentSuccess).Scan(&n)
	return n, err
}
