// Package cart implements the cart store: one cart per identity and its lines.
package cart

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/db"
)

var (
	ErrCartNotFound    = apperr.NotFound("cart not found")
	ErrLineNotFound    = apperr.NotFound("product is not in the cart")
	ErrInvalidQuantity = apperr.InvalidFields("invalid quantity", map[string]string{"quantity": "quantity must be a positive integer"})
	ErrInvalidIdentity = apperr.Unauthorized("please log in first")
	ErrInvalidAction   = apperr.InvalidFields("invalid action", map[string]string{"action": "action must be increase or decrease"})
)

type Repository interface {
	// GetOrCreate returns the identity's cart, creating it if needed. Safe to
	// call concurrently: at most one row exists per identity.
	GetOrCreate(ctx context.Context, id Identity) (*Cart, error)
	Find(ctx context.Context, id Identity) (*Cart, error)
	GetItem(ctx context.Context, cartID, productID int64) (*Item, error)
	// AddQuantity inserts the line or adds qty to the existing one.
	AddQuantity(ctx context.Context, cartID, productID int64, qty int) (*Item, error)
	SetQuantity(ctx context.Context, cartID, productID int64, qty int) error
	DeleteItem(ctx context.Context, cartID, productID int64) (bool, error)
	// Lines joins items with products. lock takes row locks on the products
	// for the rest of the surrounding transaction.
	Lines(ctx context.Context, cartID int64, lock bool) ([]Line, error)
	Clear(ctx context.Context, cartID int64) (int64, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

func (r *PGRepo) Find(ctx context.Context, id Identity) (*Cart, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var c Cart
	var err error
	if id.UserID > 0 {
		err = db.Conn(ctx, r.db).QueryRow(ctx,
			`SELECT id, user_id, session_key, created_at FROM carts WHERE user_id=$1`, id.UserID).
			Scan(&c.ID, &c.UserID, &c.SessionKey, &c.CreatedAt)
	} else {
		err = db.Conn(ctx, r.db).QueryRow(ctx,
			`SELECT id, user_id, session_key, created_at FROM carts WHERE session_key=$1`, id.SessionKey).
			Scan(&c.ID, &c.UserID, &c.SessionKey, &c.CreatedAt)
	}
	if db.IsNoRows(err) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PGRepo) GetOrCreate(ctx context.Context, id Identity) (*Cart, error) {
	var userID *int64
	var sessionKey *string
	if id.UserID > 0 {
		userID = &id.UserID
	} else {
		sessionKey = &id.SessionKey
	}

	// The partial unique indexes make a concurrent insert a no-op; the
	// re-read below then sees the winner's row.
	if _, err := db.Conn(ctx, r.db).Exec(ctx, `
		INSERT INTO carts (user_id, session_key, created_at) VALUES ($1,$2,NOW())
		ON CONFLICT DO NOTHING
	`, userID, sessionKey); err != nil {
		return nil, err
	}
	return r.Find(ctx, id)
}

func (r *PGRepo) GetItem(ctx context.Context, cartID, productID int64) (*Item, error) {
	var it Item
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT id, cart_id, product_id, quantity FROM cart_items WHERE cart_id=$1 AND product_id=$2
	`, cartID, productID).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity)
	if db.IsNoRows(err) {
		return nil, ErrLineNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PGRepo) AddQuantity(ctx context.Context, cartID, productID int64, qty int) (*Item, error) {
	var it Item
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity) VALUES ($1,$2,$3)
		ON CONFLICT (cart_id, product_id) DO UPDATE
		SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, cart_id, product_id, quantity
	`, cartID, productID, qty).Scan(&it.ID, &it.CartID, &it.ProductID, &it.Quantity)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *PGRepo) SetQuantity(ctx context.Context, cartID, productID int64, qty int) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE cart_items SET quantity=$3 WHERE cart_id=$1 AND product_id=$2`, cartID, productID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrLineNotFound
	}
	return nil
}

func (r *PGRepo) DeleteItem(ctx context.Context, cartID, productID int64) (bool, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PGRepo) Lines(ctx context.Context, cartID int64, lock bool) ([]Line, error) {
	sql := `
		SELECT p.id, p.name, p.price, p.stock, p.image_url, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id = $1
		ORDER BY ci.id`
	if lock {
		sql += ` FOR UPDATE OF p`
	}
	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Name, &l.Price, &l.Stock, &l.ImageURL, &l.Quantity); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *PGRepo) Clear(ctx context.Context, cartID int64) (int64, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
