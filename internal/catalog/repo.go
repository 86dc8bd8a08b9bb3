// Package catalog provides products and categories: the repository interfaces,
// their PostgreSQL implementation and the catalog service.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/db"
)

var (
	ErrProductNotFound  = apperr.NotFound("product not found")
	ErrCategoryNotFound = apperr.NotFound("category not found")
)

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, q Query) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) (bool, error)
	SetCategories(ctx context.Context, productID int64, categoryIDs []int64) error
	// DecrementStock lowers stock by qty, never below zero.
	DecrementStock(ctx context.Context, id int64, qty int) error
	Count(ctx context.Context) (int64, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id int64) (bool, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

const productColumns = `p.id, p.name, p.description, p.price, p.stock, p.image_url,
	COALESCE((SELECT array_agg(pc.category_id ORDER BY pc.category_id) FROM product_categories pc WHERE pc.product_id = p.id), '{}'),
	p.created_at, p.updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.ImageURL,
		&p.CategoryIDs, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGRepo) Create(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock, image_url, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
		RETURNING id, created_at, updated_at
	`, p.Name, p.Description, p.Price, p.Stock, p.ImageURL).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (*Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p, err := scanProduct(db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products p WHERE p.id=$1`, id))
	if db.IsNoRows(err) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func orderClause(s Sort) string {
	switch s {
	case SortPriceLow:
		return "p.price ASC, p.id ASC"
	case SortPriceHigh:
		return "p.price DESC, p.id DESC"
	case SortOldest:
		return "p.id ASC"
	default:
		return "p.id DESC"
	}
}

func (r *PGRepo) List(ctx context.Context, q Query) ([]Product, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	search := strings.TrimSpace(q.Q)

	// orderClause only ever returns one of the constants above.
	sql := fmt.Sprintf(`
		SELECT %s
		FROM products p
		WHERE ($1 = '' OR p.name ILIKE '%%'||$1||'%%' OR p.description ILIKE '%%'||$1||'%%')
		  AND ($2 = 0 OR EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = p.id AND pc.category_id = $2))
		ORDER BY %s
		LIMIT $3 OFFSET $4
	`, productColumns, orderClause(q.Sort))

	rows, err := db.Conn(ctx, r.db).Query(ctx, sql, search, q.CategoryID, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PGRepo) Update(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE products
		SET name = $2, description = $3, price = $4, stock = $5, image_url = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.Name, p.Description, p.Price, p.Stock, p.ImageURL).Scan(&p.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrProductNotFound
	}
	return err
}

func (r *PGRepo) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *PGRepo) SetCategories(ctx context.Context, productID int64, categoryIDs []int64) error {
	conn := db.Conn(ctx, r.db)
	if _, err := conn.Exec(ctx, `DELETE FROM product_categories WHERE product_id=$1`, productID); err != nil {
		return err
	}
	if len(categoryIDs) == 0 {
		return nil
	}
	_, err := conn.Exec(ctx, `
		INSERT INTO product_categories (product_id, category_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING
	`, productID, categoryIDs)
	return err
}

func (r *PGRepo) DecrementStock(ctx context.Context, id int64, qty int) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `
		UPDATE products SET stock = GREATEST(stock - $2, 0), updated_at = NOW()
		WHERE id = $1
	`, id, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *PGRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}

func (r *PGRepo) CreateCategory(ctx context.Context, c *Category) error {
	return db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO categories (name, description) VALUES ($1,$2) RETURNING id
	`, c.Name, c.Description).Scan(&c.ID)
}

func (r *PGRepo) GetCategory(ctx context.Context, id int64) (*Category, error) {
	var c Category
	err := db.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, name, description FROM categories WHERE id=$1`, id).Scan(&c.ID, &c.Name, &c.Description)
	if db.IsNoRows(err) {
		return nil, ErrCategoryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *PGRepo) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, `SELECT id, name, description FROM categories ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PGRepo) UpdateCategory(ctx context.Context, c *Category) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE categories SET name=$2, description=$3 WHERE id=$1`, c.ID, c.Name, c.Description)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *PGRepo) DeleteCategory(ctx context.Context, id int64) (bool, error) {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
