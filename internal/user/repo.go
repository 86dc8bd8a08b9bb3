package user

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/db"
)

var (
	ErrNotFound        = apperr.NotFound("user not found")
	ErrAlreadyExist    = apperr.Conflict("username already exists")
	ErrAddressNotFound = apperr.NotFound("no saved address")
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	UpdateProfile(ctx context.Context, u *User) error
	UpdateRole(ctx context.Context, id int64, role Role) error
	SetStaff(ctx context.Context, id int64, staff bool) error
	List(ctx context.Context, limit, offset int) ([]User, error)
	Count(ctx context.Context) (int64, error)
}

// AddressRepository keeps one current address per user.
type AddressRepository interface {
	UpsertAddress(ctx context.Context, a *Address) error
	GetAddress(ctx context.Context, userID int64) (*Address, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

const userColumns = `id, username, password_hash, email, first_name, last_name, phone, age, role, is_staff, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.FirstName, &u.LastName,
		&u.Phone, &u.Age, &u.Role, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PGRepo) Create(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO users (username, password_hash, email, role, is_staff, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
		RETURNING id, created_at, updated_at
	`, u.Username, u.PasswordHash, u.Email, u.Role, u.IsStaff).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyExist
	}
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	u, err := scanUser(db.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *PGRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	u, err := scanUser(db.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username))
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return u, err
}

func (r *PGRepo) UpdateProfile(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, phone = $5, age = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.Age).Scan(&u.UpdatedAt)
	if db.IsNoRows(err) {
		return ErrNotFound
	}
	return err
}

func (r *PGRepo) UpdateRole(ctx context.Context, id int64, role Role) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) SetStaff(ctx context.Context, id int64, staff bool) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx,
		`UPDATE users SET is_staff = $2, updated_at = NOW() WHERE id = $1`, id, staff)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.Conn(ctx, r.db).Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *PGRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *PGRepo) UpsertAddress(ctx context.Context, a *Address) error {
	return db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO addresses (user_id, receiver_name, phone, address_line, city, province, postal_code, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET receiver_name = EXCLUDED.receiver_name,
		    phone         = EXCLUDED.phone,
		    address_line  = EXCLUDED.address_line,
		    city          = EXCLUDED.city,
		    province      = EXCLUDED.province,
		    postal_code   = EXCLUDED.postal_code,
		    updated_at    = NOW()
		RETURNING updated_at
	`, a.UserID, a.ReceiverName, a.Phone, a.AddressLine, a.City, a.Province, a.PostalCode).Scan(&a.UpdatedAt)
}

func (r *PGRepo) GetAddress(ctx context.Context, userID int64) (*Address, error) {
	var a Address
	err := db.Conn(ctx, r.db).QueryRow(ctx, `
		SELECT user_id, receiver_name, phone, address_line, city, province, postal_code, updated_at
		FROM addresses WHERE user_id=$1
	`, userID).Scan(&a.UserID, &a.ReceiverName, &a.Phone, &a.AddressLine, &a.City, &a.Province, &a.PostalCode, &a.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrAddressNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
