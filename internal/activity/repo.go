package activity

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeMC777/storefront/internal/db"
)

type Repository interface {
	Append(ctx context.Context, e *Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

type PGRepo struct{ db *pgxpool.Pool }

func NewPGRepo(pool *pgxpool.Pool) *PGRepo { return &PGRepo{db: pool} }

func (r *PGRepo) Append(ctx context.Context, e *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return db.Conn(ctx, r.db).QueryRow(ctx, `
		INSERT INTO activity_logs (actor_id, action, target_kind, target_id, message, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		RETURNING id, created_at
	`, e.ActorID, e.Action, e.TargetKind, e.TargetID, e.Message).Scan(&e.ID, &e.CreatedAt)
}

func (r *PGRepo) Recent(ctx context.Context, limit int) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := db.Conn(ctx, r.db).Query(ctx, `
		SELECT id, actor_id, action, target_kind, target_id, message, created_at
		FROM activity_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetKind, &e.TargetID, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
