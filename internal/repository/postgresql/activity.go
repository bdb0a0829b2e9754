package postgresql

import (
	"context"

	"github.com/binwise/backend/internal/db"
	"github.com/binwise/backend/internal/repository"
)

// ActivityRepo is the append-only per-user activity ledger. Entries are never
// updated or removed.
type ActivityRepo struct {
	db db.DB
}

func NewActivityRepo(db db.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Create(ctx context.Context, entry *repository.ActivityEntry) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO activity_entries (user_id, action, points, gains, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, entry.UserID, entry.Action, entry.Points, entry.Gains, entry.CreatedAt)
	return err
}

func (r *ActivityRepo) CreateTx(ctx context.Context, tx db.Tx, entry *repository.ActivityEntry) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO activity_entries (user_id, action, points, gains, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, entry.UserID, entry.Action, entry.Points, entry.Gains, entry.CreatedAt)
	return err
}

func (r *ActivityRepo) GetByUserID(ctx context.Context, userID string, limit int) ([]*repository.ActivityEntry, error) {
	query := `
        SELECT id, user_id, action, points, gains, created_at
        FROM activity_entries
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC
    `
	args := []interface{}{userID}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	var entries []*repository.ActivityEntry
	err := r.db.Select(ctx, &entries, query, args...)
	return entries, err
}
