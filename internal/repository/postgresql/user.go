package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/binwise/backend/internal/db"
	"github.com/binwise/backend/internal/repository"
)

type UserRepo struct {
	db db.DB
}

func NewUserRepo(db db.DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, name, email, password, role, points, gains, days_recycled, daily_progress, last_progress_date, level, badges, created_at, updated_at`

func (r *UserRepo) Create(ctx context.Context, user *repository.User) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO users (id, name, email, password, role, level, badges, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Name, user.Email, user.Password, user.Role, user.Level, user.Badges,
		user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	var user repository.User
	err := r.db.Get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	var user repository.User
	err := r.db.Get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) GetAll(ctx context.Context) ([]*repository.User, error) {
	var users []*repository.User
	err := r.db.Select(ctx, &users, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	return users, err
}

// CreditRewardsTx adds points and gains to the user balance and bumps the
// completed-pickup counter. The increments run server-side so concurrent
// completions for the same user never lose updates.
func (r *UserRepo) CreditRewardsTx(ctx context.Context, tx db.Tx, userID string, points int, gains float64) (*repository.User, error) {
	var user repository.User
	err := tx.Get(ctx, &user, `
        UPDATE users
        SET
            points = points + $2,
            gains = gains + $3,
            days_recycled = days_recycled + 1,
            updated_at = now()
        WHERE id = $1
        RETURNING `+userColumns+`
    `, userID, points, gains)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &user, nil
}

// AddPoints applies an administrative or goal-reward adjustment to the
// balance, as an atomic increment like CreditRewardsTx.
func (r *UserRepo) AddPoints(ctx context.Context, userID string, points int) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE users SET points = points + $2, updated_at = now() WHERE id = $1
    `, userID, points)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

// GetByIDTx locks the user row, used by the daily-progress flow which has to
// read and conditionally reset the counter.
func (r *UserRepo) GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.User, error) {
	var user repository.User
	err := tx.Get(ctx, &user, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepo) UpdateProgressTx(ctx context.Context, tx db.Tx, user *repository.User) error {
	_, err := tx.Exec(ctx, `
        UPDATE users
        SET
            points = $2,
            daily_progress = $3,
            last_progress_date = $4,
            updated_at = now()
        WHERE id = $1
    `, user.ID, user.Points, user.DailyProgress, user.LastProgressDate)
	return err
}
