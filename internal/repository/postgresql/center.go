package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/binwise/backend/internal/db"
	"github.com/binwise/backend/internal/repository"
)

type CenterRepo struct {
	db db.DB
}

func NewCenterRepo(db db.DB) *CenterRepo {
	return &CenterRepo{db: db}
}

const centerColumns = `id, name, location, contact, address, operating_hours, accepted_materials, capacity, current_load, status, rating, total_reviews, created_at, updated_at`

func (r *CenterRepo) Create(ctx context.Context, center *repository.Center) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO centers (id, name, location, contact, address, operating_hours, accepted_materials, capacity, current_load, status, rating, total_reviews, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
    `, center.ID, center.Name, center.Location, center.Contact, center.Address, center.OperatingHours,
		center.AcceptedMaterials, center.Capacity, center.CurrentLoad, center.Status, center.Rating,
		center.TotalReviews, center.CreatedAt, center.UpdatedAt)
	return err
}

func (r *CenterRepo) GetByID(ctx context.Context, id string) (*repository.Center, error) {
	var center repository.Center
	err := r.db.Get(ctx, &center, `SELECT `+centerColumns+` FROM centers WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &center, nil
}

func (r *CenterRepo) GetAll(ctx context.Context, status string) ([]*repository.Center, error) {
	query := `SELECT ` + centerColumns + ` FROM centers`
	args := []interface{}{}

	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}

	query += ` ORDER BY created_at DESC`

	var centers []*repository.Center
	err := r.db.Select(ctx, &centers, query, args...)
	return centers, err
}

func (r *CenterRepo) Update(ctx context.Context, center *repository.Center) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE centers
        SET name = $1, location = $2, contact = $3, address = $4, operating_hours = $5,
            accepted_materials = $6, capacity = $7, current_load = $8, status = $9,
            rating = $10, total_reviews = $11, updated_at = $12
        WHERE id = $13
    `, center.Name, center.Location, center.Contact, center.Address, center.OperatingHours,
		center.AcceptedMaterials, center.Capacity, center.CurrentLoad, center.Status,
		center.Rating, center.TotalReviews, center.UpdatedAt, center.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *CenterRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM centers WHERE id = $1`, id)
	return err
}
