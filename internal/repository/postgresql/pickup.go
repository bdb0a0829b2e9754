package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/binwise/backend/internal/db"
	"github.com/binwise/backend/internal/repository"
)

type PickupRepo struct {
	db db.DB
}

func NewPickupRepo(db db.DB) *PickupRepo {
	return &PickupRepo{db: db}
}

const pickupColumns = `id, user_id, items, address, weight, instructions, pickup_time, time_slot, status, awarded_points, gains, delivery_agent_id, created_at, updated_at`

func (r *PickupRepo) Create(ctx context.Context, pickup *repository.Pickup) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO pickups (
            id, user_id, items, address, weight, instructions, pickup_time, time_slot, status, awarded_points, gains, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, pickup.ID, pickup.UserID, pickup.Items, pickup.Address, pickup.Weight, pickup.Instructions,
		pickup.PickupTime, pickup.TimeSlot, pickup.Status, pickup.AwardedPoints, pickup.Gains,
		pickup.CreatedAt, pickup.UpdatedAt)
	return err
}

func (r *PickupRepo) GetByID(ctx context.Context, id string) (*repository.Pickup, error) {
	var pickup repository.Pickup
	err := r.db.Get(ctx, &pickup, `SELECT `+pickupColumns+` FROM pickups WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &pickup, nil
}

// GetByIDTx locks the pickup row for the duration of the transaction. Status
// transition guards rely on this lock.
func (r *PickupRepo) GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Pickup, error) {
	var pickup repository.Pickup
	err := tx.Get(ctx, &pickup, `SELECT `+pickupColumns+` FROM pickups WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &pickup, nil
}

func (r *PickupRepo) Update(ctx context.Context, pickup *repository.Pickup) error {
	_, err := r.db.Exec(ctx, `
        UPDATE pickups
        SET
            items = $1,
            address = $2,
            weight = $3,
            instructions = $4,
            pickup_time = $5,
            time_slot = $6,
            status = $7,
            awarded_points = $8,
            gains = $9,
            delivery_agent_id = $10,
            updated_at = $11
        WHERE id = $12
    `, pickup.Items, pickup.Address, pickup.Weight, pickup.Instructions, pickup.PickupTime,
		pickup.TimeSlot, pickup.Status, pickup.AwardedPoints, pickup.Gains, pickup.DeliveryAgentID,
		pickup.UpdatedAt, pickup.ID)
	return err
}

// UpdatePending applies the changes only while the stored row is still
// pending. Returns ErrObjectNotFound when the row is gone or has moved on,
// so a record read from cache cannot overwrite a later transition.
func (r *PickupRepo) UpdatePending(ctx context.Context, pickup *repository.Pickup) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE pickups
        SET
            items = $1,
            address = $2,
            weight = $3,
            instructions = $4,
            pickup_time = $5,
            time_slot = $6,
            awarded_points = $7,
            gains = $8,
            updated_at = $9
        WHERE id = $10 AND status = $11
    `, pickup.Items, pickup.Address, pickup.Weight, pickup.Instructions, pickup.PickupTime,
		pickup.TimeSlot, pickup.AwardedPoints, pickup.Gains,
		pickup.UpdatedAt, pickup.ID, repository.StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *PickupRepo) UpdateTx(ctx context.Context, tx db.Tx, pickup *repository.Pickup) error {
	_, err := tx.Exec(ctx, `
        UPDATE pickups
        SET
            items = $1,
            address = $2,
            weight = $3,
            instructions = $4,
            pickup_time = $5,
            time_slot = $6,
            status = $7,
            awarded_points = $8,
            gains = $9,
            delivery_agent_id = $10,
            updated_at = $11
        WHERE id = $12
    `, pickup.Items, pickup.Address, pickup.Weight, pickup.Instructions, pickup.PickupTime,
		pickup.TimeSlot, pickup.Status, pickup.AwardedPoints, pickup.Gains, pickup.DeliveryAgentID,
		pickup.UpdatedAt, pickup.ID)
	return err
}

// DeletePending removes the row only while it is still pending, with the
// same 0-rows contract as UpdatePending.
func (r *PickupRepo) DeletePending(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM pickups WHERE id = $1 AND status = $2`, id, repository.StatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *PickupRepo) GetByUserID(ctx context.Context, userID string) ([]*repository.Pickup, error) {
	var pickups []*repository.Pickup
	err := r.db.Select(ctx, &pickups, `
        SELECT `+pickupColumns+` FROM pickups WHERE user_id = $1 ORDER BY created_at DESC
    `, userID)
	return pickups, err
}

func (r *PickupRepo) GetAll(ctx context.Context) ([]*repository.Pickup, error) {
	var pickups []*repository.Pickup
	err := r.db.Select(ctx, &pickups, `
        SELECT `+pickupColumns+` FROM pickups ORDER BY created_at DESC
    `)
	return pickups, err
}

func (r *PickupRepo) GetAllActive(ctx context.Context) ([]*repository.Pickup, error) {
	var pickups []*repository.Pickup
	err := r.db.Select(ctx, &pickups, `
        SELECT `+pickupColumns+` FROM pickups
        WHERE status IN ($1, $2)
        ORDER BY created_at ASC
    `, repository.StatusPending, repository.StatusAssigned)
	return pickups, err
}
