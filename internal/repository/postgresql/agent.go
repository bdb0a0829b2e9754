package postgresql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"

	"github.com/binwise/backend/internal/db"
	"github.com/binwise/backend/internal/repository"
)

type AgentRepo struct {
	db db.DB
}

func NewAgentRepo(db db.DB) *AgentRepo {
	return &AgentRepo{db: db}
}

func (r *AgentRepo) Create(ctx context.Context, agent *repository.DeliveryAgent) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO delivery_agents (id, name, email, phone, available, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, agent.ID, agent.Name, agent.Email, agent.Phone, agent.Available, agent.CreatedAt, agent.UpdatedAt)
	return err
}

func (r *AgentRepo) GetByID(ctx context.Context, id string) (*repository.DeliveryAgent, error) {
	var agent repository.DeliveryAgent
	err := r.db.Get(ctx, &agent, `
        SELECT id, name, email, phone, available, created_at, updated_at
        FROM delivery_agents WHERE id = $1
    `, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &agent, nil
}

func (r *AgentRepo) GetByEmail(ctx context.Context, email string) (*repository.DeliveryAgent, error) {
	var agent repository.DeliveryAgent
	err := r.db.Get(ctx, &agent, `
        SELECT id, name, email, phone, available, created_at, updated_at
        FROM delivery_agents WHERE email = $1
    `, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrObjectNotFound
		}
		return nil, err
	}
	return &agent, nil
}

func (r *AgentRepo) GetAll(ctx context.Context) ([]*repository.DeliveryAgent, error) {
	var agents []*repository.DeliveryAgent
	err := r.db.Select(ctx, &agents, `
        SELECT id, name, email, phone, available, created_at, updated_at
        FROM delivery_agents ORDER BY created_at DESC
    `)
	return agents, err
}

func (r *AgentRepo) Update(ctx context.Context, agent *repository.DeliveryAgent) error {
	tag, err := r.db.Exec(ctx, `
        UPDATE delivery_agents
        SET name = $1, email = $2, phone = $3, available = $4, updated_at = $5
        WHERE id = $6
    `, agent.Name, agent.Email, agent.Phone, agent.Available, agent.UpdatedAt, agent.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrObjectNotFound
	}
	return nil
}

func (r *AgentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM delivery_agents WHERE id = $1`, id)
	return err
}
