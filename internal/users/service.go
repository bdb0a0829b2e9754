//go:generate mockgen -source ./service.go -destination=./mocks/service.go -package=mock_users
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/binwise/backend/internal/db"
	"github.com/binwise/backend/internal/repository"
)

const (
	dailyGoal        = 5
	dailyGoalReward  = 25
	defaultActivityN = 50
	maxActivityLimit = 200
)

var ErrNotFound = errors.New("user not found")

// Profile is the API-facing user shape, password omitted.
type Profile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Points       int       `json:"points"`
	Gains        float64   `json:"gains"`
	DaysRecycled int       `json:"daysRecycled"`
	Level        []string  `json:"level"`
	Badges       []string  `json:"badges"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProgressResult reports one daily-goal tick.
type ProgressResult struct {
	Redeemed      bool `json:"redeemed"`
	DailyProgress int  `json:"dailyProgress"`
	UpdatedPoints int  `json:"updatedPoints"`
}

type Activity struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Points    int       `json:"points"`
	Gains     float64   `json:"gains"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
	GetAll(ctx context.Context) ([]*repository.User, error)
	GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.User, error)
	UpdateProgressTx(ctx context.Context, tx db.Tx, user *repository.User) error
}

type ActivityRepository interface {
	GetByUserID(ctx context.Context, userID string, limit int) ([]*repository.ActivityEntry, error)
}

type Service struct {
	db       db.DB
	users    UserRepository
	activity ActivityRepository
	log      *zap.Logger
}

func New(database db.DB, users UserRepository, activity ActivityRepository, log *zap.Logger) *Service {
	return &Service{db: database, users: users, activity: activity, log: log}
}

func (s *Service) Get(ctx context.Context, id string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toProfile(user), nil
}

func (s *Service) List(ctx context.Context) ([]*Profile, error) {
	records, err := s.users.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	profiles := make([]*Profile, len(records))
	for i, record := range records {
		profiles[i] = toProfile(record)
	}
	return profiles, nil
}

// Activity returns the user's ledger entries, newest first.
func (s *Service) Activity(ctx context.Context, userID string, limit int) ([]*Activity, error) {
	if limit <= 0 {
		limit = defaultActivityN
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	entries, err := s.activity.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	out := make([]*Activity, len(entries))
	for i, entry := range entries {
		out[i] = &Activity{
			ID:        entry.ID,
			Action:    entry.Action,
			Points:    entry.Points,
			Gains:     entry.Gains,
			CreatedAt: entry.CreatedAt,
		}
	}
	return out, nil
}

// RecordProgress advances the caller's daily counter under a row lock.
// The counter resets on the first tick of a new day; reaching the goal
// redeems the bonus and resets the counter again.
func (s *Service) RecordProgress(ctx context.Context, userID string) (*ProgressResult, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	user, err := s.users.GetByIDTx(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	now := time.Now().UTC()
	if user.LastProgressDate == nil || !sameDay(*user.LastProgressDate, now) {
		user.DailyProgress = 0
	}

	user.DailyProgress++
	user.LastProgressDate = &now

	redeemed := false
	if user.DailyProgress >= dailyGoal {
		user.Points += dailyGoalReward
		user.DailyProgress = 0
		redeemed = true
	}

	if err := s.users.UpdateProgressTx(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("failed to update progress: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit progress: %w", err)
	}

	return &ProgressResult{
		Redeemed:      redeemed,
		DailyProgress: user.DailyProgress,
		UpdatedPoints: user.Points,
	}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func toProfile(user *repository.User) *Profile {
	return &Profile{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		Points:       user.Points,
		Gains:        user.Gains,
		DaysRecycled: user.DaysRecycled,
		Level:        user.Level,
		Badges:       user.Badges,
		CreatedAt:    user.CreatedAt,
	}
}
