//go:generate mockgen -source ./service.go -destination=./mocks/service.go -package=mock_pickups
package pickups

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/binwise/backend/internal/db"
	"github.com/binwise/backend/internal/metrics"
	"github.com/binwise/backend/internal/realtime"
	"github.com/binwise/backend/internal/repository"
	"github.com/binwise/backend/internal/reward"
)

var (
	ErrValidation    = errors.New("missing or invalid fields")
	ErrNotAuthorized = errors.New("not authorized")
	ErrNotFound      = errors.New("pickup not found")
	ErrConflict      = errors.New("conflict")
)

// Actor is the resolved caller identity for authorization checks.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == "admin"
}

// Pickup is the API-facing shape of a pickup record.
type Pickup struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	Items           []reward.Item `json:"items"`
	Address         string        `json:"address"`
	Weight          float64       `json:"weight"`
	Instructions    string        `json:"instructions"`
	PickupTime      time.Time     `json:"pickupTime"`
	TimeSlot        string        `json:"time_slot"`
	Status          string        `json:"status"`
	AwardedPoints   int           `json:"awardedPoints"`
	Gains           float64       `json:"gains"`
	DeliveryAgentID string        `json:"deliveryAgentId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

type CreateInput struct {
	Address      string
	Items        []reward.Item
	Weight       float64
	PickupTime   time.Time
	TimeSlot     string
	Instructions string
}

type UpdateInput struct {
	Address      string
	Instructions *string
	PickupTime   time.Time
	TimeSlot     string
	Items        []reward.Item
	Weight       float64
}

// CompleteResult carries the authoritative reward and the credited balance.
type CompleteResult struct {
	Pickup        *Pickup
	AwardedPoints int
	Gains         float64
	UserPoints    int
	UserGains     float64
}

type PickupRepository interface {
	Create(ctx context.Context, pickup *repository.Pickup) error
	GetByID(ctx context.Context, id string) (*repository.Pickup, error)
	GetByIDTx(ctx context.Context, tx db.Tx, id string) (*repository.Pickup, error)
	Update(ctx context.Context, pickup *repository.Pickup) error
	UpdatePending(ctx context.Context, pickup *repository.Pickup) error
	UpdateTx(ctx context.Context, tx db.Tx, pickup *repository.Pickup) error
	DeletePending(ctx context.Context, id string) error
	GetByUserID(ctx context.Context, userID string) ([]*repository.Pickup, error)
	GetAll(ctx context.Context) ([]*repository.Pickup, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
	CreditRewardsTx(ctx context.Context, tx db.Tx, userID string, points int, gains float64) (*repository.User, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, entry *repository.ActivityEntry) error
	CreateTx(ctx context.Context, tx db.Tx, entry *repository.ActivityEntry) error
}

type AgentRepository interface {
	GetByID(ctx context.Context, id string) (*repository.DeliveryAgent, error)
}

type Cache interface {
	Get(pickupID string) (*repository.Pickup, bool)
	Set(pickup *repository.Pickup)
	Delete(pickupID string)
}

// Service implements the pickup lifecycle: pending -> assigned -> completed,
// with deletion allowed while pending. All authorization and transition
// guards run before any mutation; realtime events fire after persistence.
type Service struct {
	db         db.DB
	pickups    PickupRepository
	users      UserRepository
	activity   ActivityRepository
	agents     AgentRepository
	cache      Cache
	dispatcher realtime.Dispatcher
	log        *zap.Logger
}

func New(database db.DB, pickups PickupRepository, users UserRepository, activity ActivityRepository,
	agents AgentRepository, cache Cache, dispatcher realtime.Dispatcher, log *zap.Logger) *Service {
	return &Service{
		db:         database,
		pickups:    pickups,
		users:      users,
		activity:   activity,
		agents:     agents,
		cache:      cache,
		dispatcher: dispatcher,
		log:        log,
	}
}

func (s *Service) Create(ctx context.Context, actor Actor, input CreateInput) (*Pickup, error) {
	if input.Address == "" || len(input.Items) == 0 || input.Weight <= 0 ||
		input.PickupTime.IsZero() || input.TimeSlot == "" {
		return nil, ErrValidation
	}

	processedItems, totalPoints := reward.Compute(input.Items, input.Weight)
	totalGains := reward.Gains(totalPoints)

	itemsJSON, err := json.Marshal(processedItems)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}

	now := time.Now().UTC()
	record := &repository.Pickup{
		ID:            uuid.NewString(),
		UserID:        actor.ID,
		Items:         itemsJSON,
		Address:       input.Address,
		Weight:        input.Weight,
		Instructions:  input.Instructions,
		PickupTime:    input.PickupTime.UTC(),
		TimeSlot:      input.TimeSlot,
		Status:        repository.StatusPending,
		AwardedPoints: totalPoints,
		Gains:         totalGains,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.pickups.Create(ctx, record); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("create_pickup").Inc()
		return nil, fmt.Errorf("failed to create pickup: %w", err)
	}

	s.appendNote(ctx, actor.ID, fmt.Sprintf("Created pickup request - %d points pending", totalPoints))
	s.cache.Set(record)
	metrics.PickupsCreatedTotal.Inc()

	pickup := toDomain(record)
	s.dispatcher.Publish(realtime.EventNewPickup, map[string]interface{}{
		"pickup": pickup,
		"userId": actor.ID,
	}, "")
	s.dispatcher.Publish(realtime.EventPickupCreated, map[string]interface{}{
		"pickup":  pickup,
		"message": "Pickup request created",
	}, actor.ID)

	return pickup, nil
}

func (s *Service) Update(ctx context.Context, actor Actor, id string, input UpdateInput) (*Pickup, error) {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.IsAdmin() && record.UserID != actor.ID {
		return nil, ErrNotAuthorized
	}
	if record.Status != repository.StatusPending {
		return nil, fmt.Errorf("%w: only pending pickups can be updated", ErrConflict)
	}

	if input.Address != "" {
		record.Address = input.Address
	}
	if input.Instructions != nil {
		record.Instructions = *input.Instructions
	}
	if !input.PickupTime.IsZero() {
		record.PickupTime = input.PickupTime.UTC()
	}
	if input.TimeSlot != "" {
		record.TimeSlot = input.TimeSlot
	}

	if input.Items != nil || input.Weight > 0 {
		items := input.Items
		if items == nil {
			items = parseItems(record.Items)
		}
		weight := input.Weight
		if weight <= 0 {
			weight = record.Weight
		}

		processedItems, totalPoints := reward.Compute(items, weight)
		itemsJSON, err := json.Marshal(processedItems)
		if err != nil {
			return nil, fmt.Errorf("failed to encode items: %w", err)
		}
		record.Items = itemsJSON
		record.Weight = weight
		record.AwardedPoints = totalPoints
		record.Gains = reward.Gains(totalPoints)
	}

	record.UpdatedAt = time.Now().UTC()
	if err := s.pickups.UpdatePending(ctx, record); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			// The stored row moved past pending while we held a cached copy.
			s.cache.Delete(record.ID)
			return nil, fmt.Errorf("%w: only pending pickups can be updated", ErrConflict)
		}
		metrics.OperationErrorsTotal.WithLabelValues("update_pickup").Inc()
		return nil, fmt.Errorf("failed to update pickup: %w", err)
	}
	s.cache.Set(record)

	pickup := toDomain(record)
	s.dispatcher.Publish(realtime.EventPickupUpdated, map[string]interface{}{
		"pickup": pickup,
		"userId": record.UserID,
	}, "")

	return pickup, nil
}

func (s *Service) Assign(ctx context.Context, actor Actor, id, agentID string, pickupTime *time.Time) (*Pickup, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}

	record, err := s.getRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.resolveAgent(ctx, agentID); err != nil {
		return nil, err
	}

	record.DeliveryAgentID = &agentID
	if pickupTime != nil {
		record.PickupTime = pickupTime.UTC()
	} else if record.PickupTime.IsZero() {
		record.PickupTime = time.Now().UTC()
	}
	record.Status = repository.StatusAssigned
	record.UpdatedAt = time.Now().UTC()

	if err := s.pickups.Update(ctx, record); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("assign_pickup").Inc()
		return nil, fmt.Errorf("failed to assign pickup: %w", err)
	}
	s.cache.Set(record)
	metrics.PickupsAssignedTotal.Inc()

	pickup := toDomain(record)
	s.dispatcher.Publish(realtime.EventPickupAssigned, map[string]interface{}{
		"pickup":  pickup,
		"userId":  record.UserID,
		"agentId": agentID,
	}, record.UserID)

	return pickup, nil
}

// Complete runs the terminal transition under a row lock so that two
// concurrent completions cannot both credit the user.
func (s *Service) Complete(ctx context.Context, actor Actor, id string) (*CompleteResult, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	record, err := s.pickups.GetByIDTx(ctx, tx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pickup: %w", err)
	}

	if !actor.IsAdmin() {
		if record.DeliveryAgentID == nil || *record.DeliveryAgentID != actor.ID {
			return nil, ErrNotAuthorized
		}
	}
	if record.Status == repository.StatusCompleted {
		return nil, fmt.Errorf("%w: already completed", ErrConflict)
	}

	// Authoritative recomputation from the stored items; the value cached at
	// creation is superseded here.
	_, totalPoints := reward.Compute(parseItems(record.Items), record.Weight)
	totalGains := reward.Gains(totalPoints)

	record.Status = repository.StatusCompleted
	record.AwardedPoints = totalPoints
	record.Gains = totalGains
	record.UpdatedAt = time.Now().UTC()

	if err := s.pickups.UpdateTx(ctx, tx, record); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("complete_pickup").Inc()
		return nil, fmt.Errorf("failed to update pickup: %w", err)
	}

	user, err := s.users.CreditRewardsTx(ctx, tx, record.UserID, totalPoints, totalGains)
	if err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("complete_pickup").Inc()
		return nil, fmt.Errorf("failed to credit user: %w", err)
	}

	if err := s.activity.CreateTx(ctx, tx, &repository.ActivityEntry{
		UserID:    record.UserID,
		Action:    fmt.Sprintf("Pickup completed - %d points (%.2f EGP)", totalPoints, totalGains),
		Points:    totalPoints,
		Gains:     totalGains,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("complete_pickup").Inc()
		return nil, fmt.Errorf("failed to append activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.OperationErrorsTotal.WithLabelValues("complete_pickup").Inc()
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	s.cache.Delete(record.ID)
	metrics.PickupsCompletedTotal.Inc()
	metrics.PointsAwardedTotal.Add(float64(totalPoints))

	pickup := toDomain(record)
	s.dispatcher.Publish(realtime.EventPickupCompleted, map[string]interface{}{
		"pickup": pickup,
		"userId": record.UserID,
	}, "")
	s.dispatcher.Publish(realtime.EventPointsAwarded, map[string]interface{}{
		"points":      totalPoints,
		"gains":       totalGains,
		"totalPoints": user.Points,
		"totalGains":  user.Gains,
	}, record.UserID)

	return &CompleteResult{
		Pickup:        pickup,
		AwardedPoints: totalPoints,
		Gains:         totalGains,
		UserPoints:    user.Points,
		UserGains:     user.Gains,
	}, nil
}

func (s *Service) Delete(ctx context.Context, actor Actor, id string) error {
	record, err := s.getRecord(ctx, id)
	if err != nil {
		return err
	}

	if !actor.IsAdmin() && record.UserID != actor.ID {
		return ErrNotAuthorized
	}
	if record.Status != repository.StatusPending {
		return fmt.Errorf("%w: only pending pickups can be deleted", ErrConflict)
	}

	if err := s.pickups.DeletePending(ctx, id); err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			s.cache.Delete(id)
			return fmt.Errorf("%w: only pending pickups can be deleted", ErrConflict)
		}
		metrics.OperationErrorsTotal.WithLabelValues("delete_pickup").Inc()
		return fmt.Errorf("failed to delete pickup: %w", err)
	}

	s.appendNote(ctx, record.UserID, "Pickup request cancelled")
	s.cache.Delete(id)
	metrics.PickupsDeletedTotal.Inc()

	s.dispatcher.Publish(realtime.EventPickupDeleted, map[string]interface{}{
		"pickupId": id,
		"userId":   record.UserID,
	}, "")

	return nil
}

func (s *Service) GetMy(ctx context.Context, actor Actor) ([]*Pickup, error) {
	records, err := s.pickups.GetByUserID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user pickups: %w", err)
	}
	return toDomainList(records), nil
}

func (s *Service) GetAll(ctx context.Context, actor Actor) ([]*Pickup, error) {
	if !actor.IsAdmin() {
		return nil, ErrNotAuthorized
	}
	records, err := s.pickups.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get pickups: %w", err)
	}
	return toDomainList(records), nil
}

// resolveAgent accepts either a directory agent or a user account with the
// agent role. Only the latter can authenticate and complete the pickup
// themselves; directory-only agents leave completion to an admin.
func (s *Service) resolveAgent(ctx context.Context, agentID string) error {
	_, err := s.agents.GetByID(ctx, agentID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrObjectNotFound) {
		return fmt.Errorf("failed to look up agent: %w", err)
	}

	user, err := s.users.GetByID(ctx, agentID)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return fmt.Errorf("%w: unknown delivery agent", ErrValidation)
		}
		return fmt.Errorf("failed to look up agent: %w", err)
	}
	if user.Role != "agent" {
		return fmt.Errorf("%w: unknown delivery agent", ErrValidation)
	}
	return nil
}

// getRecord prefers the in-memory cache for active pickups and falls back to
// the repository.
func (s *Service) getRecord(ctx context.Context, id string) (*repository.Pickup, error) {
	if record, found := s.cache.Get(id); found {
		return record, nil
	}
	record, err := s.pickups.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get pickup: %w", err)
	}
	return record, nil
}

// appendNote writes a zero-delta audit entry. Ledger bookkeeping failures are
// logged, not surfaced; the state transition already happened.
func (s *Service) appendNote(ctx context.Context, userID, action string) {
	err := s.activity.Create(ctx, &repository.ActivityEntry{
		UserID:    userID,
		Action:    action,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("failed to append activity entry",
			zap.String("user_id", userID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func toDomain(record *repository.Pickup) *Pickup {
	pickup := &Pickup{
		ID:            record.ID,
		UserID:        record.UserID,
		Items:         parseItems(record.Items),
		Address:       record.Address,
		Weight:        record.Weight,
		Instructions:  record.Instructions,
		PickupTime:    record.PickupTime,
		TimeSlot:      record.TimeSlot,
		Status:        record.Status,
		AwardedPoints: record.AwardedPoints,
		Gains:         record.Gains,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if record.DeliveryAgentID != nil {
		pickup.DeliveryAgentID = *record.DeliveryAgentID
	}
	return pickup
}

func toDomainList(records []*repository.Pickup) []*Pickup {
	pickups := make([]*Pickup, len(records))
	for i, record := range records {
		pickups[i] = toDomain(record)
	}
	return pickups
}

func parseItems(raw json.RawMessage) []reward.Item {
	if len(raw) == 0 {
		return nil
	}
	var items []reward.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}
