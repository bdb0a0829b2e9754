package pickups

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	mock_database "github.com/binwise/backend/internal/db/mocks"
	mock_pickups "github.com/binwise/backend/internal/pickups/mocks"
	"github.com/binwise/backend/internal/repository"
	"github.com/binwise/backend/internal/reward"
)

type publishedEvent struct {
	Event   string
	Payload interface{}
	UserID  string
}

// recordingDispatcher captures published events for assertions.
type recordingDispatcher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (d *recordingDispatcher) Publish(event string, payload interface{}, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, publishedEvent{Event: event, Payload: payload, UserID: userID})
}

func (d *recordingDispatcher) names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	names := make([]string, len(d.events))
	for i, e := range d.events {
		names[i] = e.Event
	}
	return names
}

type serviceFixture struct {
	db         *mock_database.MockDB
	tx         *mock_database.MockTx
	pickups    *mock_pickups.MockPickupRepository
	users      *mock_pickups.MockUserRepository
	activity   *mock_pickups.MockActivityRepository
	agents     *mock_pickups.MockAgentRepository
	cache      *mock_pickups.MockCache
	dispatcher *recordingDispatcher
	service    *Service
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &serviceFixture{
		db:         mock_database.NewMockDB(ctrl),
		tx:         mock_database.NewMockTx(ctrl),
		pickups:    mock_pickups.NewMockPickupRepository(ctrl),
		users:      mock_pickups.NewMockUserRepository(ctrl),
		activity:   mock_pickups.NewMockActivityRepository(ctrl),
		agents:     mock_pickups.NewMockAgentRepository(ctrl),
		cache:      mock_pickups.NewMockCache(ctrl),
		dispatcher: &recordingDispatcher{},
	}
	f.service = New(f.db, f.pickups, f.users, f.activity, f.agents, f.cache, f.dispatcher, zap.NewNop())
	return f
}

func mustItemsJSON(t *testing.T, items []reward.Item) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(items)
	require.NoError(t, err)
	return raw
}

func assignedPickup(t *testing.T, agentID string) *repository.Pickup {
	t.Helper()
	return &repository.Pickup{
		ID:     "pickup-1",
		UserID: "user-1",
		Items: mustItemsJSON(t, []reward.Item{
			{Type: "Plastic", Quantity: 1},
			{Type: "Metal", Quantity: 1},
		}),
		Address:         "12 Nile St",
		Weight:          10,
		PickupTime:      time.Now().UTC(),
		TimeSlot:        "morning",
		Status:          repository.StatusAssigned,
		DeliveryAgentID: &agentID,
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	actor := Actor{ID: "user-1", Role: "user"}
	validInput := CreateInput{
		Address:    "12 Nile St",
		Items:      []reward.Item{{Type: "Plastic", Quantity: 2, Weight: 3}},
		Weight:     3,
		PickupTime: time.Now().Add(24 * time.Hour),
		TimeSlot:   "morning",
	}

	t.Run("rejects missing fields", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name   string
			mutate func(in *CreateInput)
		}{
			{name: "empty address", mutate: func(in *CreateInput) { in.Address = "" }},
			{name: "no items", mutate: func(in *CreateInput) { in.Items = nil }},
			{name: "zero weight", mutate: func(in *CreateInput) { in.Weight = 0 }},
			{name: "no pickup time", mutate: func(in *CreateInput) { in.PickupTime = time.Time{} }},
			{name: "no time slot", mutate: func(in *CreateInput) { in.TimeSlot = "" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				f := newServiceFixture(t)
				input := validInput
				tt.mutate(&input)

				pickup, err := f.service.Create(ctx, actor, input)

				assert.ErrorIs(t, err, ErrValidation)
				assert.Nil(t, pickup)
			})
		}
	})

	t.Run("creates pending pickup with computed reward", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		var stored *repository.Pickup
		f.pickups.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p *repository.Pickup) error {
				stored = p
				return nil
			})
		f.activity.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		f.cache.EXPECT().Set(gomock.Any())

		pickup, err := f.service.Create(ctx, actor, validInput)

		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, repository.StatusPending, pickup.Status)
		assert.Equal(t, "user-1", pickup.UserID)
		// 3kg of plastic at 167 points/kg
		assert.Equal(t, 501, pickup.AwardedPoints)
		assert.InDelta(t, 75.15, pickup.Gains, 0.001)
		assert.Equal(t, []string{"new-pickup", "pickup-created"}, f.dispatcher.names())
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.pickups.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

		_, err := f.service.Create(ctx, actor, validInput)

		assert.ErrorContains(t, err, "failed to create pickup")
		assert.Empty(t, f.dispatcher.names())
	})
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner edits pending pickup and reward is recomputed", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		record := &repository.Pickup{
			ID:            "pickup-1",
			UserID:        "user-1",
			Items:         mustItemsJSON(t, []reward.Item{{Type: "Paper", Quantity: 1, Weight: 2}}),
			Address:       "12 Nile St",
			Weight:        2,
			TimeSlot:      "morning",
			Status:        repository.StatusPending,
			AwardedPoints: 106,
		}
		f.cache.EXPECT().Get("pickup-1").Return(record, true)
		f.pickups.EXPECT().UpdatePending(gomock.Any(), gomock.Any()).Return(nil)
		f.cache.EXPECT().Set(gomock.Any())

		pickup, err := f.service.Update(ctx, Actor{ID: "user-1", Role: "user"}, "pickup-1", UpdateInput{
			Items:  []reward.Item{{Type: "Glass", Quantity: 1, Weight: 4}},
			Weight: 4,
		})

		require.NoError(t, err)
		// 4kg of glass at 23 points/kg
		assert.Equal(t, 92, pickup.AwardedPoints)
		assert.Equal(t, []string{"pickup-updated"}, f.dispatcher.names())
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Status: repository.StatusPending,
		}, true)

		_, err := f.service.Update(ctx, Actor{ID: "user-2", Role: "user"}, "pickup-1", UpdateInput{Address: "new"})

		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("assigned pickup cannot be edited", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Status: repository.StatusAssigned,
		}, true)

		_, err := f.service.Update(ctx, Actor{ID: "user-1", Role: "user"}, "pickup-1", UpdateInput{Address: "new"})

		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown pickup", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("missing").Return(nil, false)
		f.pickups.EXPECT().GetByID(gomock.Any(), "missing").Return(nil, repository.ErrObjectNotFound)

		_, err := f.service.Update(ctx, Actor{ID: "user-1", Role: "admin"}, "missing", UpdateInput{})

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stale cached copy cannot revert a completed pickup", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		record := &repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Items:  mustItemsJSON(t, []reward.Item{{Type: "Paper", Quantity: 1, Weight: 2}}),
			Status: repository.StatusPending,
		}
		// The cache still says pending, but the row has moved on underneath.
		f.cache.EXPECT().Get("pickup-1").Return(record, true)
		f.pickups.EXPECT().UpdatePending(gomock.Any(), gomock.Any()).Return(repository.ErrObjectNotFound)
		f.cache.EXPECT().Delete("pickup-1")

		_, err := f.service.Update(ctx, Actor{ID: "user-1", Role: "user"}, "pickup-1", UpdateInput{Address: "new"})

		assert.ErrorIs(t, err, ErrConflict)
		assert.Empty(t, f.dispatcher.names())
	})
}

func TestAssign(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("non-admin is rejected", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)

		_, err := f.service.Assign(ctx, Actor{ID: "user-1", Role: "user"}, "pickup-1", "agent-1", nil)

		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("unknown agent is a validation error", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Status: repository.StatusPending,
		}, true)
		f.agents.EXPECT().GetByID(gomock.Any(), "ghost").Return(nil, repository.ErrObjectNotFound)
		f.users.EXPECT().GetByID(gomock.Any(), "ghost").Return(nil, repository.ErrObjectNotFound)

		_, err := f.service.Assign(ctx, Actor{ID: "admin-1", Role: "admin"}, "pickup-1", "ghost", nil)

		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("admin assigns agent", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:         "pickup-1",
			UserID:     "user-1",
			Status:     repository.StatusPending,
			PickupTime: time.Now().UTC(),
		}, true)
		f.agents.EXPECT().GetByID(gomock.Any(), "agent-1").Return(&repository.DeliveryAgent{ID: "agent-1"}, nil)
		f.pickups.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		f.cache.EXPECT().Set(gomock.Any())

		pickup, err := f.service.Assign(ctx, Actor{ID: "admin-1", Role: "admin"}, "pickup-1", "agent-1", nil)

		require.NoError(t, err)
		assert.Equal(t, repository.StatusAssigned, pickup.Status)
		assert.Equal(t, "agent-1", pickup.DeliveryAgentID)
		assert.Equal(t, []string{"pickup-assigned"}, f.dispatcher.names())
	})

	t.Run("agent-role account can be assigned", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:         "pickup-1",
			UserID:     "user-1",
			Status:     repository.StatusPending,
			PickupTime: time.Now().UTC(),
		}, true)
		f.agents.EXPECT().GetByID(gomock.Any(), "agent-7").Return(nil, repository.ErrObjectNotFound)
		f.users.EXPECT().GetByID(gomock.Any(), "agent-7").
			Return(&repository.User{ID: "agent-7", Role: "agent"}, nil)
		f.pickups.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		f.cache.EXPECT().Set(gomock.Any())

		pickup, err := f.service.Assign(ctx, Actor{ID: "admin-1", Role: "admin"}, "pickup-1", "agent-7", nil)

		require.NoError(t, err)
		assert.Equal(t, repository.StatusAssigned, pickup.Status)
		assert.Equal(t, "agent-7", pickup.DeliveryAgentID)
	})

	t.Run("regular account is not an agent", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Status: repository.StatusPending,
		}, true)
		f.agents.EXPECT().GetByID(gomock.Any(), "user-2").Return(nil, repository.ErrObjectNotFound)
		f.users.EXPECT().GetByID(gomock.Any(), "user-2").
			Return(&repository.User{ID: "user-2", Role: "user"}, nil)

		_, err := f.service.Assign(ctx, Actor{ID: "admin-1", Role: "admin"}, "pickup-1", "user-2", nil)

		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestComplete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("assigned agent completes and user is credited once", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		record := assignedPickup(t, "agent-1")
		// weightless plastic+metal over 10kg splits 5kg each: 5*167 + 5*287
		wantPoints := 2270
		wantGains := 340.50

		f.db.EXPECT().BeginTx(gomock.Any()).Return(f.tx, nil)
		f.pickups.EXPECT().GetByIDTx(gomock.Any(), f.tx, "pickup-1").Return(record, nil)
		f.pickups.EXPECT().UpdateTx(gomock.Any(), f.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ interface{}, p *repository.Pickup) error {
				assert.Equal(t, repository.StatusCompleted, p.Status)
				assert.Equal(t, wantPoints, p.AwardedPoints)
				return nil
			})
		f.users.EXPECT().CreditRewardsTx(gomock.Any(), f.tx, "user-1", wantPoints, wantGains).
			Return(&repository.User{ID: "user-1", Points: 2470, Gains: 370.50, DaysRecycled: 3}, nil)
		f.activity.EXPECT().CreateTx(gomock.Any(), f.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ interface{}, entry *repository.ActivityEntry) error {
				assert.Equal(t, "Pickup completed - 2270 points (340.50 EGP)", entry.Action)
				assert.Equal(t, wantPoints, entry.Points)
				return nil
			})
		f.tx.EXPECT().Commit(gomock.Any()).Return(nil)
		f.tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()
		f.cache.EXPECT().Delete("pickup-1")

		result, err := f.service.Complete(ctx, Actor{ID: "agent-1", Role: "agent"}, "pickup-1")

		require.NoError(t, err)
		assert.Equal(t, wantPoints, result.AwardedPoints)
		assert.InDelta(t, wantGains, result.Gains, 0.001)
		assert.Equal(t, 2470, result.UserPoints)
		assert.Equal(t, []string{"pickup-completed", "points-awarded"}, f.dispatcher.names())
	})

	t.Run("second completion is rejected without crediting", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		record := assignedPickup(t, "agent-1")
		record.Status = repository.StatusCompleted

		f.db.EXPECT().BeginTx(gomock.Any()).Return(f.tx, nil)
		f.pickups.EXPECT().GetByIDTx(gomock.Any(), f.tx, "pickup-1").Return(record, nil)
		f.tx.EXPECT().Rollback(gomock.Any()).Return(nil)

		_, err := f.service.Complete(ctx, Actor{ID: "admin-1", Role: "admin"}, "pickup-1")

		assert.ErrorIs(t, err, ErrConflict)
		assert.Empty(t, f.dispatcher.names())
	})

	t.Run("unassigned agent is rejected", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		record := assignedPickup(t, "agent-1")

		f.db.EXPECT().BeginTx(gomock.Any()).Return(f.tx, nil)
		f.pickups.EXPECT().GetByIDTx(gomock.Any(), f.tx, "pickup-1").Return(record, nil)
		f.tx.EXPECT().Rollback(gomock.Any()).Return(nil)

		_, err := f.service.Complete(ctx, Actor{ID: "agent-2", Role: "agent"}, "pickup-1")

		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("credit failure rolls back", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		record := assignedPickup(t, "agent-1")

		f.db.EXPECT().BeginTx(gomock.Any()).Return(f.tx, nil)
		f.pickups.EXPECT().GetByIDTx(gomock.Any(), f.tx, "pickup-1").Return(record, nil)
		f.pickups.EXPECT().UpdateTx(gomock.Any(), f.tx, gomock.Any()).Return(nil)
		f.users.EXPECT().CreditRewardsTx(gomock.Any(), f.tx, "user-1", gomock.Any(), gomock.Any()).
			Return(nil, errors.New("deadlock detected"))
		f.tx.EXPECT().Rollback(gomock.Any()).Return(nil)

		_, err := f.service.Complete(ctx, Actor{ID: "admin-1", Role: "admin"}, "pickup-1")

		assert.ErrorContains(t, err, "failed to credit user")
		assert.Empty(t, f.dispatcher.names())
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("owner cancels pending pickup", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Status: repository.StatusPending,
		}, true)
		f.pickups.EXPECT().DeletePending(gomock.Any(), "pickup-1").Return(nil)
		f.activity.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, entry *repository.ActivityEntry) error {
				assert.Equal(t, "Pickup request cancelled", entry.Action)
				assert.Zero(t, entry.Points)
				return nil
			})
		f.cache.EXPECT().Delete("pickup-1")

		err := f.service.Delete(ctx, Actor{ID: "user-1", Role: "user"}, "pickup-1")

		require.NoError(t, err)
		assert.Equal(t, []string{"pickup-deleted"}, f.dispatcher.names())
	})

	t.Run("assigned pickup cannot be deleted", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Status: repository.StatusAssigned,
		}, true)

		err := f.service.Delete(ctx, Actor{ID: "user-1", Role: "user"}, "pickup-1")

		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("stranger is rejected", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Status: repository.StatusPending,
		}, true)

		err := f.service.Delete(ctx, Actor{ID: "user-2", Role: "user"}, "pickup-1")

		assert.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("stale cached copy cannot delete a completed pickup", func(t *testing.T) {
		t.Parallel()
		f := newServiceFixture(t)
		// The cache still says pending, but the row has moved on underneath.
		f.cache.EXPECT().Get("pickup-1").Return(&repository.Pickup{
			ID:     "pickup-1",
			UserID: "user-1",
			Status: repository.StatusPending,
		}, true)
		f.pickups.EXPECT().DeletePending(gomock.Any(), "pickup-1").Return(repository.ErrObjectNotFound)
		f.cache.EXPECT().Delete("pickup-1")

		err := f.service.Delete(ctx, Actor{ID: "user-1", Role: "user"}, "pickup-1")

		assert.ErrorIs(t, err, ErrConflict)
		assert.Empty(t, f.dispatcher.names())
	})
}
