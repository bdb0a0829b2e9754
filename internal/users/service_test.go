package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	mock_database "github.com/binwise/backend/internal/db/mocks"
	"github.com/binwise/backend/internal/repository"
	mock_users "github.com/binwise/backend/internal/users/mocks"
)

type usersFixture struct {
	db       *mock_database.MockDB
	tx       *mock_database.MockTx
	users    *mock_users.MockUserRepository
	activity *mock_users.MockActivityRepository
	service  *Service
}

func newUsersFixture(t *testing.T) *usersFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &usersFixture{
		db:       mock_database.NewMockDB(ctrl),
		tx:       mock_database.NewMockTx(ctrl),
		users:    mock_users.NewMockUserRepository(ctrl),
		activity: mock_users.NewMockActivityRepository(ctrl),
	}
	f.service = New(f.db, f.users, f.activity, zap.NewNop())
	return f
}

func (f *usersFixture) expectProgressTx() {
	f.db.EXPECT().BeginTx(gomock.Any()).Return(f.tx, nil)
	f.tx.EXPECT().Commit(gomock.Any()).Return(nil)
	f.tx.EXPECT().Rollback(gomock.Any()).Return(nil).AnyTimes()
}

func TestRecordProgress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("counter resets on a new day", func(t *testing.T) {
		t.Parallel()
		f := newUsersFixture(t)
		yesterday := time.Now().UTC().Add(-26 * time.Hour)
		f.expectProgressTx()
		f.users.EXPECT().GetByIDTx(gomock.Any(), f.tx, "user-1").Return(&repository.User{
			ID:               "user-1",
			Points:           100,
			DailyProgress:    4,
			LastProgressDate: &yesterday,
		}, nil)
		f.users.EXPECT().UpdateProgressTx(gomock.Any(), f.tx, gomock.Any()).Return(nil)

		result, err := f.service.RecordProgress(ctx, "user-1")

		require.NoError(t, err)
		assert.False(t, result.Redeemed)
		assert.Equal(t, 1, result.DailyProgress)
		assert.Equal(t, 100, result.UpdatedPoints)
	})

	t.Run("reaching the goal redeems the bonus", func(t *testing.T) {
		t.Parallel()
		f := newUsersFixture(t)
		now := time.Now().UTC()
		f.expectProgressTx()
		f.users.EXPECT().GetByIDTx(gomock.Any(), f.tx, "user-1").Return(&repository.User{
			ID:               "user-1",
			Points:           100,
			DailyProgress:    4,
			LastProgressDate: &now,
		}, nil)
		f.users.EXPECT().UpdateProgressTx(gomock.Any(), f.tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ interface{}, user *repository.User) error {
				assert.Equal(t, 125, user.Points)
				assert.Zero(t, user.DailyProgress)
				return nil
			})

		result, err := f.service.RecordProgress(ctx, "user-1")

		require.NoError(t, err)
		assert.True(t, result.Redeemed)
		assert.Zero(t, result.DailyProgress)
		assert.Equal(t, 125, result.UpdatedPoints)
	})

	t.Run("first ever tick", func(t *testing.T) {
		t.Parallel()
		f := newUsersFixture(t)
		f.expectProgressTx()
		f.users.EXPECT().GetByIDTx(gomock.Any(), f.tx, "user-1").Return(&repository.User{
			ID: "user-1",
		}, nil)
		f.users.EXPECT().UpdateProgressTx(gomock.Any(), f.tx, gomock.Any()).Return(nil)

		result, err := f.service.RecordProgress(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, 1, result.DailyProgress)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		f := newUsersFixture(t)
		f.db.EXPECT().BeginTx(gomock.Any()).Return(f.tx, nil)
		f.tx.EXPECT().Rollback(gomock.Any()).Return(nil)
		f.users.EXPECT().GetByIDTx(gomock.Any(), f.tx, "ghost").Return(nil, repository.ErrObjectNotFound)

		_, err := f.service.RecordProgress(ctx, "ghost")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestActivityLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name      string
		requested int
		want      int
	}{
		{name: "default", requested: 0, want: 50},
		{name: "explicit", requested: 10, want: 10},
		{name: "clamped", requested: 5000, want: 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newUsersFixture(t)
			f.activity.EXPECT().GetByUserID(gomock.Any(), "user-1", tt.want).Return(nil, nil)

			_, err := f.service.Activity(ctx, "user-1", tt.requested)

			require.NoError(t, err)
		})
	}
}
