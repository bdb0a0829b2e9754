package postgresql_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	mock_database "github.com/binwise/backend/internal/db/mocks"
	"github.com/binwise/backend/internal/repository"
	"github.com/binwise/backend/internal/repository/postgresql"
)

func TestActivityRepo_Create(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	repo := postgresql.NewActivityRepo(mockDB)

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	entry := &repository.ActivityEntry{
		UserID:    "user-456",
		Action:    "Pickup request created",
		Points:    0,
		Gains:     0,
		CreatedAt: now,
	}

	mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(),
		gomock.Eq(entry.UserID),
		gomock.Eq(entry.Action),
		gomock.Eq(entry.Points),
		gomock.Eq(entry.Gains),
		gomock.Eq(entry.CreatedAt),
	).DoAndReturn(func(_ context.Context, query string, _ ...interface{}) (pgconn.CommandTag, error) {
		assert.Contains(t, query, "INSERT INTO activity_entries")
		return pgconnTag("INSERT 0 1"), nil
	})

	err := repo.Create(ctx, entry)
	assert.NoError(t, err)
}

func TestActivityRepo_CreateTx(t *testing.T) {
	ctx := context.Background()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockDB := mock_database.NewMockDB(ctrl)
	mockTx := mock_database.NewMockTx(ctrl)
	repo := postgresql.NewActivityRepo(mockDB)

	entry := &repository.ActivityEntry{
		UserID: "user-456",
		Action: "Pickup completed - 501 points (75.15 EGP)",
		Points: 501,
		Gains:  75.15,
	}

	mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(),
		gomock.Eq(entry.UserID),
		gomock.Eq(entry.Action),
		gomock.Eq(entry.Points),
		gomock.Eq(entry.Gains),
		gomock.Eq(entry.CreatedAt),
	).DoAndReturn(func(_ context.Context, query string, _ ...interface{}) (pgconn.CommandTag, error) {
		assert.Contains(t, query, "INSERT INTO activity_entries")
		return pgconnTag("INSERT 0 1"), nil
	})

	err := repo.CreateTx(ctx, mockTx, entry)
	assert.NoError(t, err)
}

func TestActivityRepo_GetByUserID(t *testing.T) {
	ctx := context.Background()

	t.Run("without limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewActivityRepo(mockDB)

		stored := []*repository.ActivityEntry{
			{ID: 2, UserID: "user-456", Action: "Pickup completed - 501 points (75.15 EGP)"},
			{ID: 1, UserID: "user-456", Action: "Pickup request created"},
		}

		mockDB.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq("user-456")).
			DoAndReturn(func(_ context.Context, dest *[]*repository.ActivityEntry, query string, _ ...interface{}) error {
				assert.Contains(t, query, "FROM activity_entries")
				assert.False(t, strings.Contains(query, "LIMIT"))
				*dest = stored
				return nil
			})

		entries, err := repo.GetByUserID(ctx, "user-456", 0)
		assert.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("with limit", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewActivityRepo(mockDB)

		mockDB.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Eq("user-456"), gomock.Eq(10)).
			DoAndReturn(func(_ context.Context, dest *[]*repository.ActivityEntry, query string, _ ...interface{}) error {
				assert.Contains(t, query, "FROM activity_entries")
				assert.Contains(t, query, "LIMIT $2")
				return nil
			})

		_, err := repo.GetByUserID(ctx, "user-456", 10)
		assert.NoError(t, err)
	})
}
