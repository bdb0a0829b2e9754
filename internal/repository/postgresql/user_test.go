package postgresql_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	mock_database "github.com/binwise/backend/internal/db/mocks"
	"github.com/binwise/backend/internal/repository"
	"github.com/binwise/backend/internal/repository/postgresql"
)

func pgconnTag(s string) pgconn.CommandTag {
	return pgconn.CommandTag(s)
}

func TestUserRepo_GetByEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("user found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		testUser := &repository.User{
			ID:    "user-123",
			Email: "nour@example.com",
			Role:  "user",
		}

		mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Eq(testUser.Email)).
			DoAndReturn(func(_ context.Context, dest *repository.User, _ string, _ string) error {
				*dest = *testUser
				return nil
			})

		user, err := repo.GetByEmail(ctx, testUser.Email)
		assert.NoError(t, err)
		assert.Equal(t, testUser, user)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		mockDB.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(pgx.ErrNoRows)

		user, err := repo.GetByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
		assert.Nil(t, user)
	})
}

func TestUserRepo_CreditRewardsTx(t *testing.T) {
	ctx := context.Background()

	t.Run("balance incremented and row returned", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		credited := &repository.User{
			ID:           "user-123",
			Points:       2470,
			Gains:        370.50,
			DaysRecycled: 3,
		}

		mockTx.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Eq("user-123"), gomock.Eq(2270), gomock.Eq(340.50)).
			DoAndReturn(func(_ context.Context, dest *repository.User, _ string, _ ...interface{}) error {
				*dest = *credited
				return nil
			})

		user, err := repo.CreditRewardsTx(ctx, mockTx, "user-123", 2270, 340.50)
		assert.NoError(t, err)
		assert.Equal(t, credited, user)
	})

	t.Run("unknown user", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		mockTx.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any()).Return(pgx.ErrNoRows)

		user, err := repo.CreditRewardsTx(ctx, mockTx, "ghost", 10, 1.5)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
		assert.Nil(t, user)
	})
}

func TestUserRepo_AddPoints(t *testing.T) {
	ctx := context.Background()

	t.Run("no rows affected", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Eq("ghost"), gomock.Eq(25)).
			Return(pgconnTag("UPDATE 0"), nil)

		err := repo.AddPoints(ctx, "ghost", 25)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewUserRepo(mockDB)

		expectedErr := errors.New("database error")
		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, expectedErr)

		err := repo.AddPoints(ctx, "user-123", 25)
		assert.Equal(t, expectedErr, err)
	})
}
