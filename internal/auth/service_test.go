package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"

	"github.com/binwise/backend/internal/auth"
	mock_auth "github.com/binwise/backend/internal/auth/mocks"
	"github.com/binwise/backend/internal/repository"
)

func newAuthService(t *testing.T) (*auth.Service, *mock_auth.MockUserRepo) {
	t.Helper()
	ctrl := gomock.NewController(t)
	users := mock_auth.NewMockUserRepo(ctrl)
	return auth.New(users, auth.NewTokenService("test-secret")), users
}

func TestRegister(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates user with defaults and signs token", func(t *testing.T) {
		t.Parallel()
		service, users := newAuthService(t)
		users.EXPECT().GetByEmail(gomock.Any(), "nour@example.com").Return(nil, repository.ErrObjectNotFound)

		var created *repository.User
		users.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, user *repository.User) error {
				created = user
				return nil
			})

		user, token, err := service.Register(ctx, "Nour", "Nour@Example.com ", "secret123", "superuser")

		require.NoError(t, err)
		require.NotNil(t, created)
		assert.NotEmpty(t, token)
		assert.Equal(t, "nour@example.com", user.Email)
		// unknown roles collapse to user
		assert.Equal(t, "user", user.Role)
		assert.Equal(t, []string{"Beginner"}, user.Level)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret123")))
	})

	t.Run("agent role survives registration", func(t *testing.T) {
		t.Parallel()
		service, users := newAuthService(t)
		users.EXPECT().GetByEmail(gomock.Any(), "driver@example.com").Return(nil, repository.ErrObjectNotFound)
		users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		user, _, err := service.Register(ctx, "Omar", "driver@example.com", "secret123", "agent")

		require.NoError(t, err)
		assert.Equal(t, "agent", user.Role)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		service, users := newAuthService(t)
		users.EXPECT().GetByEmail(gomock.Any(), "nour@example.com").
			Return(&repository.User{ID: "user-1"}, nil)

		_, _, err := service.Register(ctx, "Nour", "nour@example.com", "secret123", "")

		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()
		service, users := newAuthService(t)
		users.EXPECT().GetByEmail(gomock.Any(), "nour@example.com").
			Return(&repository.User{ID: "user-1", Email: "nour@example.com", Password: string(hashed), Role: "user"}, nil)

		user, token, err := service.Login(ctx, "nour@example.com", "secret123")

		require.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()
		service, users := newAuthService(t)
		users.EXPECT().GetByEmail(gomock.Any(), "nour@example.com").
			Return(&repository.User{ID: "user-1", Password: string(hashed)}, nil)

		_, _, err := service.Login(ctx, "nour@example.com", "wrong")

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		service, users := newAuthService(t)
		users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").
			Return(nil, repository.ErrObjectNotFound)

		_, _, err := service.Login(ctx, "ghost@example.com", "secret123")

		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tokens := auth.NewTokenService("test-secret")
	token, err := tokens.Generate("user-1", "admin")
	require.NoError(t, err)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenWrongSecret(t *testing.T) {
	t.Parallel()

	token, err := auth.NewTokenService("secret-a").Generate("user-1", "user")
	require.NoError(t, err)

	_, err = auth.NewTokenService("secret-b").Validate(token)
	assert.Error(t, err)
}
