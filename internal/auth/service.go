package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/binwise/backend/internal/repository"
)

var (
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type UserRepo interface {
	Create(ctx context.Context, user *repository.User) error
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
}

// Service handles registration and login. Tokens are issued by the embedded
// TokenService; password hashes never leave this package.
type Service struct {
	users  UserRepo
	tokens *TokenService
}

func New(users UserRepo, tokens *TokenService) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) Register(ctx context.Context, name, email, password, role string) (*repository.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, repository.ErrObjectNotFound) {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	if role != "admin" && role != "agent" {
		role = "user"
	}

	now := time.Now().UTC()
	user := &repository.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		Password:  string(hashed),
		Role:      role,
		Level:     []string{"Beginner"},
		Badges:    []string{"Eco Starter"},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}

	return user, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*repository.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrObjectNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}

	return user, token, nil
}
