package services

import (
	"context"
	"testing"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func testTokens() *auth.TokenManager {
	return auth.NewTokenManager([]byte("test-secret"), "chat-relay", time.Hour)
}

func TestAuthService_Register(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	service := NewAuthService(users, testTokens())

	users.EXPECT().
		CreateUser(gomock.Any(), "alice@example.com", gomock.Any(), "Alice").
		DoAndReturn(func(_ context.Context, email, hashed, displayName string) (domain.User, error) {
			// The plaintext never reaches the repository
			req.NotEqual("Sup3r-Secret-Pass!", hashed)
			return domain.User{ID: "u1", Email: email, DisplayName: displayName}, nil
		})

	user, token, err := service.Register(context.Background(), auth.RegisterRequest{
		Email:       "alice@example.com",
		Password:    "Sup3r-Secret-Pass!",
		DisplayName: "Alice",
	})
	req.NoError(err)
	req.Equal(domain.UserID("u1"), user.ID)
	req.NotEmpty(token)

	// The issued token authenticates as the new account
	claims, err := testTokens().Validate(string(token))
	req.NoError(err)
	req.Equal("u1", claims.Subject)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	service := NewAuthService(users, testTokens())

	// No repository call is expected: validation fails first
	_, _, err := service.Register(context.Background(), auth.RegisterRequest{
		Email:       "alice@example.com",
		Password:    "alllowercasepassword",
		DisplayName: "Alice",
	})
	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	service := NewAuthService(users, testTokens())

	users.EXPECT().
		CreateUser(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.User{}, errors.ErrUserAlreadyExists)

	_, _, err := service.Register(context.Background(), auth.RegisterRequest{
		Email:       "alice@example.com",
		Password:    "Sup3r-Secret-Pass!",
		DisplayName: "Alice",
	})
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestAuthService_Login(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	service := NewAuthService(users, testTokens())

	hash, err := auth.HashPassword("Sup3r-Secret-Pass!")
	req.NoError(err)

	users.EXPECT().
		GetByEmail(gomock.Any(), "alice@example.com").
		Return(domain.User{ID: "u1", Email: "alice@example.com", PasswordHash: hash}, nil).
		Times(2)

	// Correct password succeeds
	_, token, err := service.Login(context.Background(), auth.LoginRequest{
		Email:    "alice@example.com",
		Password: "Sup3r-Secret-Pass!",
	})
	req.NoError(err)
	req.NotEmpty(token)

	// Wrong password gets the same answer as an unknown account
	_, _, err = service.Login(context.Background(), auth.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownAccount(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	users := mocks.NewMockIUserRepository(ctrl)
	service := NewAuthService(users, testTokens())

	users.EXPECT().
		GetByEmail(gomock.Any(), "nobody@example.com").
		Return(domain.User{}, errors.ErrNotFound)

	_, _, err := service.Login(context.Background(), auth.LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever-password",
	})
	req.ErrorIs(err, errors.ErrInvalidCredentials)
}
