package repositories

import (
	"context"
	"testing"

	"chat-relay/errors"

	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndGet(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	// When creating an account
	user, err := repo.CreateUser(ctx, "alice@example.com", "hashed", "Alice")
	req.NoError(err)
	req.NotEmpty(user.ID)

	// Then it is resolvable by email and by id, hash included
	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	req.NoError(err)
	req.Equal(user.ID, byEmail.ID)
	req.Equal("hashed", byEmail.PasswordHash)

	byID, err := repo.GetByID(ctx, user.ID)
	req.NoError(err)
	req.Equal("Alice", byID.DisplayName)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.CreateUser(ctx, "alice@example.com", "h1", "Alice")
	req.NoError(err)

	// A second account on the same email is refused
	_, err = repo.CreateUser(ctx, "alice@example.com", "h2", "Imposter")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_UnknownAccount(t *testing.T) {
	req := require.New(t)
	repo := NewUserRepository(openTestDB(t))
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "nobody@example.com")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = repo.GetByID(ctx, "ghost")
	req.ErrorIs(err, errors.ErrNotFound)
}
