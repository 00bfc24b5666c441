//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, email, hashedPassword, displayName string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id domain.UserID) (domain.User, error)
}

// UserRepository stores accounts under "user:id:{id}" with a
// "user:email:{email}" index enforcing email uniqueness.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userIDKey(id domain.UserID) []byte { return []byte("user:id:" + string(id)) }

func userEmailKey(email string) []byte { return []byte("user:email:" + email) }

func (u *UserRepository) CreateUser(_ context.Context, email, hashedPassword, displayName string) (domain.User, error) {
	user := domain.User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        email,
		PasswordHash: hashedPassword,
		DisplayName:  displayName,
		CreatedAt:    time.Now().UTC(),
	}

	data, err := json.Marshal(userRecord(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(userEmailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(userEmailKey(email), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userIDKey(user.ID), data)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var id domain.UserID
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userEmailKey(email))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			id = domain.UserID(val)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return u.GetByID(ctx, id)
}

func (u *UserRepository) GetByID(_ context.Context, id domain.UserID) (domain.User, error) {
	var rec storedUser
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userIDKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.User{}, errors.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	return rec.toDomain(), nil
}

// storedUser is the disk shape. domain.User hides the password hash from
// JSON on purpose, so the repository keeps its own record type.
type storedUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
}

func userRecord(user domain.User) storedUser {
	return storedUser{
		ID:           string(user.ID),
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		DisplayName:  user.DisplayName,
		CreatedAt:    user.CreatedAt,
	}
}

func (s storedUser) toDomain() domain.User {
	return domain.User{
		ID:           domain.UserID(s.ID),
		Email:        s.Email,
		PasswordHash: s.PasswordHash,
		DisplayName:  s.DisplayName,
		CreatedAt:    s.CreatedAt,
	}
}
