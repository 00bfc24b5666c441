//go:generate go run go.uber.org/mock/mockgen -source=membership.go -destination=../mocks/mock_membership_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
)

type IMembershipRepository interface {
	Add(ctx context.Context, channelID domain.ChannelID, userID domain.UserID, role domain.Role) error
	Remove(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error
	IsMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (bool, error)
	ListByChannel(ctx context.Context, channelID domain.ChannelID) ([]domain.Membership, error)
}

// MembershipRepository stores the durable channel membership records under
// "member:{channel_id}:{user_id}". Membership is unrelated to live
// presence; it survives every disconnect.
type MembershipRepository struct {
	db *badger.DB
}

func NewMembershipRepository(db *badger.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

func membershipKey(channelID domain.ChannelID, userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("member:%s:%s", channelID, userID))
}

// Add is idempotent: re-adding an existing member keeps the original record
// (role and joined_at).
func (m *MembershipRepository) Add(_ context.Context, channelID domain.ChannelID, userID domain.UserID, role domain.Role) error {
	record := domain.Membership{
		ChannelID: channelID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	return m.db.Update(func(txn *badger.Txn) error {
		key := membershipKey(channelID, userID)
		if _, err := txn.Get(key); err == nil {
			return nil
		}
		return txn.Set(key, data)
	})
}

func (m *MembershipRepository) Remove(_ context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(membershipKey(channelID, userID))
	})
}

func (m *MembershipRepository) IsMember(_ context.Context, channelID domain.ChannelID, userID domain.UserID) (bool, error) {
	err := m.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(membershipKey(channelID, userID))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (m *MembershipRepository) ListByChannel(_ context.Context, channelID domain.ChannelID) ([]domain.Membership, error) {
	var memberships []domain.Membership
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("member:%s:", channelID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record domain.Membership
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				memberships = append(memberships, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return memberships, err
}
