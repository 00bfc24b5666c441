//go:generate go run go.uber.org/mock/mockgen -source=channel.go -destination=../mocks/mock_channel_repository.go -package=mocks
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

type IChannelRepository interface {
	Create(ctx context.Context, name string, isPrivate bool, ownerID domain.UserID) (domain.Channel, error)
	Get(ctx context.Context, id domain.ChannelID) (domain.Channel, error)
	List(ctx context.Context) ([]domain.Channel, error)
	FindByName(ctx context.Context, name string) (domain.Channel, bool, error)
}

type ChannelRepository struct {
	db *badger.DB
}

func NewChannelRepository(db *badger.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

func channelKey(id domain.ChannelID) []byte { return []byte("channel:" + string(id)) }

func (c *ChannelRepository) Create(_ context.Context, name string, isPrivate bool, ownerID domain.UserID) (domain.Channel, error) {
	channel := domain.Channel{
		ID:        domain.ChannelID(uuid.NewString()),
		Name:      name,
		IsPrivate: isPrivate,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(channel)
	if err != nil {
		return domain.Channel{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(channelKey(channel.ID), data)
	})
	if err != nil {
		return domain.Channel{}, err
	}
	return channel, nil
}

func (c *ChannelRepository) Get(_ context.Context, id domain.ChannelID) (domain.Channel, error) {
	var channel domain.Channel
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(channelKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &channel)
		})
	})
	if err == badger.ErrKeyNotFound {
		return domain.Channel{}, errors.ErrChannelNotFound
	}
	if err != nil {
		return domain.Channel{}, err
	}
	return channel, nil
}

func (c *ChannelRepository) List(_ context.Context) ([]domain.Channel, error) {
	var channels []domain.Channel
	err := c.db.View(func(txn *badger.Txn) error {
		prefix := []byte("channel:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var channel domain.Channel
				if err := json.Unmarshal(val, &channel); err != nil {
					return err
				}
				channels = append(channels, channel)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return channels, err
}

// FindByName scans for a channel with the given name. Only used by the
// default-channel bootstrap at startup, so a full scan is acceptable.
func (c *ChannelRepository) FindByName(ctx context.Context, name string) (domain.Channel, bool, error) {
	channels, err := c.List(ctx)
	if err != nil {
		return domain.Channel{}, false, err
	}
	for _, channel := range channels {
		if channel.Name == name {
			return channel, true, nil
		}
	}
	return domain.Channel{}, false, nil
}
