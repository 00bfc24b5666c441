package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// MessageRepository persists messages in BadgerDB.
// The key is formatted as "msg:{channel_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using the UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
type MessageRepository struct {
	db       *badger.DB
	log      *slog.Logger
	pageSize int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, pageSize int) *MessageRepository {
	return &MessageRepository{db: db, log: log, pageSize: pageSize}
}

func messageKey(channelID domain.ChannelID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", channelID, at.UnixNano(), id))
}

func messagePrefix(channelID domain.ChannelID) []byte {
	return []byte(fmt.Sprintf("msg:%s:", channelID))
}

// Append durably commits a new message and returns the persisted record.
// It must complete before any broadcast of the message happens.
func (m *MessageRepository) Append(_ context.Context, channelID domain.ChannelID, userID domain.UserID, content, language string) (domain.Message, error) {
	msg := domain.Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		UserID:    userID,
		Content:   content,
		Language:  language,
		CreatedAt: time.Now().UTC(),
	}

	value, err := json.Marshal(msg)
	if err != nil {
		return domain.Message{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(channelID, msg.CreatedAt, msg.ID), value)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// Page retrieves a channel's history newest-first using a reverse prefix
// scan. The cursor is the key remainder after the channel prefix; passing
// the returned cursor as `before` resumes strictly after it. The padded
// timestamp in the key keeps messages naturally sorted by time.
func (m *MessageRepository) Page(_ context.Context, channelID domain.ChannelID, before *string, limit int) ([]domain.Message, *string, bool, error) {
	if limit <= 0 || limit > m.pageSize {
		limit = m.pageSize
	}

	var messages []domain.Message
	var lastKey string
	hasMore := false

	err := m.db.View(func(txn *badger.Txn) error {
		prefix := messagePrefix(channelID)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		if before == nil {
			// Seek past every possible timestamp, then walk backwards.
			seekKey = append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		} else {
			seekKey = append(append([]byte{}, prefix...), []byte(*before)...)
		}

		it.Seek(seekKey)
		if before != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if len(messages) == limit {
				hasMore = true
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(value, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}

	if len(messages) == 0 {
		return nil, nil, false, nil
	}
	return messages, &lastKey, hasMore, nil
}
