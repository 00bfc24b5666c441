// Package search maintains a full-text index over persisted messages and
// answers channel-scoped content queries.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"

	"github.com/blugelabs/bluge"
)

// Hit is one search result with the stored fields needed to render it.
type Hit struct {
	MessageID string           `json:"id"`
	ChannelID domain.ChannelID `json:"channel_id"`
	UserID    domain.UserID    `json:"user_id"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
}

// Index wraps a bluge writer. Indexing is best-effort relative to the
// durable store: a failed index entry only degrades search, never message
// delivery or history.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Open creates or opens the index at path. An empty path opens an
// in-memory index (tests).
func Open(path string, log *slog.Logger) (*Index, error) {
	var config bluge.Config
	if path == "" {
		config = bluge.InMemoryOnlyConfig()
	} else {
		config = bluge.DefaultConfig(path)
	}

	writer, err := bluge.OpenWriter(config)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// IndexMessage upserts one message document.
func (i *Index) IndexMessage(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewKeywordField("channel_id", string(msg.ChannelID)).StoreValue()).
		AddField(bluge.NewKeywordField("user_id", string(msg.UserID)).StoreValue()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewDateTimeField("created_at", msg.CreatedAt).StoreValue())

	return i.writer.Update(doc.ID(), doc)
}

// Search returns up to limit messages of one channel matching the query,
// best match first.
func (i *Index) Search(ctx context.Context, channelID domain.ChannelID, query string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("index reader: %w", err)
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("closing index reader", "err", err)
		}
	}()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(string(channelID)).SetField("channel_id")).
		AddMust(bluge.NewMatchQuery(query).SetField("content"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, q))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}

		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "_id":
				hit.MessageID = string(value)
			case "channel_id":
				hit.ChannelID = domain.ChannelID(value)
			case "user_id":
				hit.UserID = domain.UserID(value)
			case "content":
				hit.Content = string(value)
			case "created_at":
				if t, err := bluge.DecodeDateTime(value); err == nil {
					hit.CreatedAt = t
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
