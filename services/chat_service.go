package services

import (
	"context"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/projection"
	"chat-relay/search"
)

type IChatService interface {
	History(ctx context.Context, channelID domain.ChannelID, before *string, limit int) ([]domain.Message, *string, bool, error)
	Recent(channelID domain.ChannelID) []domain.Message
	Search(ctx context.Context, channelID domain.ChannelID, query string, limit int) ([]search.Hit, error)
}

// ChatService is the read side of the message pipeline: durable pages from
// the store, the in-memory tail, and full-text search.
type ChatService struct {
	messages contract.IMessageStore
	timeline *projection.Timeline
	index    *search.Index
}

func NewChatService(messages contract.IMessageStore, timeline *projection.Timeline, index *search.Index) IChatService {
	return &ChatService{messages: messages, timeline: timeline, index: index}
}

func (s *ChatService) History(ctx context.Context, channelID domain.ChannelID, before *string, limit int) ([]domain.Message, *string, bool, error) {
	return s.messages.Page(ctx, channelID, before, limit)
}

func (s *ChatService) Recent(channelID domain.ChannelID) []domain.Message {
	return s.timeline.Recent(channelID)
}

func (s *ChatService) Search(ctx context.Context, channelID domain.ChannelID, query string, limit int) ([]search.Hit, error) {
	return s.index.Search(ctx, channelID, query, limit)
}
