package services

import (
	"context"
	"fmt"

	"chat-relay/domain"
	"chat-relay/repositories"

	"github.com/samber/lo"
)

type IChannelService interface {
	Create(ctx context.Context, name string, isPrivate bool, ownerID domain.UserID) (domain.Channel, error)
	List(ctx context.Context) ([]ChannelView, error)
	Join(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error
	Leave(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error
	Members(ctx context.Context, channelID domain.ChannelID) ([]domain.Membership, error)
}

// ChannelView decorates a channel with its member count for listings.
type ChannelView struct {
	domain.Channel
	MemberCount int `json:"member_count"`
}

type ChannelService struct {
	channels    repositories.IChannelRepository
	memberships repositories.IMembershipRepository
}

func NewChannelService(channels repositories.IChannelRepository, memberships repositories.IMembershipRepository) IChannelService {
	return &ChannelService{channels: channels, memberships: memberships}
}

// Create creates the channel and makes the creator its owner member.
func (s *ChannelService) Create(ctx context.Context, name string, isPrivate bool, ownerID domain.UserID) (domain.Channel, error) {
	channel, err := s.channels.Create(ctx, name, isPrivate, ownerID)
	if err != nil {
		return domain.Channel{}, err
	}
	if err := s.memberships.Add(ctx, channel.ID, ownerID, domain.RoleOwner); err != nil {
		return domain.Channel{}, fmt.Errorf("owner membership: %w", err)
	}
	return channel, nil
}

func (s *ChannelService) List(ctx context.Context) ([]ChannelView, error) {
	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]ChannelView, 0, len(channels))
	for _, channel := range channels {
		members, err := s.memberships.ListByChannel(ctx, channel.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, ChannelView{Channel: channel, MemberCount: len(members)})
	}
	return views, nil
}

// Join records durable membership. Joining a private channel requires an
// existing membership added by the owner, so it is rejected here.
func (s *ChannelService) Join(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	channel, err := s.channels.Get(ctx, channelID)
	if err != nil {
		return err
	}
	if channel.IsPrivate && channel.OwnerID != userID {
		members, err := s.memberships.ListByChannel(ctx, channelID)
		if err != nil {
			return err
		}
		isInvited := lo.ContainsBy(members, func(m domain.Membership) bool {
			return m.UserID == userID
		})
		if !isInvited {
			return fmt.Errorf("private channel requires an invite")
		}
	}
	return s.memberships.Add(ctx, channelID, userID, domain.RoleMember)
}

func (s *ChannelService) Leave(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	return s.memberships.Remove(ctx, channelID, userID)
}

func (s *ChannelService) Members(ctx context.Context, channelID domain.ChannelID) ([]domain.Membership, error) {
	if _, err := s.channels.Get(ctx, channelID); err != nil {
		return nil, err
	}
	return s.memberships.ListByChannel(ctx, channelID)
}
