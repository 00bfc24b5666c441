package repositories

import (
	"context"
	"testing"

	"chat-relay/domain"

	"github.com/stretchr/testify/require"
)

func TestMembershipRepository_AddIsIdempotent(t *testing.T) {
	req := require.New(t)
	repo := NewMembershipRepository(openTestDB(t))
	ctx := context.Background()

	req.NoError(repo.Add(ctx, "general", "alice", domain.RoleOwner))
	// Re-adding keeps the original role
	req.NoError(repo.Add(ctx, "general", "alice", domain.RoleMember))

	members, err := repo.ListByChannel(ctx, "general")
	req.NoError(err)
	req.Len(members, 1)
	req.Equal(domain.RoleOwner, members[0].Role)
}

func TestMembershipRepository_AddRemoveLifecycle(t *testing.T) {
	req := require.New(t)
	repo := NewMembershipRepository(openTestDB(t))
	ctx := context.Background()

	member, err := repo.IsMember(ctx, "general", "alice")
	req.NoError(err)
	req.False(member)

	req.NoError(repo.Add(ctx, "general", "alice", domain.RoleMember))

	member, err = repo.IsMember(ctx, "general", "alice")
	req.NoError(err)
	req.True(member)

	req.NoError(repo.Remove(ctx, "general", "alice"))

	member, err = repo.IsMember(ctx, "general", "alice")
	req.NoError(err)
	req.False(member)
}

func TestMembershipRepository_ListScopedToChannel(t *testing.T) {
	req := require.New(t)
	repo := NewMembershipRepository(openTestDB(t))
	ctx := context.Background()

	req.NoError(repo.Add(ctx, "general", "alice", domain.RoleMember))
	req.NoError(repo.Add(ctx, "general", "bob", domain.RoleMember))
	req.NoError(repo.Add(ctx, "random", "alice", domain.RoleMember))

	members, err := repo.ListByChannel(ctx, "general")
	req.NoError(err)
	req.Len(members, 2)
}
