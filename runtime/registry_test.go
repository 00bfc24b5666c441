package runtime

import (
	"context"
	"log/slog"
	"testing"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRegistry_Bind_ValidToken(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	identities := mocks.NewMockIIdentityStore(ctrl)
	sink := mocks.NewMockEventSink(ctrl)
	registry := NewRegistry(identities, slog.Default())
	connID := domain.ConnID(uuid.NewString())

	// Given a store accepting the credential
	identities.EXPECT().
		Verify(gomock.Any(), "valid-token").
		Return(domain.Identity{UserID: "u1", DisplayName: "Alice"}, nil)

	// When the connection binds
	identity, err := registry.Bind(context.Background(), connID, "valid-token", sink)

	// Then the identity is recorded and resolvable
	req.NoError(err)
	req.Equal(domain.UserID("u1"), identity.UserID)
	req.Equal(1, registry.Len())

	resolved, ok := registry.IdentityOf(connID)
	req.True(ok)
	req.Equal("Alice", resolved.DisplayName)

	boundSink, ok := registry.SinkOf(connID)
	req.True(ok)
	req.Equal(sink, boundSink)
}

func TestRegistry_Bind_InvalidToken(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	identities := mocks.NewMockIIdentityStore(ctrl)
	registry := NewRegistry(identities, slog.Default())
	connID := domain.ConnID(uuid.NewString())

	identities.EXPECT().
		Verify(gomock.Any(), "bad-token").
		Return(domain.Identity{}, errors.ErrTokenInvalid)

	// When the connection binds with a refused credential
	_, err := registry.Bind(context.Background(), connID, "bad-token", mocks.NewMockEventSink(ctrl))

	// Then nothing is recorded
	req.ErrorIs(err, errors.ErrTokenInvalid)
	req.Equal(0, registry.Len())

	_, ok := registry.IdentityOf(connID)
	req.False(ok)
}

func TestRegistry_Unbind_ExactlyOnce(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	identities := mocks.NewMockIIdentityStore(ctrl)
	registry := NewRegistry(identities, slog.Default())
	connID := domain.ConnID(uuid.NewString())

	identities.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(domain.Identity{UserID: "u1"}, nil)
	_, err := registry.Bind(context.Background(), connID, "t", mocks.NewMockEventSink(ctrl))
	req.NoError(err)

	// When unbinding twice
	identity, removed := registry.Unbind(connID)
	_, removedAgain := registry.Unbind(connID)

	// Then only the first call observes the removal
	req.True(removed)
	req.Equal(domain.UserID("u1"), identity.UserID)
	req.False(removedAgain)
	req.Equal(0, registry.Len())
}

func TestRegistry_SinksFor_SkipsExceptAndUnbound(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	identities := mocks.NewMockIIdentityStore(ctrl)
	identities.EXPECT().
		Verify(gomock.Any(), gomock.Any()).
		Return(domain.Identity{UserID: "u1"}, nil).
		Times(3)

	registry := NewRegistry(identities, slog.Default())
	conn1 := domain.ConnID(uuid.NewString())
	conn2 := domain.ConnID(uuid.NewString())
	conn3 := domain.ConnID(uuid.NewString())

	for _, connID := range []domain.ConnID{conn1, conn2, conn3} {
		_, err := registry.Bind(context.Background(), connID, "t", mocks.NewMockEventSink(ctrl))
		req.NoError(err)
	}
	registry.Unbind(conn3)

	// When resolving sinks for the roster, excluding conn1
	sinks := registry.SinksFor([]domain.ConnID{conn1, conn2, conn3}, conn1)

	// Then only conn2 remains: conn1 is excluded, conn3 unbound
	req.Len(sinks, 1)
}
