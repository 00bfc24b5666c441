//go:generate go run go.uber.org/mock/mockgen -source=verifier.go -destination=../mocks/mock_user_getter.go -package=mocks
package auth

import (
	"context"
	"log/slog"

	"chat-relay/domain"
)

// UserGetter is the slice of the user repository the verifier needs.
type UserGetter interface {
	GetByID(ctx context.Context, id domain.UserID) (domain.User, error)
}

// IdentityVerifier turns a bearer token into an authenticated identity.
// It implements contract.IIdentityStore. The display name is resolved here,
// once per connection, and cached on the returned identity.
type IdentityVerifier struct {
	tokens *TokenManager
	users  UserGetter
	log    *slog.Logger
}

func NewIdentityVerifier(tokens *TokenManager, users UserGetter, log *slog.Logger) *IdentityVerifier {
	return &IdentityVerifier{tokens: tokens, users: users, log: log}
}

func (v *IdentityVerifier) Verify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := v.tokens.Validate(token)
	if err != nil {
		return domain.Identity{}, err
	}

	userID := domain.UserID(claims.Subject)
	displayName := claims.DisplayName

	// The store is authoritative for the display name; the claim is only a
	// fallback when the account lookup fails (renames since token issue).
	if user, err := v.users.GetByID(ctx, userID); err == nil {
		displayName = user.DisplayName
	} else {
		v.log.Warn("identity lookup fell back to token claims", "user_id", userID, "err", err)
	}
	if displayName == "" {
		displayName = "Unknown"
	}

	return domain.Identity{UserID: userID, DisplayName: displayName}, nil
}
