package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload stored inside the JWT. The display name is embedded
// at issue time so socket handshakes resolve an identity without hitting
// the user store on the hot path.
type Claims struct {
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates the bearer credentials of the system.
// The secret comes from configuration, never from source.
type TokenManager struct {
	secret   []byte
	issuer   string
	duration time.Duration
}

func NewTokenManager(secret []byte, issuer string, duration time.Duration) *TokenManager {
	return &TokenManager{secret: secret, issuer: issuer, duration: duration}
}

// Generate creates a signed HS256 token for a user.
func (m *TokenManager) Generate(userID domain.UserID, displayName string) (string, error) {
	now := time.Now()
	claims := &Claims{
		DisplayName: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Validate parses a token string and returns its claims.
// Failures are typed: expired, malformed, or invalid (bad signature,
// wrong algorithm, missing subject). Callers must treat all of them as
// terminal for the triggering operation.
func (m *TokenManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		switch {
		case stderrors.Is(err, jwt.ErrTokenExpired):
			return nil, errors.ErrTokenExpired
		case stderrors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.ErrTokenMalformed
		default:
			return nil, fmt.Errorf("%w: %v", errors.ErrTokenInvalid, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.ErrTokenInvalid
	}
	return claims, nil
}
