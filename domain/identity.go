// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

// ConnID identifies a single transport-level connection for its lifetime.
type ConnID string

// ChannelID identifies a chat channel (a persistent room of members).
type ChannelID string

// UserID identifies an account.
type UserID string

// Identity is the authenticated principal bound to a connection.
// The display name is resolved once at bind time and cached for the
// connection lifetime, so broadcasts never go back to the user store.
type Identity struct {
	UserID      UserID
	DisplayName string
}

// PresenceInfo is the per-user entry of a presence snapshot.
type PresenceInfo struct {
	ID          UserID `json:"id"`
	DisplayName string `json:"display_name"`
}
