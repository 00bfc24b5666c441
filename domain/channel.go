package domain

import "time"

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Channel is the persistent room record, unrelated to live presence.
type Channel struct {
	ID        ChannelID `json:"id"`
	Name      string    `json:"name"`
	IsPrivate bool      `json:"is_private"`
	OwnerID   UserID    `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership is the durable record that a user belongs to a channel,
// independent of current connectivity.
type Membership struct {
	ChannelID ChannelID `json:"channel_id"`
	UserID    UserID    `json:"user_id"`
	Role      Role      `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}
