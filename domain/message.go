package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is the durable chat record. Its JSON tags are the wire shape of
// both the socket broadcast and the history endpoint.
type Message struct {
	ID        uuid.UUID  `json:"id"`
	ChannelID ChannelID  `json:"channel_id"`
	UserID    UserID     `json:"user_id"`
	Content   string     `json:"content"`
	Language  string     `json:"language,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at"`
	IsDeleted bool       `json:"is_deleted"`
}
