package domain

import "time"

// User is the account record. PasswordHash is the PHC-formatted argon2id
// string and must never be serialized to clients.
type User struct {
	ID           UserID    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
}
