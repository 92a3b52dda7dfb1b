package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Username     string
	Email        string // unique
	PasswordHash string // argon2id PHC string, or bcrypt for legacy rows
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProjection is the part of a user that may leave the service, both in
// the access token "data" claim and in API responses. The password digest
// must never be added here.
type UserProjection struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func (u User) Projection() UserProjection {
	return UserProjection{ID: u.ID, Username: u.Username, Email: u.Email}
}
