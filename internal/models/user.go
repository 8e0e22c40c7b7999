package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the login identity. Game state lives in UserProfile under the
// same ID.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	IsActive  bool      `json:"isActive"`

	PasswordHash string `json:"-"`
}
