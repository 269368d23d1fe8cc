package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	DisplayName  *string   `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity describes the authenticated caller of an operation. Operations
// that accept anonymous callers take a nil *Identity.
type Identity struct {
	UserID uuid.UUID
	Email  string
}
