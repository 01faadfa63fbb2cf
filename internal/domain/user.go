package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity provider's view of an account.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      string    `json:"role" db:"role"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Caller is the authenticated principal of a request. GlobalRole plays no
// part in board access decisions.
type Caller struct {
	UserID     uuid.UUID
	Email      string
	GlobalRole string
}
