package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CustomClaims are the claims issued by the identity provider. The subject
// is the user id.
type CustomClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Validate requires a UUID subject.
func (c *CustomClaims) Validate() error {
	if _, err := uuid.Parse(c.Subject); err != nil {
		return jwt.ErrTokenInvalidClaims
	}
	return nil
}

// UserID returns the parsed subject. Only call after Validate.
func (c *CustomClaims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.Subject)
	return id
}
