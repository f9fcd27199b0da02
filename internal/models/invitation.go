package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// InvitationClaims is the payload of a signed invitation token. Tokens are
// stateless capabilities: once issued they cannot be revoked before expiry.
type InvitationClaims struct {
	Role      UserRole `json:"role"`
	StudioID  *string  `json:"studio_id,omitempty"`
	CreatorID string   `json:"creator_id"`
	jwt.RegisteredClaims
}

// Invitation is the issued token plus its claims, returned to the creator.
type Invitation struct {
	Token     string    `json:"token"`
	Role      UserRole  `json:"role"`
	StudioID  *string   `json:"studio_id,omitempty"`
	CreatorID string    `json:"creator_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// InvitationValidation is returned when a token is checked before signup.
type InvitationValidation struct {
	Valid    bool           `json:"valid"`
	Role     UserRole       `json:"role"`
	StudioID *string        `json:"studio_id,omitempty"`
	Studio   *StudioSummary `json:"studio,omitempty"`
}
