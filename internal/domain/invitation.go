package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvitationTTL is how long a new invitation stays answerable.
const InvitationTTL = 7 * 24 * time.Hour

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"
	// InvitationExpired is only written when a stale pending row is
	// superseded by a new invitation. Expiry itself is read-time.
	InvitationExpired InvitationStatus = "expired"
)

type InvitationAction string

const (
	InvitationAccept  InvitationAction = "accept"
	InvitationDecline InvitationAction = "decline"
)

// BoardInvitation Email is always stored normalized. Transitions are one-way:
// pending to accepted or declined.
type BoardInvitation struct {
	ID         uuid.UUID        `json:"id" db:"id"`
	BoardID    uuid.UUID        `json:"boardId" db:"board_id"`
	Email      string           `json:"email" db:"email"`
	Role       Role             `json:"role" db:"role"`
	InvitedBy  uuid.UUID        `json:"invitedBy" db:"invited_by"`
	Status     InvitationStatus `json:"status" db:"status"`
	Token      string           `json:"-" db:"token"`
	ExpiresAt  time.Time        `json:"expiresAt" db:"expires_at"`
	AcceptedAt *time.Time       `json:"acceptedAt,omitempty" db:"accepted_at"`
	DeclinedAt *time.Time       `json:"declinedAt,omitempty" db:"declined_at"`
	CreatedAt  time.Time        `json:"createdAt" db:"created_at"`
}

// IsActive reports whether the invitation can still be answered at now.
func (i *BoardInvitation) IsActive(now time.Time) bool {
	return i.Status == InvitationPending && i.ExpiresAt.After(now)
}

// NormalizeEmail is the canonical form used for storage and matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type InviteMemberRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  Role   `json:"role" validate:"required,oneof=admin editor viewer"`
}

func (r *InviteMemberRequest) Validate() error {
	r.Email = NormalizeEmail(r.Email)
	return validate.Struct(r)
}

type RespondInvitationRequest struct {
	Action InvitationAction `json:"action" validate:"required,oneof=accept decline"`
}

func (r *RespondInvitationRequest) Validate() error {
	return validate.Struct(r)
}

// RespondInvitationResult carries the board id on accept.
type RespondInvitationResult struct {
	Status  InvitationStatus `json:"status"`
	BoardID *uuid.UUID       `json:"boardId,omitempty"`
}
