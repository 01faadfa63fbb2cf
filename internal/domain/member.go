package domain

import (
	"time"

	"github.com/google/uuid"
)

// =====================================================
// Board Roles
// =====================================================

// Role is a per-board role. It is unrelated to the caller's global role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor, RoleViewer:
		return true
	default:
		return false
	}
}

// IsAssignable reports whether r may be granted through membership edits or
// invitations. Owner only moves through ownership transfer.
func (r Role) IsAssignable() bool {
	return r.IsValid() && r != RoleOwner
}

// IsPrivileged reports whether r may grant or revoke admin.
func (r Role) IsPrivileged() bool {
	return r == RoleOwner || r == RoleAdmin
}

// =====================================================
// Board Member
// =====================================================

// BoardMember is unique per (BoardID, UserID). The current owner's row
// always carries RoleOwner.
type BoardMember struct {
	BoardID uuid.UUID  `json:"boardId" db:"board_id"`
	UserID  uuid.UUID  `json:"userId" db:"user_id"`
	Role    Role       `json:"role" db:"role"`
	AddedBy *uuid.UUID `json:"addedBy,omitempty" db:"added_by"`
	AddedAt time.Time  `json:"addedAt" db:"added_at"`
}

// MemberWithUser is a membership row joined with the member's profile.
type MemberWithUser struct {
	BoardMember
	Email string `json:"email"`
	Name  string `json:"name"`
}

type AddMemberRequest struct {
	UserID uuid.UUID `json:"userId" validate:"required"`
	Role   Role      `json:"role" validate:"required,oneof=admin editor viewer"`
}

func (r *AddMemberRequest) Validate() error {
	return validate.Struct(r)
}

type UpdateMemberRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=admin editor viewer"`
}

func (r *UpdateMemberRoleRequest) Validate() error {
	return validate.Struct(r)
}

type TransferOwnershipRequest struct {
	NewOwnerID uuid.UUID `json:"newOwnerId" validate:"required"`
}

func (r *TransferOwnershipRequest) Validate() error {
	return validate.Struct(r)
}
