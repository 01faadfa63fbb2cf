package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Visibility controls access for callers without a membership row.
type Visibility string

const (
	VisibilityPrivate   Visibility = "private"
	VisibilityWorkspace Visibility = "workspace"
	VisibilityPublic    Visibility = "public"
)

func (v Visibility) String() string {
	return string(v)
}

func (v Visibility) IsValid() bool {
	switch v {
	case VisibilityPrivate, VisibilityWorkspace, VisibilityPublic:
		return true
	default:
		return false
	}
}

// ImpliedRole is the role a non-member gets from visibility alone.
// ok is false for private boards.
func (v Visibility) ImpliedRole() (role Role, ok bool) {
	switch v {
	case VisibilityWorkspace, VisibilityPublic:
		return RoleViewer, true
	default:
		return "", false
	}
}

// Board has exactly one owner. Name, description and icon are opaque to
// access control.
type Board struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	OwnerID     uuid.UUID  `json:"ownerId" db:"owner_id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description,omitempty" db:"description"`
	Icon        *string    `json:"icon,omitempty" db:"icon"`
	Visibility  Visibility `json:"visibility" db:"visibility"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// CreateBoardRequest is the body of POST /v1/boards. Visibility defaults to private.
type CreateBoardRequest struct {
	Name        string     `json:"name" validate:"required,min=1,max=120"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	Icon        *string    `json:"icon,omitempty" validate:"omitempty,max=64"`
	Visibility  Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=private workspace public"`
}

func (r *CreateBoardRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Visibility == "" {
		r.Visibility = VisibilityPrivate
	}
	return validate.Struct(r)
}

// UpdateBoardRequest is a partial update; nil fields are left unchanged.
type UpdateBoardRequest struct {
	Name        *string     `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string     `json:"description,omitempty" validate:"omitempty,max=2000"`
	Icon        *string     `json:"icon,omitempty" validate:"omitempty,max=64"`
	Visibility  *Visibility `json:"visibility,omitempty" validate:"omitempty,oneof=private workspace public"`
}

func (r *UpdateBoardRequest) Validate() error {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		r.Name = &trimmed
	}
	return validate.Struct(r)
}

// IsEmpty reports whether the patch changes nothing.
func (r *UpdateBoardRequest) IsEmpty() bool {
	return r.Name == nil && r.Description == nil && r.Icon == nil && r.Visibility == nil
}

// Apply copies the non-nil patch fields onto b.
func (r *UpdateBoardRequest) Apply(b *Board) {
	if r.Name != nil {
		b.Name = *r.Name
	}
	if r.Description != nil {
		b.Description = r.Description
	}
	if r.Icon != nil {
		b.Icon = r.Icon
	}
	if r.Visibility != nil {
		b.Visibility = *r.Visibility
	}
}

// BoardWithAccess pairs a board with the caller's access decision.
type BoardWithAccess struct {
	Board
	Access AccessResult `json:"access"`
}
