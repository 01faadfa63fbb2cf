package service

import (
	"errors"
	"fmt"

	"boardkit-api/internal/domain"
)

// Error kinds. Every error returned by this package matches exactly one of
// them through errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidTarget = errors.New("invalid target")
	ErrConflict      = errors.New("conflict")
	ErrValidation    = errors.New("validation failed")
)

var (
	ErrBoardNotFound      = fmt.Errorf("%w: board", ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user", ErrNotFound)
	ErrMemberNotFound     = fmt.Errorf("%w: board member", ErrNotFound)
	ErrInvitationNotFound = fmt.Errorf("%w: invitation", ErrNotFound)

	// ErrNoAccess means the caller has no role on the board at all.
	ErrNoAccess = fmt.Errorf("%w: no access to board", ErrForbidden)
	// ErrMissingPermission means the caller has a role that lacks a capability.
	// Concrete failures are *PermissionError.
	ErrMissingPermission = fmt.Errorf("%w: missing permission", ErrForbidden)
	ErrNotOwner          = fmt.Errorf("%w: only the board owner may do this", ErrForbidden)
	ErrOwnerImmutable    = fmt.Errorf("%w: owner role can only change through ownership transfer", ErrForbidden)
	ErrAdminRequired     = fmt.Errorf("%w: only owners and admins may grant or revoke admin", ErrForbidden)

	ErrTransferToSelf    = fmt.Errorf("%w: cannot transfer ownership to yourself", ErrInvalidTarget)
	ErrCannotRemoveOwner = fmt.Errorf("%w: the board owner cannot be removed", ErrInvalidTarget)
	ErrCannotInviteOwner = fmt.Errorf("%w: the board owner cannot be invited", ErrInvalidTarget)
	ErrCannotAddOwner    = fmt.Errorf("%w: the board owner is already a member", ErrInvalidTarget)

	ErrInvitationConflict = fmt.Errorf("%w: an active invitation already exists for this email", ErrConflict)
	ErrOwnershipChanged   = fmt.Errorf("%w: board ownership changed concurrently", ErrConflict)

	ErrInvalidRole   = fmt.Errorf("%w: role cannot be assigned", ErrValidation)
	ErrInvalidAction = fmt.Errorf("%w: action must be accept or decline", ErrValidation)
)

// PermissionError reports a caller with board access but without the
// capability an operation needs.
type PermissionError struct {
	Permission domain.Permission
	Role       domain.Role
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("role %q lacks permission %q", e.Role, e.Permission)
}

func (e *PermissionError) Unwrap() error {
	return ErrMissingPermission
}
