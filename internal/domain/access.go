package domain

// AccessSource records which signal produced an access decision.
type AccessSource string

const (
	AccessSourceNone       AccessSource = "none"
	AccessSourceOwner      AccessSource = "owner"
	AccessSourceMember     AccessSource = "member"
	AccessSourceVisibility AccessSource = "visibility"
)

// AccessResult is derived per request from board, membership and caller.
// It is never stored. Role and Permissions are empty when HasAccess is false.
type AccessResult struct {
	HasAccess   bool           `json:"hasAccess"`
	Role        Role           `json:"role,omitempty"`
	Permissions *PermissionSet `json:"permissions"`
	IsOwner     bool           `json:"isOwner"`
	Source      AccessSource   `json:"-"`
}

// NoAccess is the decision for missing boards and unrelated callers.
func NoAccess() AccessResult {
	return AccessResult{Source: AccessSourceNone}
}

// Granted builds a positive decision with the role's permission set.
func Granted(role Role, source AccessSource) AccessResult {
	perms := PermissionsFor(role)
	return AccessResult{
		HasAccess:   true,
		Role:        role,
		Permissions: &perms,
		IsOwner:     source == AccessSourceOwner,
		Source:      source,
	}
}

// Can reports whether the decision grants p.
func (a AccessResult) Can(p Permission) bool {
	return a.HasAccess && a.Permissions != nil && a.Permissions.Has(p)
}
