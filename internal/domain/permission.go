package domain

// Permission names one board capability.
type Permission string

const (
	PermView          Permission = "canView"
	PermCreateTasks   Permission = "canCreateTasks"
	PermEditTasks     Permission = "canEditTasks"
	PermDeleteTasks   Permission = "canDeleteTasks"
	PermEditBoard     Permission = "canEditBoard"
	PermManageMembers Permission = "canManageMembers"
	PermDeleteBoard   Permission = "canDeleteBoard"
)

// AllPermissions lists every capability in matrix column order.
func AllPermissions() []Permission {
	return []Permission{
		PermView,
		PermCreateTasks,
		PermEditTasks,
		PermDeleteTasks,
		PermEditBoard,
		PermManageMembers,
		PermDeleteBoard,
	}
}

func (p Permission) IsValid() bool {
	switch p {
	case PermView, PermCreateTasks, PermEditTasks, PermDeleteTasks,
		PermEditBoard, PermManageMembers, PermDeleteBoard:
		return true
	default:
		return false
	}
}

// PermissionSet is the capability set of a role.
type PermissionSet struct {
	CanView          bool `json:"canView"`
	CanCreateTasks   bool `json:"canCreateTasks"`
	CanEditTasks     bool `json:"canEditTasks"`
	CanDeleteTasks   bool `json:"canDeleteTasks"`
	CanEditBoard     bool `json:"canEditBoard"`
	CanManageMembers bool `json:"canManageMembers"`
	CanDeleteBoard   bool `json:"canDeleteBoard"`
}

// Has reports whether the set grants p. Unknown permissions are never granted.
func (s PermissionSet) Has(p Permission) bool {
	switch p {
	case PermView:
		return s.CanView
	case PermCreateTasks:
		return s.CanCreateTasks
	case PermEditTasks:
		return s.CanEditTasks
	case PermDeleteTasks:
		return s.CanDeleteTasks
	case PermEditBoard:
		return s.CanEditBoard
	case PermManageMembers:
		return s.CanManageMembers
	case PermDeleteBoard:
		return s.CanDeleteBoard
	default:
		return false
	}
}

// PermissionsFor is the single source of truth for what a role may do.
//
// | role   | view | create | edit | delete | edit board | manage members | delete board |
// |--------|------|--------|------|--------|------------|----------------|--------------|
// | owner  | ✅   | ✅     | ✅   | ✅     | ✅         | ✅             | ✅           |
// | admin  | ✅   | ✅     | ✅   | ✅     | ✅         | ✅             | ❌           |
// | editor | ✅   | ✅     | ✅   | ✅     | ❌         | ❌             | ❌           |
// | viewer | ✅   | ❌     | ❌   | ❌     | ❌         | ❌             | ❌           |
//
// Unknown roles get the empty set.
func PermissionsFor(role Role) PermissionSet {
	switch role {
	case RoleOwner:
		return PermissionSet{
			CanView: true, CanCreateTasks: true, CanEditTasks: true, CanDeleteTasks: true,
			CanEditBoard: true, CanManageMembers: true, CanDeleteBoard: true,
		}
	case RoleAdmin:
		return PermissionSet{
			CanView: true, CanCreateTasks: true, CanEditTasks: true, CanDeleteTasks: true,
			CanEditBoard: true, CanManageMembers: true,
		}
	case RoleEditor:
		return PermissionSet{
			CanView: true, CanCreateTasks: true, CanEditTasks: true, CanDeleteTasks: true,
		}
	case RoleViewer:
		return PermissionSet{CanView: true}
	default:
		return PermissionSet{}
	}
}
