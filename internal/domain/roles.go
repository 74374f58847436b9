package domain

import "strings"

type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleOwner      Role = "OWNER"
	RoleManager    Role = "MANAGER"
	RoleWaiter     Role = "WAITER"
	RoleKitchen    Role = "KITCHEN"
	// RoleCustomer is never persisted; it is carried by table-session tokens only.
	RoleCustomer Role = "CUSTOMER"
)

type Permission string

const (
	PermRestaurantManage Permission = "restaurant:manage"
	PermRestaurantRead   Permission = "restaurant:read"
	PermRestaurantWrite  Permission = "restaurant:write"
	PermStaffRead        Permission = "staff:read"
	PermStaffWrite       Permission = "staff:write"
	PermTableRead        Permission = "table:read"
	PermTableWrite       Permission = "table:write"
	PermMenuRead         Permission = "menu:read"
	PermMenuWrite        Permission = "menu:write"
	PermOrderRead        Permission = "order:read"
	PermOrderUpdate      Permission = "order:update"
	PermOrderArchive     Permission = "order:archive"
	PermAuditRead        Permission = "audit:read"
)

var rolePermissions = map[Role]map[Permission]struct{}{
	RoleOwner: permissionSet(
		PermRestaurantRead, PermRestaurantWrite,
		PermStaffRead, PermStaffWrite,
		PermTableRead, PermTableWrite,
		PermMenuRead, PermMenuWrite,
		PermOrderRead, PermOrderUpdate, PermOrderArchive,
		PermAuditRead,
	),
	RoleManager: permissionSet(
		PermRestaurantRead,
		PermStaffRead, PermStaffWrite,
		PermTableRead, PermTableWrite,
		PermMenuRead, PermMenuWrite,
		PermOrderRead, PermOrderUpdate, PermOrderArchive,
		PermAuditRead,
	),
	RoleWaiter: permissionSet(
		PermRestaurantRead,
		PermTableRead,
		PermMenuRead,
		PermOrderRead, PermOrderUpdate,
	),
	RoleKitchen: permissionSet(
		PermRestaurantRead,
		PermMenuRead,
		PermOrderRead, PermOrderUpdate,
	),
}

func permissionSet(perms ...Permission) map[Permission]struct{} {
	out := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		out[p] = struct{}{}
	}
	return out
}

// ParseRole normalises user input into a known staff role.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleSuperAdmin, RoleOwner, RoleManager, RoleWaiter, RoleKitchen:
		return role, true
	default:
		return "", false
	}
}

// HasPermission reports whether role grants perm. SUPER_ADMIN holds every permission.
func (r Role) HasPermission(perm Permission) bool {
	if r == RoleSuperAdmin {
		return true
	}
	perms, ok := rolePermissions[r]
	if !ok {
		return false
	}
	_, ok = perms[perm]
	return ok
}

// CanManageRole reports whether an actor with role r may create or edit staff holding target.
func (r Role) CanManageRole(target Role) bool {
	switch r {
	case RoleSuperAdmin:
		return target != RoleCustomer
	case RoleOwner:
		return target == RoleOwner || target == RoleManager || target == RoleWaiter || target == RoleKitchen
	case RoleManager:
		return target == RoleWaiter || target == RoleKitchen
	default:
		return false
	}
}

func (r Role) IsStaff() bool {
	switch r {
	case RoleSuperAdmin, RoleOwner, RoleManager, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}
