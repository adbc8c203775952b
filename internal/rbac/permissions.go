package rbac

// Core permission keys, always "<module>:<permission>".
const (
	PermUsersRead   = "users:read"
	PermUsersWrite  = "users:write"
	PermUsersDelete = "users:delete"

	PermAuthLogin   = "auth:login"
	PermAuthLogout  = "auth:logout"
	PermAuthRefresh = "auth:refresh"

	PermAdminManageUsers = "admin:manage_users"
	PermAdminManageRoles = "admin:manage_roles"
)

// CoreScopes lists every permission key the seed tool provisions.
func CoreScopes() []string {
	return []string{
		PermUsersRead,
		PermUsersWrite,
		PermUsersDelete,
		PermAuthLogin,
		PermAuthLogout,
		PermAuthRefresh,
		PermAdminManageUsers,
		PermAdminManageRoles,
	}
}
