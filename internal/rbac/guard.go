package rbac

import (
	"github.com/aegis-iam/aegis/internal/shared"
)

// Requirement is the configuration of a permission guard: the permission keys
// a caller must hold and whether all of them or any one suffices.
type Requirement struct {
	Permissions []string
	Mode        shared.RequireMode
}

// Check evaluates the requirement against a caller's role and granted
// permission set. Superadmin bypasses the check regardless of granted rows.
// On failure it returns a *shared.PermissionError naming the missing
// permissions (all mode) or the full required list (any mode).
func (req Requirement) Check(role RoleName, granted PermissionSet) error {
	if len(req.Permissions) == 0 {
		return nil
	}
	if role.IsSuperadmin() {
		return nil
	}
	if req.Mode == shared.RequireAny {
		if granted.HasAny(req.Permissions) {
			return nil
		}
		return &shared.PermissionError{Mode: shared.RequireAny, Permissions: req.Permissions}
	}
	if missing := granted.Missing(req.Permissions); len(missing) > 0 {
		return &shared.PermissionError{Mode: shared.RequireAll, Permissions: missing}
	}
	return nil
}

// RoleRequirement is the configuration of a role guard: the roles allowed
// through.
type RoleRequirement struct {
	Roles []RoleName
}

// Check evaluates the role requirement. Unlike permission checks there is no
// superadmin bypass here; superadmin must be listed explicitly when wanted.
func (req RoleRequirement) Check(role RoleName) error {
	for _, allowed := range req.Roles {
		if role == allowed {
			return nil
		}
	}
	allowed := make([]string, len(req.Roles))
	for i, r := range req.Roles {
		allowed[i] = string(r)
	}
	return &shared.RoleError{Allowed: allowed}
}
