package rbac

import "sort"

// RoleName identifies a role. The superadmin role is distinguished: it
// bypasses granular permission checks entirely.
type RoleName string

// Built-in roles created by the seed tool.
const (
	RoleSuperadmin RoleName = "superadmin"
	RoleAdmin      RoleName = "admin"
	RoleUser       RoleName = "user"
)

// IsSuperadmin reports whether the role bypasses permission checks.
func (r RoleName) IsSuperadmin() bool {
	return r == RoleSuperadmin
}

// Role is a named bundle of permissions shared by many users.
type Role struct {
	ID          int64
	Name        RoleName
	Description string
}

// Module is a named namespace grouping permissions.
type Module struct {
	ID          int64
	Name        string
	Permissions []Permission
}

// Permission is an action scoped to one module. Consumers always check
// permissions by the combined "<module>:<name>" key.
type Permission struct {
	ID          int64
	Name        string
	Module      string
	Description string
}

// Key returns the combined permission key, e.g. "users:read".
func (p Permission) Key() string {
	return p.Module + ":" + p.Name
}

// PermissionSet is a deduplicated set of permission keys.
type PermissionSet map[string]struct{}

// NewPermissionSet builds a set from permission keys.
func NewPermissionSet(keys ...string) PermissionSet {
	set := make(PermissionSet, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		set[k] = struct{}{}
	}
	return set
}

// Effective flattens role grants and per-user overrides into the effective
// permission set. It is a plain union: overrides add to the role grants, they
// never subtract. Empty inputs yield the empty set.
func Effective(rolePerms, overrides []Permission) PermissionSet {
	set := make(PermissionSet, len(rolePerms)+len(overrides))
	for _, p := range rolePerms {
		set[p.Key()] = struct{}{}
	}
	for _, p := range overrides {
		set[p.Key()] = struct{}{}
	}
	return set
}

// Has reports whether the set contains the permission key.
func (s PermissionSet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// HasAll reports whether every key is in the set.
func (s PermissionSet) HasAll(keys []string) bool {
	for _, k := range keys {
		if !s.Has(k) {
			return false
		}
	}
	return true
}

// HasAny reports whether at least one key is in the set.
func (s PermissionSet) HasAny(keys []string) bool {
	for _, k := range keys {
		if s.Has(k) {
			return true
		}
	}
	return false
}

// Missing returns the keys absent from the set, preserving input order.
func (s PermissionSet) Missing(keys []string) []string {
	var missing []string
	for _, k := range keys {
		if !s.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

// Keys returns the sorted permission keys for stable payloads.
func (s PermissionSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
