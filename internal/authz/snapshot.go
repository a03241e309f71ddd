package authz

import "github.com/orgstack/identity-admin/internal/domain"

// Grant is one direct user↔permission association. Negative=true is an
// explicit revocation rather than a grant.
type Grant struct {
	Name     string `json:"name"`
	Negative bool   `json:"negative"`
}

// Snapshot is the minimal set of facts needed to resolve any capability for
// one principal. Both the server resolver and the client mirror operate on
// this shape only; nothing else about the principal may influence a decision.
type Snapshot struct {
	UserID          uint     `json:"user_id"`
	RoleNames       []string `json:"role_names"`
	GroupID         uint     `json:"group_id"`
	GroupName       string   `json:"group_name"`
	RolePermissions []string `json:"role_permissions"`
	DirectGrants    []Grant  `json:"direct_grants"`

	// PermissionsByRole attributes each role-granted permission to the role
	// that carries it. The mirror needs the attribution so a role event can
	// replace exactly that role's slice; RolePermissions stays the flat
	// union the server resolver reads.
	PermissionsByRole map[string][]string `json:"permissions_by_role,omitempty"`
}

// SnapshotForUser flattens a loaded user (roles with permissions, group and
// direct grants preloaded) into resolver input.
func SnapshotForUser(u *domain.User) *Snapshot {
	if u == nil {
		return nil
	}
	snap := &Snapshot{UserID: u.ID, GroupName: u.GroupName()}
	if u.GroupID != nil {
		snap.GroupID = *u.GroupID
	}
	permSet := make(map[string]struct{})
	if len(u.Roles) > 0 {
		snap.PermissionsByRole = make(map[string][]string, len(u.Roles))
	}
	for _, role := range u.Roles {
		snap.RoleNames = append(snap.RoleNames, role.Name)
		perms := make([]string, 0, len(role.Permissions))
		for _, p := range role.Permissions {
			perms = append(perms, p.Name)
			if _, ok := permSet[p.Name]; ok {
				continue
			}
			permSet[p.Name] = struct{}{}
			snap.RolePermissions = append(snap.RolePermissions, p.Name)
		}
		snap.PermissionsByRole[role.Name] = perms
	}
	for _, g := range u.DirectGrants {
		snap.DirectGrants = append(snap.DirectGrants, Grant{Name: g.Permission.Name, Negative: g.Negative})
	}
	return snap
}
