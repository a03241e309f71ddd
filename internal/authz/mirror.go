package authz

import (
	"encoding/json"
	"sync"
)

// Slice sync states. Every slice starts stale and becomes synced on the
// first authoritative seed or on the first event that replaces it.
const (
	SliceStale  = "stale"
	SliceSynced = "synced"
)

// Mirror is the client-side copy of the resolver. It keeps a cached snapshot
// for one principal and re-evaluates authorization locally, without a server
// round trip. Events always carry full entity snapshots, so applying one is
// a replace, never a merge; duplicate or re-ordered deliveries converge on
// the same state.
//
// The decision procedure is intentionally a second implementation of the
// server algorithm, not a shared one; the contract tests in
// resolver_test.go hold the two to the same fixture table.
type Mirror struct {
	mu sync.Mutex

	superRole  string
	privileged map[string]struct{}

	userID    uint
	groupID   uint
	groupName string
	rolePerms map[string][]string

	directGrants []Grant

	roleState  string
	groupState string
	grantState string

	memo map[string]bool
}

func NewMirror(cfg Config, userID uint) *Mirror {
	privileged := make(map[string]struct{}, len(cfg.PrivilegedGroups))
	for _, g := range cfg.PrivilegedGroups {
		privileged[g] = struct{}{}
	}
	return &Mirror{
		superRole:  cfg.SuperRole,
		privileged: privileged,
		userID:     userID,
		rolePerms:  make(map[string][]string),
		roleState:  SliceStale,
		groupState: SliceStale,
		grantState: SliceStale,
		memo:       make(map[string]bool),
	}
}

// Seed installs an authoritative snapshot and marks every slice synced.
func (m *Mirror) Seed(snap *Snapshot) {
	if snap == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rolePerms = make(map[string][]string, len(snap.RoleNames))
	for _, role := range snap.RoleNames {
		m.rolePerms[role] = append([]string(nil), snap.PermissionsByRole[role]...)
	}
	// A seed without per-role attribution carries only the flat union; park
	// it in a synthetic bucket until a role event replaces it.
	if snap.PermissionsByRole == nil && len(snap.RolePermissions) > 0 {
		m.rolePerms[""] = append([]string(nil), snap.RolePermissions...)
	}
	m.groupID = snap.GroupID
	m.groupName = snap.GroupName
	m.directGrants = append([]Grant(nil), snap.DirectGrants...)
	m.roleState = SliceSynced
	m.groupState = SliceSynced
	m.grantState = SliceSynced
	m.memo = make(map[string]bool)
}

// Event names the mirror reacts to. They match the notifier's wire contract.
const (
	EventRolePermissionsUpdated = "role.permissions.updated"
	EventRoleDeleted            = "role.deleted"
	EventGroupUpdated           = "group.updated"
	EventGroupDeleted           = "group.deleted"
	EventUserUpdated            = "user.updated"
	EventUserGrantsUpdated      = "user.grants.updated"
)

type rolePayload struct {
	Role struct {
		Name        string `json:"name"`
		Permissions []struct {
			Name string `json:"name"`
		} `json:"permissions"`
	} `json:"role"`
}

type groupPayload struct {
	Group struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	} `json:"group"`
}

type userPayload struct {
	User struct {
		ID           uint     `json:"id"`
		GroupID      uint     `json:"group_id"`
		GroupName    string   `json:"group_name"`
		RoleNames    []string `json:"role_names"`
		DirectGrants []Grant  `json:"direct_grants"`
	} `json:"user"`
}

// ApplyEvent updates the cached snapshot from a change event. Events that do
// not concern this principal are ignored. Returns true when a slice changed.
func (m *Mirror) ApplyEvent(event string, payload []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch event {
	case EventRolePermissionsUpdated:
		var p rolePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		if _, held := m.rolePerms[p.Role.Name]; !held {
			return false
		}
		perms := make([]string, 0, len(p.Role.Permissions))
		for _, perm := range p.Role.Permissions {
			perms = append(perms, perm.Name)
		}
		m.rolePerms[p.Role.Name] = perms
		// The event is authoritative for role state; a union bucket left
		// over from an unattributed seed must not keep resolving.
		delete(m.rolePerms, "")
		m.roleState = SliceSynced
		m.memo = make(map[string]bool)
		return true

	case EventRoleDeleted:
		var p rolePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		if _, held := m.rolePerms[p.Role.Name]; !held {
			return false
		}
		delete(m.rolePerms, p.Role.Name)
		delete(m.rolePerms, "")
		m.roleState = SliceSynced
		m.memo = make(map[string]bool)
		return true

	case EventGroupUpdated:
		var p groupPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		if m.groupID == 0 || p.Group.ID != m.groupID {
			return false
		}
		m.groupName = p.Group.Name
		m.groupState = SliceSynced
		m.memo = make(map[string]bool)
		return true

	case EventGroupDeleted:
		var p groupPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		if m.groupID == 0 || p.Group.ID != m.groupID {
			return false
		}
		m.groupID = 0
		m.groupName = ""
		m.groupState = SliceSynced
		m.memo = make(map[string]bool)
		return true

	case EventUserUpdated, EventUserGrantsUpdated:
		var p userPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return false
		}
		if p.User.ID != m.userID {
			return false
		}
		held := make(map[string][]string, len(p.User.RoleNames))
		for _, role := range p.User.RoleNames {
			if perms, ok := m.rolePerms[role]; ok {
				held[role] = perms
			} else {
				held[role] = nil
			}
		}
		if union, ok := m.rolePerms[""]; ok {
			held[""] = union
		}
		m.rolePerms = held
		m.groupID = p.User.GroupID
		m.groupName = p.User.GroupName
		m.directGrants = append([]Grant(nil), p.User.DirectGrants...)
		m.groupState = SliceSynced
		m.grantState = SliceSynced
		m.roleState = SliceSynced
		m.memo = make(map[string]bool)
		return true
	}
	return false
}

// Resolve evaluates capability against the cached snapshot. The second
// result reports whether every slice the decision depends on is synced; a
// caller must not trust the answer while it is false without having first
// attempted a fetch.
func (m *Mirror) Resolve(capability string) (allowed, synced bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	synced = m.roleState == SliceSynced && m.groupState == SliceSynced && m.grantState == SliceSynced

	if cached, ok := m.memo[capability]; ok {
		return cached, synced
	}

	allowed = m.resolveLocked(capability)
	m.memo[capability] = allowed
	return allowed, synced
}

func (m *Mirror) resolveLocked(capability string) bool {
	for role := range m.rolePerms {
		if role == m.superRole {
			return true
		}
	}
	if _, ok := m.privileged[m.groupName]; ok {
		for _, g := range m.directGrants {
			if g.Negative && g.Name == capability {
				return false
			}
		}
		return true
	}
	for _, perms := range m.rolePerms {
		for _, p := range perms {
			if p == capability {
				return true
			}
		}
	}
	for _, g := range m.directGrants {
		if !g.Negative && g.Name == capability {
			return true
		}
	}
	return false
}

// Snapshot rebuilds resolver input from the cached slices, mainly for the
// server/mirror contract tests.
func (m *Mirror) Snapshot() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := &Snapshot{UserID: m.userID, GroupID: m.groupID, GroupName: m.groupName}
	seen := make(map[string]struct{})
	for role, perms := range m.rolePerms {
		if role != "" {
			snap.RoleNames = append(snap.RoleNames, role)
		}
		for _, p := range perms {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			snap.RolePermissions = append(snap.RolePermissions, p)
		}
	}
	snap.DirectGrants = append([]Grant(nil), m.directGrants...)
	return snap
}
