package authz

// Config carries the static authorization policy. The privileged-group set
// and super-role name are injected here so tests can substitute their own;
// they are never read from a package-level variable.
type Config struct {
	SuperRole        string
	PrivilegedGroups []string
}

// Resolver is the canonical server-side decision procedure. It is a pure
// function of (snapshot, capability) and never returns an error: unknown
// capabilities and nil snapshots resolve to false.
//
// Members of a privileged group are granted every capability by default and
// opt out per capability via negative direct grants. This default-allow is a
// deliberate policy decision, not an oversight; narrowing it silently would
// break parity with the client mirror.
type Resolver struct {
	superRole  string
	privileged map[string]struct{}
}

func NewResolver(cfg Config) *Resolver {
	privileged := make(map[string]struct{}, len(cfg.PrivilegedGroups))
	for _, g := range cfg.PrivilegedGroups {
		privileged[g] = struct{}{}
	}
	return &Resolver{superRole: cfg.SuperRole, privileged: privileged}
}

// Resolve answers whether the principal described by snap holds capability.
// The three checks run in a fixed order and short-circuit:
//  1. super-role: unconditional allow
//  2. privileged group: allow unless a negative direct grant names capability
//  3. union of role permissions and positive direct grants
func (r *Resolver) Resolve(snap *Snapshot, capability string) bool {
	if snap == nil {
		return false
	}
	for _, role := range snap.RoleNames {
		if role == r.superRole {
			return true
		}
	}
	if _, ok := r.privileged[snap.GroupName]; ok {
		for _, g := range snap.DirectGrants {
			if g.Negative && g.Name == capability {
				return false
			}
		}
		return true
	}
	for _, p := range snap.RolePermissions {
		if p == capability {
			return true
		}
	}
	for _, g := range snap.DirectGrants {
		if !g.Negative && g.Name == capability {
			return true
		}
	}
	return false
}

// PrivilegedGroup reports whether name belongs to the privileged-group set.
// The subscription broker uses this for admin-topic authorization.
func (r *Resolver) PrivilegedGroup(name string) bool {
	_, ok := r.privileged[name]
	return ok
}

// SuperRole returns the configured super-role name.
func (r *Resolver) SuperRole() string { return r.superRole }

// Privileged reports whether the principal holds the super-role or belongs
// to a privileged group. Admin-topic subscription authorization reuses this
// rather than growing a second mechanism.
func (r *Resolver) Privileged(snap *Snapshot) bool {
	if snap == nil {
		return false
	}
	for _, role := range snap.RoleNames {
		if role == r.superRole {
			return true
		}
	}
	_, ok := r.privileged[snap.GroupName]
	return ok
}
