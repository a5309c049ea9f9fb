// Package role defines the closed set of roles and the authenticated
// identity carried through a request.
package role

// Role is one of the fixed roles known to the system.
type Role string

const (
	Admin     Role = "admin"
	User      Role = "user"
	Moderator Role = "moderator"
	Viewer    Role = "viewer"
)

// All returns every role in the system, in seed order.
func All() []Role {
	return []Role{Admin, User, Moderator, Viewer}
}

// Parse returns the Role for name and true, or "" and false if name is not
// a known role.
func Parse(name string) (Role, bool) {
	switch Role(name) {
	case Admin, User, Moderator, Viewer:
		return Role(name), true
	}
	return "", false
}

// Names converts roles to their string names.
func Names(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// FromNames converts role names to Roles, dropping unknown names.
func FromNames(names []string) []Role {
	out := make([]Role, 0, len(names))
	for _, n := range names {
		if r, ok := Parse(n); ok {
			out = append(out, r)
		}
	}
	return out
}

// Identity is the authenticated caller attached to the request context after
// the auth and session guards pass. It is resolved once and not mutated.
type Identity struct {
	UserID       string
	Email        string
	Roles        []Role
	SessionID    string
	SessionToken string
}

// HasRole reports whether the identity holds r.
func (id *Identity) HasRole(r Role) bool {
	for _, have := range id.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the identity holds at least one of roles.
func (id *Identity) HasAnyRole(roles ...Role) bool {
	for _, r := range roles {
		if id.HasRole(r) {
			return true
		}
	}
	return false
}
