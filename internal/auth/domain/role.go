package domain

import "slices"

// Role is the account's authorization tier. Only supervisors may hold a TOTP
// secret.
type Role string

const (
	RoleUser       Role = "user"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Scopes granted to each role when issuing access tokens.
const (
	ScopeProfileRead = "profile:read"
	ScopeEventsRead  = "events:read"
	ScopeEventsWrite = "events:write"
	ScopeAdminRead   = "admin:read"
	ScopeAdminWrite  = "admin:write"
)

var roleScopes = map[Role][]string{
	RoleUser:       {ScopeProfileRead, ScopeEventsRead},
	RoleSupervisor: {ScopeProfileRead, ScopeEventsRead, ScopeEventsWrite, ScopeAdminRead, ScopeAdminWrite},
	RoleAdmin:      {ScopeProfileRead, ScopeEventsRead, ScopeEventsWrite, ScopeAdminRead, ScopeAdminWrite},
}

// ParseRole returns the role named s, or false when s is not a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleScopes[r]
	return r, ok
}

func (r Role) Valid() bool {
	_, ok := roleScopes[r]
	return ok
}

// Scopes returns a copy of the scopes granted to r.
func (r Role) Scopes() []string {
	return slices.Clone(roleScopes[r])
}

// HomePath is where the web client lands after login.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin, RoleSupervisor:
		return "/admin"
	default:
		return "/"
	}
}

// MayHoldSecret reports whether accounts with role r can carry a TOTP secret.
func (r Role) MayHoldSecret() bool {
	return r == RoleSupervisor
}
