package auth

import (
	"fmt"
	"strings"
)

// Role is a rank in the caller hierarchy. Higher values include every
// permission of lower values.
type Role int

const (
	RoleGuest Role = iota
	RoleUser
	RolePremium
	RoleAdmin
	RoleSuperAdmin
)

// DefaultRole is what ParseRole returns for role names it does not know.
// An unrecognised role never grants more than anonymous access.
const DefaultRole = RoleGuest

var roleNames = map[string]Role{
	"guest":       RoleGuest,
	"user":        RoleUser,
	"premium":     RolePremium,
	"admin":       RoleAdmin,
	"super_admin": RoleSuperAdmin,
}

// ParseRoleStrict maps a wire role name to a Role and reports whether the
// name was recognised. Matching ignores case and surrounding spaces.
func ParseRoleStrict(s string) (Role, bool) {
	r, ok := roleNames[strings.ToLower(strings.TrimSpace(s))]
	return r, ok
}

// ParseRole is ParseRoleStrict with unknown names mapped to DefaultRole.
func ParseRole(s string) Role {
	if r, ok := ParseRoleStrict(s); ok {
		return r
	}
	return DefaultRole
}

// Satisfies reports whether a caller holding role has at least the
// required rank.
func Satisfies(role, required Role) bool {
	return role >= required
}

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleUser:
		return "user"
	case RolePremium:
		return "premium"
	case RoleAdmin:
		return "admin"
	case RoleSuperAdmin:
		return "super_admin"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	*r = ParseRole(string(text))
	return nil
}
