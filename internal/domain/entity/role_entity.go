package entity

import "fmt"

// Role is the authorization role of a user. It is fixed at creation.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// ParseRole maps a stored or claimed role name back to a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }

// IsAdmin reports whether r grants administrative access.
func (r Role) IsAdmin() bool { return r == RoleAdmin }
