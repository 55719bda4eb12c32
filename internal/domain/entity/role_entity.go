package entity

import "fmt"

// Role is the closed set of account roles. Only values declared here can be
// stored on a User; anything else is rejected by ParseRole.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
)

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleModerator:
		return RoleModerator, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string { return string(r) }
