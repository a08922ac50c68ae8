package value_objects

import "fmt"

// Role is a caller role. Owners are additionally scoped to their own owner key.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
	RoleConsumer Role = "consumer"
)

func NewRole(role string) (Role, error) {
	switch r := Role(role); r {
	case RoleAdmin, RoleOwner, RoleConsumer:
		return r, nil
	default:
		return "", fmt.Errorf("invalid role: %s", role)
	}
}

func (r Role) String() string {
	return string(r)
}
