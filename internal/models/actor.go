package models

type Actor struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// IsStaff reports whether the actor holds an oversight role.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

func ValidRole(role string) bool {
	switch role {
	case RoleMember, RoleStaff, RoleAdmin:
		return true
	}
	return false
}
