package domain

import "time"

// Role enumerates system actors.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleSpecialist Role = "Specialist"
	RoleUser       Role = "User"
)

// ParseRole converts a stored or claimed role string into a Role.
func ParseRole(val string) (Role, bool) {
	switch Role(val) {
	case RoleAdmin, RoleSpecialist, RoleUser:
		return Role(val), true
	default:
		return "", false
	}
}

// IsStaff reports whether the role is created by an administrator.
func (r Role) IsStaff() bool {
	switch r {
	case RoleAdmin, RoleSpecialist:
		return true
	case RoleUser:
		return false
	default:
		return false
	}
}

// User is any actor of the system: customer, specialist or administrator.
type User struct {
	ID           int64
	NIC          string
	Name         string
	Email        *string
	PasswordHash string
	Role         Role
	Address      string
	Phone        string
	BackupPhone  string
	CreatedAt    time.Time
}
