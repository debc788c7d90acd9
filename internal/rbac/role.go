// Package rbac holds the role ladder and the permission catalog shared by
// every enforcement point.
package rbac

import (
	"errors"
	"strings"
)

// Role is a membership role inside an organization.
type Role string

const (
	RoleMember  Role = "MEMBER"  // Read access, status updates on own work
	RoleManager Role = "MANAGER" // Project/task management, invites
	RoleAdmin   Role = "ADMIN"   // Organization settings, member management
)

var ErrInvalidRole = errors.New("invalid_role")

// Rank returns the position of the role in the total order
// MEMBER(1) < MANAGER(2) < ADMIN(3). Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleMember:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Meets reports whether the role clears the required role.
func (r Role) Meets(required Role) bool {
	if !r.Valid() || !required.Valid() {
		return false
	}
	return r.Rank() >= required.Rank()
}

// ParseRole normalizes and validates a raw role string.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(raw)))
	if !role.Valid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// Roles lists all roles in ascending rank order.
func Roles() []Role {
	return []Role{RoleMember, RoleManager, RoleAdmin}
}
