package model

import "strings"

type UserRole string

const (
	UserRoleAdmin      UserRole = "ADMIN"
	UserRoleSupervisor UserRole = "SUPERVISOR"
	UserRoleDispatcher UserRole = "DISPATCHER"
	UserRoleOperator   UserRole = "OPERATOR"
	UserRoleViewer     UserRole = "VIEWER"
)

type Principal struct {
	UserID string
	Role   UserRole
	Token  string
}

// CanDispatch matches the roles the backend accepts for hauling writes.
func (p Principal) CanDispatch() bool {
	switch UserRole(strings.ToUpper(string(p.Role))) {
	case UserRoleAdmin, UserRoleSupervisor, UserRoleDispatcher:
		return true
	default:
		return false
	}
}
