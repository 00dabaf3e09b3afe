// Package authroles maps identity-provider groups onto dispatch roles.
package authroles

import (
	"strings"

	domainauth "github.com/target/dispatch-api/internal/domain/auth"
)

// StaticRoleMapper grants admin to members of AdminGroup and user to members
// of UserGroup. Everyone else is a guest. Group names compare case-insensitively.
type StaticRoleMapper struct {
	AdminGroup string
	UserGroup  string
}

// Map implements ports.RoleMapper.
func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	if hasGroup(groups, m.AdminGroup) {
		return domainauth.RoleAdmin
	}
	if hasGroup(groups, m.UserGroup) {
		return domainauth.RoleUser
	}
	return domainauth.RoleGuest
}

func hasGroup(groups []string, want string) bool {
	want = strings.TrimSpace(want)
	if want == "" {
		return false
	}
	for _, g := range groups {
		if strings.EqualFold(strings.TrimSpace(g), want) {
			return true
		}
	}
	return false
}
