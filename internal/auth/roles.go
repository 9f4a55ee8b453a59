package auth

import "github.com/travelos/crm/internal/domain"

// roleRank orders roles so privilege checks reduce to an integer compare.
var roleRank = map[domain.Role]int{
	domain.RoleAgencyEmployee: 10,
	domain.RoleAgencyAdmin:    50,
	domain.RoleSuperAdmin:     100,
}

// Rank returns the privilege rank of a role; unknown roles rank zero.
func Rank(role domain.Role) int {
	return roleRank[role]
}

// AtLeast reports whether role carries at least the privilege of required.
func AtLeast(role, required domain.Role) bool {
	return Rank(role) >= Rank(required)
}

// HomePath returns the area a role lands on after login; it doubles as the
// redirect target when a caller hits a route outside their role.
func HomePath(role domain.Role) string {
	switch role {
	case domain.RoleSuperAdmin:
		return "/super-admin"
	case domain.RoleAgencyAdmin:
		return "/agency-admin"
	default:
		return "/employee"
	}
}
