package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/travelos/crm/internal/domain"
)

func TestAtLeast(t *testing.T) {
	assert.True(t, AtLeast(domain.RoleSuperAdmin, domain.RoleAgencyAdmin))
	assert.True(t, AtLeast(domain.RoleAgencyAdmin, domain.RoleAgencyEmployee))
	assert.True(t, AtLeast(domain.RoleAgencyAdmin, domain.RoleAgencyAdmin))
	assert.False(t, AtLeast(domain.RoleAgencyEmployee, domain.RoleAgencyAdmin))
	assert.False(t, AtLeast(domain.RoleAgencyAdmin, domain.RoleSuperAdmin))
}

func TestRankUnknownRoleIsZero(t *testing.T) {
	assert.Equal(t, 0, Rank(domain.Role("INTRUDER")))
	assert.False(t, AtLeast(domain.Role("INTRUDER"), domain.RoleAgencyEmployee))
}

func TestHomePath(t *testing.T) {
	assert.Equal(t, "/super-admin", HomePath(domain.RoleSuperAdmin))
	assert.Equal(t, "/agency-admin", HomePath(domain.RoleAgencyAdmin))
	assert.Equal(t, "/employee", HomePath(domain.RoleAgencyEmployee))
	assert.Equal(t, "/employee", HomePath(domain.Role("")))
}
