package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-campus-auth"
	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected auth.UserRole
		ok       bool
	}{
		{name: "empty defaults to general public", input: "", expected: auth.RoleGeneralPublic, ok: true},
		{name: "student", input: "Student", expected: auth.RoleStudent, ok: true},
		{name: "staff", input: "Staff", expected: auth.RoleStaff, ok: true},
		{name: "admin", input: "Admin", expected: auth.RoleAdmin, ok: true},
		{name: "general public", input: "GeneralPublic", expected: auth.RoleGeneralPublic, ok: true},
		{name: "unknown role", input: "Wizard", ok: false},
		{name: "wrong casing is rejected", input: "student", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, ok := auth.ParseRole(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.expected, role)
			}
		})
	}
}

func TestIsValidRole(t *testing.T) {
	for _, role := range auth.GetAllRoles() {
		assert.True(t, auth.IsValidRole(role), "role %s should be valid", role)
	}
	assert.False(t, auth.IsValidRole("superuser"))
	assert.False(t, auth.IsValidRole(""))
}

func TestRoleIsAtLeast(t *testing.T) {
	assert.True(t, auth.RoleIsAtLeast(auth.RoleAdmin, auth.RoleStaff))
	assert.True(t, auth.RoleIsAtLeast(auth.RoleStaff, auth.RoleStaff))
	assert.False(t, auth.RoleIsAtLeast(auth.RoleStudent, auth.RoleStaff))
	assert.False(t, auth.RoleIsAtLeast("unknown", auth.RoleGeneralPublic))
	assert.False(t, auth.RoleIsAtLeast(auth.RoleAdmin, "unknown"))
}
