package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	admin    = Actor{ID: "a", Role: RoleAdmin}
	owner    = Actor{ID: "o", Role: RoleOwner}
	manager  = Actor{ID: "m", Role: RoleManager}
	employee = Actor{ID: "e", Role: RoleEmployee}
	stranger = Actor{ID: "x", Role: "CONTRACTOR"}
	nobody   = Actor{}
)

func TestPredicates(t *testing.T) {
	cases := []struct {
		actor                 Actor
		admin, owner, manager bool
	}{
		{admin, true, true, true},
		{owner, false, true, true},
		{manager, false, false, true},
		{employee, false, false, false},
		{stranger, false, false, false},
		{nobody, false, false, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.actor.Role), func(t *testing.T) {
			assert.Equal(t, tc.admin, IsAdmin(tc.actor))
			assert.Equal(t, tc.owner, IsAdminOrOwner(tc.actor))
			assert.Equal(t, tc.manager, IsAdminOrOwnerOrManager(tc.actor))
		})
	}
}

func TestRegisterScope(t *testing.T) {
	assert.True(t, RegisterScope(admin).Unrestricted)
	assert.True(t, RegisterScope(owner).Unrestricted)

	s := RegisterScope(manager)
	assert.Equal(t, Scope{Column: "owner_id", Value: "m"}, s)
	assert.True(t, s.Allows("m"))
	assert.False(t, s.Allows("o"))

	assert.Equal(t, Scope{Column: "owner_id", Value: "e"}, RegisterScope(employee))
	assert.True(t, RegisterScope(stranger).Denied())
}

func TestTransactionScope(t *testing.T) {
	assert.True(t, TransactionScope(manager).Unrestricted)
	assert.Equal(t, Scope{Column: "worker_id", Value: "e"}, TransactionScope(employee))
	assert.True(t, TransactionScope(nobody).Denied())
}

func TestUserScope(t *testing.T) {
	assert.True(t, UserScope(owner).Unrestricted)
	assert.Equal(t, Scope{Column: "id", Value: "e"}, UserScope(employee))
}

func TestScope_ZeroValueDeniesEverything(t *testing.T) {
	var s Scope
	assert.True(t, s.Denied())
	assert.False(t, s.Allows(""))
	assert.False(t, s.Allows("anything"))
}

func TestEffectiveRoleOnCreate(t *testing.T) {
	assert.Equal(t, RoleManager, EffectiveRoleOnCreate(admin, RoleManager))
	assert.Equal(t, RoleOwner, EffectiveRoleOnCreate(owner, RoleOwner))
	assert.Equal(t, RoleEmployee, EffectiveRoleOnCreate(manager, RoleAdmin))
	assert.Equal(t, RoleEmployee, EffectiveRoleOnCreate(employee, RoleOwner))
	assert.Equal(t, RoleEmployee, EffectiveRoleOnCreate(admin, "SUPERUSER"))
}

func TestCapabilities(t *testing.T) {
	assert.True(t, CanWriteRole(owner))
	assert.False(t, CanWriteRole(manager))

	assert.True(t, CanOverrideBalance(admin))
	assert.False(t, CanOverrideBalance(manager))

	assert.True(t, CanMutateLedger(manager))
	assert.False(t, CanMutateLedger(employee))

	assert.True(t, CanReconcile(owner))
	assert.False(t, CanReconcile(manager))

	assert.True(t, CanDeactivateUser(admin))
	assert.False(t, CanDeactivateUser(owner))

	assert.True(t, CanManageCatalog(manager))
	assert.False(t, CanDeleteCategory(manager))
	assert.True(t, CanDeleteCategory(owner))
}
