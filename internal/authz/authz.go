// Package authz is the role matrix. Every function here is a pure predicate
// over an Actor; services turn a false into ErrForbidden.
package authz

// Role is a user's persisted role.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleOwner    Role = "OWNER"
	RoleManager  Role = "MANAGER"
	RoleEmployee Role = "EMPLOYEE"
)

// DefaultRole is what a user gets when the creator may not choose.
const DefaultRole = RoleEmployee

var ranks = map[Role]int{
	RoleEmployee: 1,
	RoleManager:  2,
	RoleOwner:    3,
	RoleAdmin:    4,
}

// Roles returns every role from most to least privileged.
func Roles() []Role {
	return []Role{RoleAdmin, RoleOwner, RoleManager, RoleEmployee}
}

func (r Role) Valid() bool {
	_, ok := ranks[r]
	return ok
}

// Actor is the authenticated caller.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by operator tooling that runs outside a user session.
var SystemActor = Actor{ID: "system", Role: RoleAdmin}

// AtLeast reports whether a's role is r or more privileged. Unknown roles
// never satisfy it.
func AtLeast(a Actor, r Role) bool {
	have, ok := ranks[a.Role]
	if !ok || a.ID == "" {
		return false
	}
	return have >= ranks[r]
}

func IsAdmin(a Actor) bool {
	return AtLeast(a, RoleAdmin)
}

// IsAdminOrOwner treats ADMIN and OWNER as equivalent.
func IsAdminOrOwner(a Actor) bool {
	return AtLeast(a, RoleOwner)
}

func IsAdminOrOwnerOrManager(a Actor) bool {
	return AtLeast(a, RoleManager)
}

// Scope restricts which rows an actor may see. The zero value denies everything.
type Scope struct {
	Unrestricted bool
	Column       string
	Value        string
}

// Allows reports whether a row whose scoped column holds v is visible.
func (s Scope) Allows(v string) bool {
	if s.Unrestricted {
		return true
	}
	return s.Column != "" && s.Value != "" && s.Value == v
}

// Denied reports whether the scope admits no rows at all.
func (s Scope) Denied() bool {
	return !s.Unrestricted && (s.Column == "" || s.Value == "")
}

func unrestricted() Scope {
	return Scope{Unrestricted: true}
}

func own(column string, a Actor) Scope {
	if !AtLeast(a, RoleEmployee) {
		return Scope{}
	}
	return Scope{Column: column, Value: a.ID}
}

// RegisterScope: ADMIN and OWNER see every register, everyone else only the
// registers they own.
func RegisterScope(a Actor) Scope {
	if IsAdminOrOwner(a) {
		return unrestricted()
	}
	return own("owner_id", a)
}

// TransactionScope: employees only see transactions booked against them.
func TransactionScope(a Actor) Scope {
	if IsAdminOrOwnerOrManager(a) {
		return unrestricted()
	}
	return own("worker_id", a)
}

// UserScope: employees only see themselves.
func UserScope(a Actor) Scope {
	if IsAdminOrOwnerOrManager(a) {
		return unrestricted()
	}
	return own("id", a)
}

func CanWriteRole(a Actor) bool {
	return IsAdminOrOwner(a)
}

func CanOverrideBalance(a Actor) bool {
	return IsAdminOrOwner(a)
}

// EffectiveRoleOnCreate returns the role a newly created user actually gets.
// Actors that may not assign roles silently produce employees.
func EffectiveRoleOnCreate(a Actor, requested Role) Role {
	if CanWriteRole(a) && requested.Valid() {
		return requested
	}
	return DefaultRole
}

// CanMutateLedger gates transaction create/update/delete, transfers and settlements.
// The register involved must additionally be inside RegisterScope.
func CanMutateLedger(a Actor) bool {
	return IsAdminOrOwnerOrManager(a)
}

func CanReconcile(a Actor) bool {
	return IsAdminOrOwner(a)
}

func CanDeactivateUser(a Actor) bool {
	return IsAdmin(a)
}

func CanManageUsers(a Actor) bool {
	return IsAdminOrOwnerOrManager(a)
}

func CanManageRegisters(a Actor) bool {
	return IsAdminOrOwner(a)
}

// CanManageCatalog gates creating and editing investments and other categories.
func CanManageCatalog(a Actor) bool {
	return IsAdminOrOwnerOrManager(a)
}

func CanDeleteCategory(a Actor) bool {
	return IsAdminOrOwner(a)
}
