package entity

import "strings"

// Role is the closed set of actor roles within a production
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleManager    Role = "MANAGER"
	RoleAccounts   Role = "ACCOUNTS"
	RoleProducer   Role = "PRODUCER"
)

// Roles lists every production role
var Roles = []Role{RoleAdmin, RoleSupervisor, RoleManager, RoleAccounts, RoleProducer}

var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleSupervisor: true,
	RoleManager:    true,
	RoleAccounts:   true,
	RoleProducer:   true,
}

// IsValid returns true if the role is one of the five production roles
func (r Role) IsValid() bool {
	return validRoles[r]
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// ParseRole normalizes case and returns false for unknown roles
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// PaymentMethod is how an approved expense was settled
type PaymentMethod string

const (
	PaymentMethodCash PaymentMethod = "cash"
	PaymentMethodBank PaymentMethod = "bank"
)

// IsValid returns true for cash or bank
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCash || m == PaymentMethodBank
}

// Entity types recorded on audit entries
const (
	AuditEntityExpense    = "expense"
	AuditEntityProduction = "production"
	AuditEntityDepartment = "department"
)
