package workflow

import (
	"github.com/garyjia/cineexpense/internal/domain/entity"
	domainwf "github.com/garyjia/cineexpense/internal/domain/workflow"
)

// requiredRoles maps each reachable target status to the role allowed to move an expense there
var requiredRoles = map[domainwf.ExpenseStatus]entity.Role{
	domainwf.StatusSubmitted:        entity.RoleSupervisor,
	domainwf.StatusManagerApproved:  entity.RoleManager,
	domainwf.StatusManagerReturned:  entity.RoleManager,
	domainwf.StatusManagerRejected:  entity.RoleManager,
	domainwf.StatusAccountsApproved: entity.RoleAccounts,
	domainwf.StatusAccountsReturned: entity.RoleAccounts,
	domainwf.StatusPaid:             entity.RoleAccounts,
}

// RequiredRole returns the role that may move an expense to target
func RequiredRole(target domainwf.ExpenseStatus) (entity.Role, bool) {
	role, ok := requiredRoles[target]
	return role, ok
}

// RequiresComment reports whether moving to target needs a reviewer comment
func RequiresComment(target domainwf.ExpenseStatus) bool {
	switch target {
	case domainwf.StatusManagerReturned, domainwf.StatusManagerRejected, domainwf.StatusAccountsReturned:
		return true
	default:
		return false
	}
}

// Audit actions
const (
	actionProducerOverride = "budget:producer-override"
)

func expenseAction(from, to domainwf.ExpenseStatus) string {
	return "status:" + from.String() + "->" + to.String()
}

func productionAction(from, to domainwf.ProductionStatus) string {
	return "status_changed:" + from.String() + "->" + to.String()
}
