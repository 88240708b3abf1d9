/*
authz.go - Centralized role-based authorization policy

PURPOSE:
  One policy table consulted by every mutating operation, enforced
  server-side. Handlers never compare roles inline; they ask the Authorizer.

POLICY SUMMARY:
  admin   everything
  doctor  clinical and billing writes (patients, cases, invoices, payments)
  helper  front-desk writes (patients, invoices, payments)
  patient read-only

  Destructive operations (soft delete of patients/cases, user management,
  treatment catalog / clinic settings) are admin-only.
*/
package clinic

// Action is a capability checked against the role policy.
type Action string

const (
	ActionWritePatient  Action = "patient:write"
	ActionDeletePatient Action = "patient:delete"
	ActionWriteCase     Action = "case:write"
	ActionDeleteCase    Action = "case:delete"
	ActionWriteInvoice  Action = "invoice:write"
	ActionRecordPayment Action = "invoice:pay"
	ActionManageCatalog Action = "catalog:manage"
	ActionManageUsers   Action = "users:manage"
)

// Authorizer decides whether a role may perform an action.
type Authorizer interface {
	Can(role Role, action Action) bool
}

// rolePolicy is the static policy table.
type rolePolicy map[Role]map[Action]bool

// DefaultAuthorizer returns the standard clinic policy.
func DefaultAuthorizer() Authorizer {
	writeAll := map[Action]bool{
		ActionWritePatient:  true,
		ActionWriteCase:     true,
		ActionWriteInvoice:  true,
		ActionRecordPayment: true,
	}
	frontDesk := map[Action]bool{
		ActionWritePatient:  true,
		ActionWriteInvoice:  true,
		ActionRecordPayment: true,
	}
	admin := map[Action]bool{
		ActionWritePatient:  true,
		ActionDeletePatient: true,
		ActionWriteCase:     true,
		ActionDeleteCase:    true,
		ActionWriteInvoice:  true,
		ActionRecordPayment: true,
		ActionManageCatalog: true,
		ActionManageUsers:   true,
	}
	return rolePolicy{
		RoleAdmin:   admin,
		RoleDoctor:  writeAll,
		RoleHelper:  frontDesk,
		RolePatient: {}, // read-only
	}
}

func (p rolePolicy) Can(role Role, action Action) bool {
	return p[role][action]
}

// Authorize returns ErrForbidden when the role may not perform the action.
func Authorize(a Authorizer, role Role, action Action) error {
	if !a.Can(role, action) {
		return ErrForbidden
	}
	return nil
}
