package clinic_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dentaldesk/clinic-api/clinic"
)

func TestDefaultAuthorizer_AdminOnlyActions(t *testing.T) {
	authz := clinic.DefaultAuthorizer()

	adminOnly := []clinic.Action{
		clinic.ActionDeletePatient,
		clinic.ActionDeleteCase,
		clinic.ActionManageUsers,
		clinic.ActionManageCatalog,
	}

	for _, action := range adminOnly {
		assert.True(t, authz.Can(clinic.RoleAdmin, action), "admin should be allowed %s", action)
		for _, role := range []clinic.Role{clinic.RoleDoctor, clinic.RoleHelper, clinic.RolePatient} {
			assert.False(t, authz.Can(role, action), "%s should be denied %s", role, action)
		}
	}
}

func TestDefaultAuthorizer_ClinicalAndBillingWrites(t *testing.T) {
	authz := clinic.DefaultAuthorizer()

	assert.True(t, authz.Can(clinic.RoleDoctor, clinic.ActionWriteCase))
	assert.True(t, authz.Can(clinic.RoleDoctor, clinic.ActionRecordPayment))
	assert.True(t, authz.Can(clinic.RoleHelper, clinic.ActionWritePatient))
	assert.True(t, authz.Can(clinic.RoleHelper, clinic.ActionRecordPayment))

	assert.False(t, authz.Can(clinic.RoleHelper, clinic.ActionWriteCase), "helpers do not edit clinical records")
	assert.False(t, authz.Can(clinic.RolePatient, clinic.ActionWritePatient), "patient role is read-only")
}

func TestAuthorize_ReturnsForbidden(t *testing.T) {
	authz := clinic.DefaultAuthorizer()

	err := clinic.Authorize(authz, clinic.RoleHelper, clinic.ActionDeletePatient)

	assert.ErrorIs(t, err, clinic.ErrForbidden)
	assert.True(t, clinic.IsForbidden(err))

	assert.NoError(t, clinic.Authorize(authz, clinic.RoleAdmin, clinic.ActionDeletePatient))
}
