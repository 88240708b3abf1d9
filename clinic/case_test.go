package clinic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/clinic-api/clinic"
)

func testCatalog() map[clinic.TreatmentID]clinic.Treatment {
	return map[clinic.TreatmentID]clinic.Treatment{
		"rct":   {ID: "rct", Name: "Root Canal", Price: clinic.NewMoney(500)},
		"crown": {ID: "crown", Name: "Crown", Price: clinic.NewMoney(300)},
	}
}

func TestNewCase_SnapshotsTreatmentCosts(t *testing.T) {
	// GIVEN: A catalog with Root Canal at 500 and Crown at 300
	// WHEN: A case is created selecting both
	// THEN: total_cost == 800, all of it pending, line items frozen at catalog price

	in := clinic.CaseInput{
		PatientID:      "pat-1",
		ChiefComplaint: "tooth pain",
		Treatments: []clinic.CaseTreatmentInput{
			{TreatmentID: "rct", ToothArea: "16"},
			{TreatmentID: "crown", ToothArea: "16"},
		},
	}
	require.NoError(t, in.Validate())

	c, items, err := clinic.NewCase(in, testCatalog(), time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "800.00", c.Ledger.TotalCost.String())
	assert.Equal(t, "800.00", c.Ledger.AmountPending.String())
	assert.Equal(t, clinic.CaseConsultation, c.Status)
	assert.Equal(t, clinic.PriorityMedium, c.Priority, "priority defaults to Medium")

	require.Len(t, items, 2)
	assert.Equal(t, "500.00", items[0].Cost.String())
	assert.Equal(t, "Root Canal", items[0].TreatmentName)
	assert.Equal(t, clinic.TreatmentPlanned, items[0].Status)
}

func TestNewCase_UnknownTreatment_Rejected(t *testing.T) {
	in := clinic.CaseInput{
		PatientID:      "pat-1",
		ChiefComplaint: "checkup",
		Treatments:     []clinic.CaseTreatmentInput{{TreatmentID: "nope"}},
	}
	require.NoError(t, in.Validate())

	_, _, err := clinic.NewCase(in, testCatalog(), time.Now().UTC())

	var verr *clinic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "treatments", verr.Field)
}

func TestCaseInput_Validate_RequiredFields(t *testing.T) {
	cases := []struct {
		name      string
		in        clinic.CaseInput
		wantField string
	}{
		{
			"missing patient",
			clinic.CaseInput{ChiefComplaint: "pain", Treatments: []clinic.CaseTreatmentInput{{TreatmentID: "rct"}}},
			"patient_id",
		},
		{
			"missing chief complaint",
			clinic.CaseInput{PatientID: "p", Treatments: []clinic.CaseTreatmentInput{{TreatmentID: "rct"}}},
			"chief_complaint",
		},
		{
			"no treatments",
			clinic.CaseInput{PatientID: "p", ChiefComplaint: "pain"},
			"treatments",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			var verr *clinic.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantField, verr.Field)
		})
	}
}

func TestCaseUpdate_TotalCostEdit_RecomputesPending(t *testing.T) {
	// Direct case edits must keep the ledger invariant without going through
	// reconciliation.
	in := clinic.CaseInput{
		PatientID:      "pat-1",
		ChiefComplaint: "pain",
		Treatments:     []clinic.CaseTreatmentInput{{TreatmentID: "rct"}},
	}
	c, _, err := clinic.NewCase(in, testCatalog(), time.Now().UTC())
	require.NoError(t, err)
	c.Ledger.AmountPaid = clinic.NewMoney(200)
	c.Ledger = c.Ledger.Recompute()

	newTotal := "150"
	upd := clinic.CaseUpdate{TotalCost: &newTotal}
	require.NoError(t, upd.Validate())
	c.Apply(upd, time.Now().UTC())

	assert.Equal(t, "150.00", c.Ledger.TotalCost.String())
	assert.Equal(t, "0.00", c.Ledger.AmountPending.String(), "paid already exceeds the new total")
}

func TestCaseUpdate_NegativeTotalCost_Rejected(t *testing.T) {
	bad := "-100"
	upd := clinic.CaseUpdate{TotalCost: &bad}

	err := upd.Validate()

	var verr *clinic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "total_cost", verr.Field)
}

func TestPatientInput_Validate(t *testing.T) {
	valid := clinic.PatientInput{Name: "Asha Rao", Phone: "9876543210"}
	assert.NoError(t, valid.Validate())

	missingName := clinic.PatientInput{Phone: "9876543210"}
	var verr *clinic.ValidationError
	require.ErrorAs(t, missingName.Validate(), &verr)
	assert.Equal(t, "name", verr.Field)

	missingPhone := clinic.PatientInput{Name: "Asha Rao"}
	require.ErrorAs(t, missingPhone.Validate(), &verr)
	assert.Equal(t, "phone", verr.Field)

	badDOB := clinic.PatientInput{Name: "Asha Rao", Phone: "9876543210", DateOfBirth: "12-05-1990"}
	require.ErrorAs(t, badDOB.Validate(), &verr)
	assert.Equal(t, "date_of_birth", verr.Field)
}
