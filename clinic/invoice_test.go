package clinic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/clinic-api/clinic"
)

func pendingInvoice(t *testing.T) clinic.Invoice {
	t.Helper()
	in := clinic.InvoiceInput{
		CaseID:    "case-1",
		PatientID: "pat-1",
		Amount:    "800",
		DueDate:   "2026-03-01",
	}
	require.NoError(t, in.Validate())
	return clinic.NewInvoice(in, time.Date(2026, time.February, 1, 10, 0, 0, 0, time.UTC))
}

// =============================================================================
// CREATION & VALIDATION
// =============================================================================

func TestInvoiceInput_Validate(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*clinic.InvoiceInput)
		wantField string
	}{
		{"missing case", func(in *clinic.InvoiceInput) { in.CaseID = "" }, "case_id"},
		{"missing patient", func(in *clinic.InvoiceInput) { in.PatientID = "" }, "patient_id"},
		{"bad amount", func(in *clinic.InvoiceInput) { in.Amount = "eight hundred" }, "amount"},
		{"zero amount", func(in *clinic.InvoiceInput) { in.Amount = "0" }, "amount"},
		{"negative amount", func(in *clinic.InvoiceInput) { in.Amount = "-10" }, "amount"},
		{"bad due date", func(in *clinic.InvoiceInput) { in.DueDate = "01/03/2026" }, "due_date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := clinic.InvoiceInput{CaseID: "c", PatientID: "p", Amount: "100", DueDate: "2026-03-01"}
			tc.mutate(&in)

			err := in.Validate()

			var verr *clinic.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.wantField, verr.Field)
		})
	}
}

func TestNewInvoice_DefaultsToPending(t *testing.T) {
	inv := pendingInvoice(t)

	assert.Equal(t, clinic.InvoicePending, inv.Status)
	assert.Equal(t, "800.00", inv.Amount.String())
	assert.NotEmpty(t, inv.InvoiceNumber, "number generated when none supplied")
	assert.Nil(t, inv.PaymentDate)
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

func TestInvoice_MarkPaid(t *testing.T) {
	inv := pendingInvoice(t)
	when := time.Date(2026, time.February, 10, 9, 30, 0, 0, time.UTC)

	paid, err := inv.MarkPaid(clinic.Payment{Method: "UPI", Date: when})

	require.NoError(t, err)
	assert.Equal(t, clinic.InvoicePaid, paid.Status)
	assert.Equal(t, "UPI", paid.PaymentMethod)
	require.NotNil(t, paid.PaymentDate)
	assert.Equal(t, when, *paid.PaymentDate)
}

func TestInvoice_MarkPaid_Twice_Rejected(t *testing.T) {
	// GIVEN: An invoice already marked Paid
	// WHEN: It is marked Paid again
	// THEN: ErrInvoiceAlreadyPaid; the payment is not double-counted

	inv := pendingInvoice(t)
	paid, err := inv.MarkPaid(clinic.Payment{Method: "Cash"})
	require.NoError(t, err)

	_, err = paid.MarkPaid(clinic.Payment{Method: "Cash"})

	assert.ErrorIs(t, err, clinic.ErrInvoiceAlreadyPaid)
}

func TestInvoice_MarkPaid_Cancelled_Rejected(t *testing.T) {
	inv := pendingInvoice(t)
	cancelled, err := inv.Cancel(time.Now().UTC())
	require.NoError(t, err)

	_, err = cancelled.MarkPaid(clinic.Payment{Method: "Card"})

	assert.ErrorIs(t, err, clinic.ErrInvoiceTerminal)
}

func TestInvoice_MarkPaid_RequiresMethod(t *testing.T) {
	inv := pendingInvoice(t)

	_, err := inv.MarkPaid(clinic.Payment{})

	var verr *clinic.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "payment_method", verr.Field)
}

func TestInvoice_Cancel_Paid_Rejected(t *testing.T) {
	inv := pendingInvoice(t)
	paid, err := inv.MarkPaid(clinic.Payment{Method: "Cash"})
	require.NoError(t, err)

	_, err = paid.Cancel(time.Now().UTC())

	assert.ErrorIs(t, err, clinic.ErrInvoiceTerminal)
}

func TestInvoice_OverdueAt(t *testing.T) {
	inv := pendingInvoice(t) // due 2026-03-01

	assert.False(t, inv.OverdueAt(time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC)))
	assert.True(t, inv.OverdueAt(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)))

	paid, err := inv.MarkPaid(clinic.Payment{Method: "Cash"})
	require.NoError(t, err)
	assert.False(t, paid.OverdueAt(time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)),
		"paid invoices never go overdue")
}
