package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/clinic-api/clinic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestPatient(t *testing.T, s *Store, name, phone string) clinic.Patient {
	t.Helper()
	p := clinic.NewPatient(clinic.PatientInput{Name: name, Phone: phone}, time.Now().UTC())
	require.NoError(t, s.CreatePatient(context.Background(), p))
	return p
}

// createTestCase sets up a patient and a case with the given ledger values.
func createTestCase(t *testing.T, s *Store, total, paid float64, status clinic.CaseStatus) clinic.Case {
	t.Helper()
	ctx := context.Background()

	patient := createTestPatient(t, s, "Asha Rao", "98765"+clinic.NewID()[:5])

	now := time.Now().UTC()
	c := clinic.Case{
		ID:             clinic.CaseID(clinic.NewID()),
		PatientID:      patient.ID,
		Status:         status,
		Priority:       clinic.PriorityMedium,
		ChiefComplaint: "tooth pain",
		Ledger: clinic.Ledger{
			TotalCost:  clinic.NewMoney(total),
			AmountPaid: clinic.NewMoney(paid),
		}.Recompute(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateCase(ctx, c, nil))
	return c
}

func createTestInvoice(t *testing.T, s *Store, c clinic.Case, amount float64) clinic.Invoice {
	t.Helper()
	inv := clinic.NewInvoice(clinic.InvoiceInput{
		CaseID:    string(c.ID),
		PatientID: string(c.PatientID),
		Amount:    clinic.NewMoney(amount).String(),
	}, time.Now().UTC())
	require.NoError(t, s.CreateInvoice(context.Background(), inv))
	return inv
}

// =============================================================================
// PATIENT TESTS
// =============================================================================

func TestPatients_PhoneUniqueness(t *testing.T) {
	// GIVEN: A patient registered with a phone number
	// WHEN: Another intake uses the same number
	// THEN: ErrPhoneAlreadyRegistered

	s := newTestStore(t)
	ctx := context.Background()
	createTestPatient(t, s, "Asha Rao", "9876543210")

	dup := clinic.NewPatient(clinic.PatientInput{Name: "Someone Else", Phone: "9876543210"}, time.Now().UTC())
	err := s.CreatePatient(ctx, dup)

	assert.ErrorIs(t, err, clinic.ErrPhoneAlreadyRegistered)
}

func TestPatients_PhoneReusableAfterSoftDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createTestPatient(t, s, "Asha Rao", "9876543210")
	require.NoError(t, s.SoftDeletePatient(ctx, p.ID, "admin@clinic.test", time.Now().UTC()))

	again := clinic.NewPatient(clinic.PatientInput{Name: "Asha Rao", Phone: "9876543210"}, time.Now().UTC())
	assert.NoError(t, s.CreatePatient(ctx, again), "uniqueness applies to live records only")
}

func TestPatients_SoftDelete_ExcludedButRowIntact(t *testing.T) {
	// GIVEN: A soft-deleted patient
	// THEN: Not retrievable by default lookups, absent from listings,
	//       but the underlying row keeps all original fields.

	s := newTestStore(t)
	ctx := context.Background()

	p := createTestPatient(t, s, "Ravi Kumar", "9000000001")
	keep := createTestPatient(t, s, "Meena Iyer", "9000000002")

	when := time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SoftDeletePatient(ctx, p.ID, "admin@clinic.test", when))

	_, err := s.GetPatient(ctx, p.ID)
	assert.ErrorIs(t, err, clinic.ErrNotFound)

	listed, total, err := s.ListPatients(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, listed, 1)
	assert.Equal(t, keep.ID, listed[0].ID)

	// The row survives with its fields and the tombstone.
	var name, deletedBy string
	var deletedAt string
	err = s.db.QueryRow(
		`SELECT name, deleted_at, deleted_by FROM patients WHERE id = ?`, p.ID).
		Scan(&name, &deletedAt, &deletedBy)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", name)
	assert.Equal(t, "admin@clinic.test", deletedBy)
	assert.Equal(t, fmtTime(when), deletedAt)
}

func TestPatients_SoftDelete_Twice_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := createTestPatient(t, s, "Asha Rao", "9876543210")
	require.NoError(t, s.SoftDeletePatient(ctx, p.ID, "admin@clinic.test", time.Now().UTC()))

	err := s.SoftDeletePatient(ctx, p.ID, "admin@clinic.test", time.Now().UTC())
	assert.ErrorIs(t, err, clinic.ErrNotFound)
}

func TestPatients_Search_And_Pagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createTestPatient(t, s, "Asha Rao", "9876500001")
	createTestPatient(t, s, "Ashok Nair", "9876500002")
	createTestPatient(t, s, "Meena Iyer", "9876500003")

	// Case-insensitive contains on name.
	found, total, err := s.ListPatients(ctx, ListOptions{Search: "ash"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, found, 2)

	// Phone search.
	found, total, err = s.ListPatients(ctx, ListOptions{Search: "9876500003"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, found, 1)
	assert.Equal(t, "Meena Iyer", found[0].Name)

	// Pagination reports full count.
	page, total, err := s.ListPatients(ctx, ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	rest, _, err := s.ListPatients(ctx, ListOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

// =============================================================================
// CASE TESTS
// =============================================================================

func TestCases_SoftDelete_Excluded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, 1000, 0, clinic.CaseConsultation)
	require.NoError(t, s.SoftDeleteCase(ctx, c.ID, "admin@clinic.test", time.Now().UTC()))

	_, err := s.GetCase(ctx, c.ID)
	assert.ErrorIs(t, err, clinic.ErrNotFound)

	_, total, err := s.ListCases(ctx, CaseFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestCases_ListFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createTestCase(t, s, 500, 0, clinic.CaseInProgress)
	createTestCase(t, s, 300, 0, clinic.CaseConsultation)

	byStatus, total, err := s.ListCases(ctx, CaseFilter{Status: clinic.CaseInProgress})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)

	byPatient, _, err := s.ListCases(ctx, CaseFilter{PatientID: a.PatientID})
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.Equal(t, a.ID, byPatient[0].ID)
}

// =============================================================================
// RECONCILIATION TESTS
// =============================================================================

func TestMarkInvoicePaid_ReconcilesCaseLedger(t *testing.T) {
	// GIVEN: Case {total: 1000, paid: 200, pending: 800, status: In Progress}
	//        and a Pending invoice of 800 against it
	// WHEN: The invoice is marked Paid
	// THEN: Invoice is Paid, case is {paid: 1000, pending: 0, Completed} -
	//       both written in the same transaction

	s := newTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, 1000, 200, clinic.CaseInProgress)
	inv := createTestInvoice(t, s, c, 800)

	when := time.Date(2026, time.August, 20, 11, 0, 0, 0, time.UTC)
	paidInv, updatedCase, err := s.MarkInvoicePaid(ctx, inv.ID, clinic.Payment{Method: "UPI", Date: when})
	require.NoError(t, err)

	assert.Equal(t, clinic.InvoicePaid, paidInv.Status)
	assert.Equal(t, "UPI", paidInv.PaymentMethod)
	assert.Equal(t, "1000.00", updatedCase.Ledger.AmountPaid.String())
	assert.Equal(t, "0.00", updatedCase.Ledger.AmountPending.String())
	assert.Equal(t, clinic.CaseCompleted, updatedCase.Status)

	// Persisted state matches the returned state.
	stored, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", stored.Ledger.AmountPaid.String())
	assert.Equal(t, clinic.CaseCompleted, stored.Status)

	storedInv, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, clinic.InvoicePaid, storedInv.Status)
}

func TestMarkInvoicePaid_Twice_Rejected_LedgerUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, 1000, 0, clinic.CaseInProgress)
	inv := createTestInvoice(t, s, c, 400)

	_, _, err := s.MarkInvoicePaid(ctx, inv.ID, clinic.Payment{Method: "Cash"})
	require.NoError(t, err)

	_, _, err = s.MarkInvoicePaid(ctx, inv.ID, clinic.Payment{Method: "Cash"})
	assert.ErrorIs(t, err, clinic.ErrInvoiceAlreadyPaid)

	stored, err := s.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "400.00", stored.Ledger.AmountPaid.String(), "payment must not be double-counted")
}

func TestMarkInvoicePaid_DeletedCase_RollsBackInvoice(t *testing.T) {
	// Partial completion must be unreachable: if the case write cannot
	// happen, the invoice must not come out Paid.

	s := newTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, 500, 0, clinic.CaseInProgress)
	inv := createTestInvoice(t, s, c, 500)
	require.NoError(t, s.SoftDeleteCase(ctx, c.ID, "admin@clinic.test", time.Now().UTC()))

	_, _, err := s.MarkInvoicePaid(ctx, inv.ID, clinic.Payment{Method: "Cash"})
	assert.ErrorIs(t, err, clinic.ErrNotFound)

	stored, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, clinic.InvoicePending, stored.Status, "invoice write rolled back with the case write")
}

func TestMarkInvoicePaid_TwoInvoices_Accumulate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, 800, 0, clinic.CaseInProgress)
	first := createTestInvoice(t, s, c, 500)
	second := createTestInvoice(t, s, c, 300)

	_, mid, err := s.MarkInvoicePaid(ctx, first.ID, clinic.Payment{Method: "Card"})
	require.NoError(t, err)
	assert.Equal(t, "300.00", mid.Ledger.AmountPending.String())
	assert.Equal(t, clinic.CaseInProgress, mid.Status)

	_, final, err := s.MarkInvoicePaid(ctx, second.ID, clinic.Payment{Method: "Card"})
	require.NoError(t, err)
	assert.Equal(t, "800.00", final.Ledger.AmountPaid.String())
	assert.Equal(t, "0.00", final.Ledger.AmountPending.String())
	assert.Equal(t, clinic.CaseCompleted, final.Status)
}

// =============================================================================
// INVOICE LIFECYCLE TESTS
// =============================================================================

func TestCancelInvoice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, 500, 0, clinic.CaseConsultation)
	inv := createTestInvoice(t, s, c, 500)

	cancelled, err := s.CancelInvoice(ctx, inv.ID, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, clinic.InvoiceCancelled, cancelled.Status)

	// Terminal: cannot cancel again, cannot pay.
	_, err = s.CancelInvoice(ctx, inv.ID, time.Now().UTC())
	assert.ErrorIs(t, err, clinic.ErrInvoiceTerminal)
	_, _, err = s.MarkInvoicePaid(ctx, inv.ID, clinic.Payment{Method: "Cash"})
	assert.ErrorIs(t, err, clinic.ErrInvoiceTerminal)
}

func TestMarkOverdueInvoices(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := createTestCase(t, s, 900, 0, clinic.CaseInProgress)

	now := time.Date(2026, time.August, 29, 9, 0, 0, 0, time.UTC)
	past := clinic.NewInvoice(clinic.InvoiceInput{
		CaseID: string(c.ID), PatientID: string(c.PatientID),
		Amount: "300", DueDate: "2026-08-01",
	}, now.AddDate(0, -1, 0))
	future := clinic.NewInvoice(clinic.InvoiceInput{
		CaseID: string(c.ID), PatientID: string(c.PatientID),
		Amount: "300", DueDate: "2026-09-15",
	}, now)
	require.NoError(t, s.CreateInvoice(ctx, past))
	require.NoError(t, s.CreateInvoice(ctx, future))

	flipped, err := s.MarkOverdueInvoices(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, flipped)

	stored, err := s.GetInvoice(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, clinic.InvoiceOverdue, stored.Status)

	stored, err = s.GetInvoice(ctx, future.ID)
	require.NoError(t, err)
	assert.Equal(t, clinic.InvoicePending, stored.Status)

	// Sweep is idempotent.
	flipped, err = s.MarkOverdueInvoices(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 0, flipped)
}

// =============================================================================
// USER TESTS
// =============================================================================

func TestUsers_CreateAndAuthenticate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := clinic.NewUser(clinic.UserInput{
		Email: "Dr.Rao@Clinic.Test", Name: "Dr. Rao",
		Role: clinic.RoleDoctor, Password: "correct horse",
	}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, u))

	// Email is normalized to lower case.
	stored, err := s.GetUserByEmail(ctx, "dr.rao@clinic.test")
	require.NoError(t, err)
	assert.Equal(t, clinic.RoleDoctor, stored.Role)
	assert.NoError(t, stored.CheckPassword("correct horse"))
	assert.ErrorIs(t, stored.CheckPassword("wrong"), clinic.ErrInvalidCredentials)

	// Duplicate email rejected.
	dup, err := clinic.NewUser(clinic.UserInput{
		Email: "dr.rao@clinic.test", Name: "Imposter",
		Role: clinic.RoleHelper, Password: "password1",
	}, time.Now().UTC())
	require.NoError(t, err)
	assert.ErrorIs(t, s.CreateUser(ctx, dup), clinic.ErrEmailAlreadyRegistered)
}

func TestUsers_Deactivated_CannotLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := clinic.NewUser(clinic.UserInput{
		Email: "helper@clinic.test", Name: "Front Desk",
		Role: clinic.RoleHelper, Password: "password1",
	}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, s.CreateUser(ctx, u))

	u.IsActive = false
	u.UpdatedAt = time.Now().UTC()
	require.NoError(t, s.UpdateUser(ctx, u))

	stored, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, stored.CheckPassword("password1"), clinic.ErrUserInactive)
}
