/*
Package sqlite provides the SQLite-backed store for the clinic domain.

PURPOSE:
  Implements persistence for patients, cases, case treatments, invoices,
  the treatment catalog, and user accounts. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

SOFT DELETE:
  Patients and cases are never physically deleted. SoftDeletePatient and
  SoftDeleteCase stamp deleted_at/deleted_by, and every default read path
  filters on deleted_at IS NULL. A deleted record is indistinguishable from
  a missing one to callers.

RECONCILIATION ATOMICITY:
  MarkInvoicePaid performs the invoice write and the case-ledger write in a
  single SQL transaction, re-reading the case row inside the transaction.
  Combined with the store mutex this closes the two classic races of the
  two-step pattern: a reader observing "invoice Paid, case balance stale",
  and two concurrent payments both computing from the same stale amount_paid.

KEY TABLES:
  patients:        Master records, phone unique among non-deleted rows
  cases:           Treatment episodes with the financial ledger columns
  case_treatments: Line items with cost snapshots frozen at creation
  invoices:        Billing rows; status drives reconciliation
  treatments:      Catalog price list
  users:           Role-gated accounts

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/clinic.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - clinic/ledger.go: The pure reconciliation computation applied here
  - api/handlers.go: The HTTP layer driving these operations
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dentaldesk/clinic-api/clinic"
)

// Store implements clinic persistence using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL,
		email TEXT,
		date_of_birth TEXT,
		gender TEXT,
		address TEXT,
		medical_history TEXT,
		allergies TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT,
		deleted_by TEXT
	);

	-- Phone uniqueness applies to live records only, so a number can be
	-- re-registered after the old record is soft-deleted.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_patients_phone_live
		ON patients(phone) WHERE deleted_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_patients_name ON patients(name);

	CREATE TABLE IF NOT EXISTS treatments (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT,
		price TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL DEFAULT 0,
		description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		patient_id TEXT NOT NULL REFERENCES patients(id),
		doctor_id TEXT,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		chief_complaint TEXT NOT NULL,
		diagnosis TEXT,
		treatment_plan TEXT,
		notes TEXT,
		total_cost TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		amount_pending TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		deleted_at TEXT,
		deleted_by TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_cases_patient ON cases(patient_id);
	CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);

	CREATE TABLE IF NOT EXISTS case_treatments (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL REFERENCES cases(id),
		treatment_id TEXT NOT NULL,
		treatment_name TEXT NOT NULL,
		status TEXT NOT NULL,
		cost TEXT NOT NULL,
		tooth_area TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_case_treatments_case ON case_treatments(case_id);

	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		invoice_number TEXT NOT NULL,
		case_id TEXT NOT NULL REFERENCES cases(id),
		patient_id TEXT NOT NULL REFERENCES patients(id),
		amount TEXT NOT NULL,
		status TEXT NOT NULL,
		due_date TEXT NOT NULL,
		payment_date TEXT,
		payment_method TEXT,
		notes TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_case ON invoices(case_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
	CREATE INDEX IF NOT EXISTS idx_invoices_due ON invoices(due_date) WHERE status = 'Pending';

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

const timeFormat = time.RFC3339Nano

type rowScanner interface {
	Scan(dest ...any) error
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func scanNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func storeErr(op string, err error) error {
	return &clinic.StoreError{Op: op, Err: err}
}

// ListOptions controls pagination and search for list queries.
type ListOptions struct {
	Search string // case-insensitive "contains" across the entity's search columns
	Limit  int
	Offset int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 || o.Limit > 200 {
		return 50
	}
	return o.Limit
}

// WithTx runs fn inside one SQL transaction, committing on nil and rolling
// back on error.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

// =============================================================================
// PATIENTS
// =============================================================================

const patientColumns = `id, name, phone, email, date_of_birth, gender, address,
	medical_history, allergies, notes, created_at, updated_at, deleted_at, deleted_by`

func scanPatient(row rowScanner) (clinic.Patient, error) {
	var p clinic.Patient
	var email, dob, gender, address, history, allergies, notes sql.NullString
	var createdAt, updatedAt string
	var deletedAt, deletedBy sql.NullString

	err := row.Scan(&p.ID, &p.Name, &p.Phone, &email, &dob, &gender, &address,
		&history, &allergies, &notes, &createdAt, &updatedAt, &deletedAt, &deletedBy)
	if err != nil {
		return clinic.Patient{}, err
	}

	p.Email = email.String
	p.DateOfBirth = dob.String
	p.Gender = gender.String
	p.Address = address.String
	p.MedicalHistory = history.String
	p.Allergies = allergies.String
	p.Notes = notes.String
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.DeletedAt = scanNullTime(deletedAt)
	p.DeletedBy = deletedBy.String
	return p, nil
}

func (s *Store) CreatePatient(ctx context.Context, p clinic.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Phone, p.Email, p.DateOfBirth, p.Gender, p.Address,
		p.MedicalHistory, p.Allergies, p.Notes,
		fmtTime(p.CreatedAt), fmtTime(p.UpdatedAt), nullTime(p.DeletedAt), p.DeletedBy)
	if err != nil {
		if strings.Contains(err.Error(), "idx_patients_phone_live") {
			return clinic.ErrPhoneAlreadyRegistered
		}
		return storeErr("create patient", err)
	}
	return nil
}

// GetPatient returns a patient by ID. Soft-deleted patients are not found.
func (s *Store) GetPatient(ctx context.Context, id clinic.PatientID) (*clinic.Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+` FROM patients
		WHERE id = ? AND deleted_at IS NULL`, id)

	p, err := scanPatient(row)
	if err == sql.ErrNoRows {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get patient", err)
	}
	return &p, nil
}

func (s *Store) UpdatePatient(ctx context.Context, p clinic.Patient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE patients SET name = ?, phone = ?, email = ?, date_of_birth = ?,
			gender = ?, address = ?, medical_history = ?, allergies = ?, notes = ?,
			updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		p.Name, p.Phone, p.Email, p.DateOfBirth, p.Gender, p.Address,
		p.MedicalHistory, p.Allergies, p.Notes, fmtTime(p.UpdatedAt), p.ID)
	if err != nil {
		if strings.Contains(err.Error(), "idx_patients_phone_live") {
			return clinic.ErrPhoneAlreadyRegistered
		}
		return storeErr("update patient", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

// ListPatients returns a page of non-deleted patients plus the total count
// for the same filter. Search matches name, phone, and email.
func (s *Store) ListPatients(ctx context.Context, opts ListOptions) ([]clinic.Patient, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := "deleted_at IS NULL"
	args := []any{}
	if opts.Search != "" {
		where += ` AND (LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?)`
		pat := "%" + strings.ToLower(opts.Search) + "%"
		args = append(args, pat, pat, pat)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM patients WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("count patients", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+patientColumns+` FROM patients WHERE `+where+`
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, opts.limit(), opts.Offset)...)
	if err != nil {
		return nil, 0, storeErr("list patients", err)
	}
	defer rows.Close()

	patients := []clinic.Patient{}
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, storeErr("scan patient", err)
		}
		patients = append(patients, p)
	}
	return patients, total, rows.Err()
}

// SoftDeletePatient stamps the tombstone. The row and all its fields remain.
// Dependent cases are NOT cascaded (recorded product decision).
func (s *Store) SoftDeletePatient(ctx context.Context, id clinic.PatientID, actor string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE patients SET deleted_at = ?, deleted_by = ?
		WHERE id = ? AND deleted_at IS NULL`,
		fmtTime(now), actor, id)
	if err != nil {
		return storeErr("soft delete patient", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

// =============================================================================
// TREATMENT CATALOG
// =============================================================================

const treatmentColumns = `id, name, category, price, duration_minutes, description, created_at, updated_at`

func scanTreatment(row rowScanner) (clinic.Treatment, error) {
	var t clinic.Treatment
	var category, description sql.NullString
	var price, createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Name, &category, &price, &t.DurationMinutes,
		&description, &createdAt, &updatedAt)
	if err != nil {
		return clinic.Treatment{}, err
	}

	t.Category = category.String
	t.Description = description.String
	t.Price, err = clinic.ParseMoney(price)
	if err != nil {
		return clinic.Treatment{}, fmt.Errorf("corrupt price for treatment %s: %w", t.ID, err)
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return t, nil
}

func (s *Store) CreateTreatment(ctx context.Context, t clinic.Treatment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO treatments (`+treatmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Category, t.Price.String(), t.DurationMinutes,
		t.Description, fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return storeErr("create treatment", err)
	}
	return nil
}

func (s *Store) UpdateTreatment(ctx context.Context, t clinic.Treatment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE treatments SET name = ?, category = ?, price = ?,
			duration_minutes = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		t.Name, t.Category, t.Price.String(), t.DurationMinutes,
		t.Description, fmtTime(t.UpdatedAt), t.ID)
	if err != nil {
		return storeErr("update treatment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

func (s *Store) GetTreatment(ctx context.Context, id clinic.TreatmentID) (*clinic.Treatment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+treatmentColumns+` FROM treatments WHERE id = ?`, id)
	t, err := scanTreatment(row)
	if err == sql.ErrNoRows {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get treatment", err)
	}
	return &t, nil
}

func (s *Store) ListTreatments(ctx context.Context) ([]clinic.Treatment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+treatmentColumns+` FROM treatments ORDER BY category, name`)
	if err != nil {
		return nil, storeErr("list treatments", err)
	}
	defer rows.Close()

	treatments := []clinic.Treatment{}
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, storeErr("scan treatment", err)
		}
		treatments = append(treatments, t)
	}
	return treatments, rows.Err()
}

// GetTreatmentsByIDs returns the catalog rows for the given IDs, keyed by ID.
// Missing IDs are simply absent from the map; the caller decides whether
// that is an error.
func (s *Store) GetTreatmentsByIDs(ctx context.Context, ids []clinic.TreatmentID) (map[clinic.TreatmentID]clinic.Treatment, error) {
	result := make(map[clinic.TreatmentID]clinic.Treatment, len(ids))
	for _, id := range ids {
		t, err := s.GetTreatment(ctx, id)
		if clinic.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[id] = *t
	}
	return result, nil
}

func (s *Store) DeleteTreatment(ctx context.Context, id clinic.TreatmentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM treatments WHERE id = ?`, id)
	if err != nil {
		return storeErr("delete treatment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

func (s *Store) CountTreatments(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM treatments`).Scan(&n); err != nil {
		return 0, storeErr("count treatments", err)
	}
	return n, nil
}

// =============================================================================
// CASES
// =============================================================================

const caseColumns = `id, patient_id, doctor_id, status, priority, chief_complaint,
	diagnosis, treatment_plan, notes, total_cost, amount_paid, amount_pending,
	created_at, updated_at, deleted_at, deleted_by`

func scanCase(row rowScanner) (clinic.Case, error) {
	var c clinic.Case
	var doctorID, diagnosis, plan, notes sql.NullString
	var totalCost, amountPaid, amountPending string
	var createdAt, updatedAt string
	var deletedAt, deletedBy sql.NullString

	err := row.Scan(&c.ID, &c.PatientID, &doctorID, &c.Status, &c.Priority,
		&c.ChiefComplaint, &diagnosis, &plan, &notes,
		&totalCost, &amountPaid, &amountPending,
		&createdAt, &updatedAt, &deletedAt, &deletedBy)
	if err != nil {
		return clinic.Case{}, err
	}

	c.DoctorID = clinic.UserID(doctorID.String)
	c.Diagnosis = diagnosis.String
	c.TreatmentPlan = plan.String
	c.Notes = notes.String
	if c.Ledger.TotalCost, err = clinic.ParseMoney(totalCost); err != nil {
		return clinic.Case{}, fmt.Errorf("corrupt total_cost for case %s: %w", c.ID, err)
	}
	if c.Ledger.AmountPaid, err = clinic.ParseMoney(amountPaid); err != nil {
		return clinic.Case{}, fmt.Errorf("corrupt amount_paid for case %s: %w", c.ID, err)
	}
	if c.Ledger.AmountPending, err = clinic.ParseMoney(amountPending); err != nil {
		return clinic.Case{}, fmt.Errorf("corrupt amount_pending for case %s: %w", c.ID, err)
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	c.DeletedAt = scanNullTime(deletedAt)
	c.DeletedBy = deletedBy.String
	return c, nil
}

// CreateCase inserts the case and its treatment line items in one transaction.
func (s *Store) CreateCase(ctx context.Context, c clinic.Case, items []clinic.CaseTreatment) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cases (`+caseColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.PatientID, string(c.DoctorID), c.Status, c.Priority,
			c.ChiefComplaint, c.Diagnosis, c.TreatmentPlan, c.Notes,
			c.Ledger.TotalCost.String(), c.Ledger.AmountPaid.String(), c.Ledger.AmountPending.String(),
			fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt), nullTime(c.DeletedAt), c.DeletedBy)
		if err != nil {
			return storeErr("create case", err)
		}

		for _, item := range items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO case_treatments (id, case_id, treatment_id, treatment_name,
					status, cost, tooth_area, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				item.ID, item.CaseID, item.TreatmentID, item.TreatmentName,
				item.Status, item.Cost.String(), item.ToothArea, fmtTime(item.CreatedAt))
			if err != nil {
				return storeErr("create case treatment", err)
			}
		}
		return nil
	})
}

// GetCase returns a case by ID. Soft-deleted cases are not found.
func (s *Store) GetCase(ctx context.Context, id clinic.CaseID) (*clinic.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+caseColumns+` FROM cases
		WHERE id = ? AND deleted_at IS NULL`, id)
	c, err := scanCase(row)
	if err == sql.ErrNoRows {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get case", err)
	}
	return &c, nil
}

func (s *Store) UpdateCase(ctx context.Context, c clinic.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE cases SET doctor_id = ?, status = ?, priority = ?, chief_complaint = ?,
			diagnosis = ?, treatment_plan = ?, notes = ?,
			total_cost = ?, amount_paid = ?, amount_pending = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL`,
		string(c.DoctorID), c.Status, c.Priority, c.ChiefComplaint,
		c.Diagnosis, c.TreatmentPlan, c.Notes,
		c.Ledger.TotalCost.String(), c.Ledger.AmountPaid.String(), c.Ledger.AmountPending.String(),
		fmtTime(c.UpdatedAt), c.ID)
	if err != nil {
		return storeErr("update case", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

// CaseFilter narrows ListCases. Zero values mean "no filter".
type CaseFilter struct {
	ListOptions
	PatientID clinic.PatientID
	Status    clinic.CaseStatus
}

// ListCases returns a page of non-deleted cases plus the total count for the
// same filter. Search matches the chief complaint and diagnosis.
func (s *Store) ListCases(ctx context.Context, f CaseFilter) ([]clinic.Case, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := "deleted_at IS NULL"
	args := []any{}
	if f.PatientID != "" {
		where += " AND patient_id = ?"
		args = append(args, f.PatientID)
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Search != "" {
		where += " AND (LOWER(chief_complaint) LIKE ? OR LOWER(diagnosis) LIKE ?)"
		pat := "%" + strings.ToLower(f.Search) + "%"
		args = append(args, pat, pat)
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cases WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("count cases", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+caseColumns+` FROM cases WHERE `+where+`
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, f.limit(), f.Offset)...)
	if err != nil {
		return nil, 0, storeErr("list cases", err)
	}
	defer rows.Close()

	cases := []clinic.Case{}
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, 0, storeErr("scan case", err)
		}
		cases = append(cases, c)
	}
	return cases, total, rows.Err()
}

// SoftDeleteCase stamps the tombstone on a case.
func (s *Store) SoftDeleteCase(ctx context.Context, id clinic.CaseID, actor string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE cases SET deleted_at = ?, deleted_by = ?
		WHERE id = ? AND deleted_at IS NULL`,
		fmtTime(now), actor, id)
	if err != nil {
		return storeErr("soft delete case", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

func scanCaseTreatment(row rowScanner) (clinic.CaseTreatment, error) {
	var item clinic.CaseTreatment
	var toothArea sql.NullString
	var cost, createdAt string

	err := row.Scan(&item.ID, &item.CaseID, &item.TreatmentID, &item.TreatmentName,
		&item.Status, &cost, &toothArea, &createdAt)
	if err != nil {
		return clinic.CaseTreatment{}, err
	}

	item.ToothArea = toothArea.String
	item.Cost, err = clinic.ParseMoney(cost)
	if err != nil {
		return clinic.CaseTreatment{}, fmt.Errorf("corrupt cost for case treatment %s: %w", item.ID, err)
	}
	item.CreatedAt = parseTime(createdAt)
	return item, nil
}

// ListCaseTreatments returns the line items of a case in creation order.
func (s *Store) ListCaseTreatments(ctx context.Context, caseID clinic.CaseID) ([]clinic.CaseTreatment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, treatment_id, treatment_name, status, cost, tooth_area, created_at
		FROM case_treatments WHERE case_id = ? ORDER BY created_at`, caseID)
	if err != nil {
		return nil, storeErr("list case treatments", err)
	}
	defer rows.Close()

	items := []clinic.CaseTreatment{}
	for rows.Next() {
		item, err := scanCaseTreatment(rows)
		if err != nil {
			return nil, storeErr("scan case treatment", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateCaseTreatmentStatus moves one line item through its own lifecycle.
func (s *Store) UpdateCaseTreatmentStatus(ctx context.Context, caseID clinic.CaseID, id clinic.CaseTreatmentID, status clinic.TreatmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE case_treatments SET status = ? WHERE id = ? AND case_id = ?`,
		status, id, caseID)
	if err != nil {
		return storeErr("update case treatment", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

// =============================================================================
// INVOICES
// =============================================================================

const invoiceColumns = `id, invoice_number, case_id, patient_id, amount, status,
	due_date, payment_date, payment_method, notes, created_at, updated_at`

func scanInvoice(row rowScanner) (clinic.Invoice, error) {
	var inv clinic.Invoice
	var amount, dueDate, createdAt, updatedAt string
	var paymentDate, paymentMethod, notes sql.NullString

	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CaseID, &inv.PatientID,
		&amount, &inv.Status, &dueDate, &paymentDate, &paymentMethod, &notes,
		&createdAt, &updatedAt)
	if err != nil {
		return clinic.Invoice{}, err
	}

	inv.Amount, err = clinic.ParseMoney(amount)
	if err != nil {
		return clinic.Invoice{}, fmt.Errorf("corrupt amount for invoice %s: %w", inv.ID, err)
	}
	inv.DueDate = parseTime(dueDate)
	inv.PaymentDate = scanNullTime(paymentDate)
	inv.PaymentMethod = paymentMethod.String
	inv.Notes = notes.String
	inv.CreatedAt = parseTime(createdAt)
	inv.UpdatedAt = parseTime(updatedAt)
	return inv, nil
}

func (s *Store) CreateInvoice(ctx context.Context, inv clinic.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.InvoiceNumber, inv.CaseID, inv.PatientID,
		inv.Amount.String(), inv.Status, fmtTime(inv.DueDate),
		nullTime(inv.PaymentDate), inv.PaymentMethod, inv.Notes,
		fmtTime(inv.CreatedAt), fmtTime(inv.UpdatedAt))
	if err != nil {
		return storeErr("create invoice", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, id clinic.InvoiceID) (*clinic.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get invoice", err)
	}
	return &inv, nil
}

// InvoiceFilter narrows ListInvoices. Zero values mean "no filter".
type InvoiceFilter struct {
	ListOptions
	CaseID    clinic.CaseID
	PatientID clinic.PatientID
	Status    clinic.InvoiceStatus
}

// ListInvoices returns a page of invoices plus the total count for the same
// filter. Search matches the invoice number.
func (s *Store) ListInvoices(ctx context.Context, f InvoiceFilter) ([]clinic.Invoice, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	where := "1=1"
	args := []any{}
	if f.CaseID != "" {
		where += " AND case_id = ?"
		args = append(args, f.CaseID)
	}
	if f.PatientID != "" {
		where += " AND patient_id = ?"
		args = append(args, f.PatientID)
	}
	if f.Status != "" {
		where += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.Search != "" {
		where += " AND LOWER(invoice_number) LIKE ?"
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, storeErr("count invoices", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invoiceColumns+` FROM invoices WHERE `+where+`
		ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		append(args, f.limit(), f.Offset)...)
	if err != nil {
		return nil, 0, storeErr("list invoices", err)
	}
	defer rows.Close()

	invoices := []clinic.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, storeErr("scan invoice", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// MarkInvoicePaid transitions the invoice to Paid and applies the payment to
// the case ledger in ONE transaction. The case row is re-read inside the
// transaction, so concurrent payments serialize instead of losing updates,
// and no reader can observe the invoice Paid with a stale case balance.
//
// Returns the updated invoice and case.
func (s *Store) MarkInvoicePaid(ctx context.Context, id clinic.InvoiceID, payment clinic.Payment) (*clinic.Invoice, *clinic.Case, error) {
	var paidInv clinic.Invoice
	var updated clinic.Case

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
		inv, err := scanInvoice(row)
		if err == sql.ErrNoRows {
			return clinic.ErrNotFound
		}
		if err != nil {
			return storeErr("get invoice", err)
		}

		paidInv, err = inv.MarkPaid(payment)
		if err != nil {
			return err
		}

		row = tx.QueryRowContext(ctx, `
			SELECT `+caseColumns+` FROM cases
			WHERE id = ? AND deleted_at IS NULL`, inv.CaseID)
		c, err := scanCase(row)
		if err == sql.ErrNoRows {
			return clinic.ErrNotFound
		}
		if err != nil {
			return storeErr("get case", err)
		}

		res := clinic.Reconcile(c.Ledger, c.Status, paidInv.Amount)
		c.Ledger = res.Ledger
		c.Status = res.Status
		c.UpdatedAt = paidInv.UpdatedAt
		updated = c

		_, err = tx.ExecContext(ctx, `
			UPDATE invoices SET status = ?, payment_date = ?, payment_method = ?, updated_at = ?
			WHERE id = ?`,
			paidInv.Status, nullTime(paidInv.PaymentDate), paidInv.PaymentMethod,
			fmtTime(paidInv.UpdatedAt), paidInv.ID)
		if err != nil {
			return storeErr("update invoice", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE cases SET amount_paid = ?, amount_pending = ?, status = ?, updated_at = ?
			WHERE id = ?`,
			c.Ledger.AmountPaid.String(), c.Ledger.AmountPending.String(),
			c.Status, fmtTime(c.UpdatedAt), c.ID)
		if err != nil {
			return storeErr("update case ledger", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &paidInv, &updated, nil
}

// CancelInvoice transitions a non-terminal invoice to Cancelled. The case
// ledger is untouched; only Paid invoices ever affect it, and Paid invoices
// cannot be cancelled.
func (s *Store) CancelInvoice(ctx context.Context, id clinic.InvoiceID, now time.Time) (*clinic.Invoice, error) {
	var cancelled clinic.Invoice

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
		inv, err := scanInvoice(row)
		if err == sql.ErrNoRows {
			return clinic.ErrNotFound
		}
		if err != nil {
			return storeErr("get invoice", err)
		}

		cancelled, err = inv.Cancel(now)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
			cancelled.Status, fmtTime(cancelled.UpdatedAt), cancelled.ID)
		if err != nil {
			return storeErr("update invoice", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cancelled, nil
}

// MarkOverdueInvoices flips Pending invoices past their due date to Overdue
// in one statement. Returns the number of invoices flipped.
func (s *Store) MarkOverdueInvoices(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET status = ?, updated_at = ?
		WHERE status = ? AND due_date < ?`,
		clinic.InvoiceOverdue, fmtTime(now), clinic.InvoicePending, fmtTime(now))
	if err != nil {
		return 0, storeErr("mark overdue invoices", err)
	}
	return res.RowsAffected()
}

// =============================================================================
// USERS
// =============================================================================

const userColumns = `id, email, name, role, is_active, password_hash, created_at, updated_at`

func scanUser(row rowScanner) (clinic.User, error) {
	var u clinic.User
	var isActive int
	var createdAt, updatedAt string

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &isActive,
		&u.PasswordHash, &createdAt, &updatedAt)
	if err != nil {
		return clinic.User{}, err
	}

	u.IsActive = isActive != 0
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u clinic.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.Role, boolToInt(u.IsActive),
		u.PasswordHash, fmtTime(u.CreatedAt), fmtTime(u.UpdatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "users.email") {
			return clinic.ErrEmailAlreadyRegistered
		}
		return storeErr("create user", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id clinic.UserID) (*clinic.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get user", err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*clinic.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, strings.ToLower(email))
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, clinic.ErrNotFound
	}
	if err != nil {
		return nil, storeErr("get user by email", err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]clinic.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	defer rows.Close()

	users := []clinic.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeErr("scan user", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser overwrites name, role, and active flag.
func (s *Store) UpdateUser(ctx context.Context, u clinic.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET name = ?, role = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, u.Role, boolToInt(u.IsActive), fmtTime(u.UpdatedAt), u.ID)
	if err != nil {
		return storeErr("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return clinic.ErrNotFound
	}
	return nil
}

func (s *Store) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, storeErr("count users", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
