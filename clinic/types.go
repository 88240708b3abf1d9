/*
Package clinic provides the core domain model for the clinic administration system.

PURPOSE:
  This package contains the entities and pure business logic for managing a
  dental practice: patients, treatment cases, the per-case financial ledger,
  invoices, the treatment catalog, and role-gated user accounts.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A non-negative currency amount with fixed-point semantics
  - Status enums: CaseStatus, Priority, InvoiceStatus, TreatmentStatus, Role
  - Entity IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors in billing
  2. Type Safety: Strong typing for IDs prevents mixing patient/case/invoice IDs
  3. Purity: Ledger math is side-effect free; persistence lives in store/sqlite
  4. Validation at the boundary: typed Input structs reject bad state before
     anything reaches the store

SEE ALSO:
  - ledger.go: Case ledger arithmetic and payment reconciliation
  - invoice.go: Invoice lifecycle
  - authz.go: Role-based authorization policy
*/
package clinic

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount with fixed-point semantics
// =============================================================================

// Money is a currency amount. Amounts are expected to be non-negative; the
// ledger floors subtraction at zero rather than going negative.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

// ParseMoney parses a decimal string ("800", "499.50") into a Money.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Value: d}, nil
}

func (m Money) Add(o Money) Money        { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money        { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) IsZero() bool             { return m.Value.IsZero() }
func (m Money) IsNegative() bool         { return m.Value.IsNegative() }
func (m Money) GreaterThan(o Money) bool { return m.Value.GreaterThan(o.Value) }
func (m Money) Equal(o Money) bool       { return m.Value.Equal(o.Value) }
func (m Money) String() string           { return m.Value.StringFixed(2) }

// FloorZero clamps a negative amount to zero. The ledger invariant
// amount_pending == max(0, total_cost - amount_paid) is built on this.
func (m Money) FloorZero() Money {
	if m.Value.IsNegative() {
		return Money{Value: decimal.Zero}
	}
	return m
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PatientID string
type CaseID string
type CaseTreatmentID string
type InvoiceID string
type TreatmentID string
type UserID string

// NewID returns a fresh opaque identifier.
func NewID() string {
	return uuid.NewString()
}

// =============================================================================
// STATUS ENUMS
// =============================================================================

// CaseStatus is the lifecycle stage of a treatment case. Transitions are
// user-driven and unconstrained, with one exception: only payment
// reconciliation promotes a case to Completed (see ledger.go).
type CaseStatus string

const (
	CaseConsultation CaseStatus = "Consultation"
	CaseInProgress   CaseStatus = "In Progress"
	CaseCompleted    CaseStatus = "Completed"
	CaseCancelled    CaseStatus = "Cancelled"
)

func (s CaseStatus) Valid() bool {
	switch s {
	case CaseConsultation, CaseInProgress, CaseCompleted, CaseCancelled:
		return true
	}
	return false
}

// Priority is the clinical urgency of a case.
type Priority string

const (
	PriorityLow       Priority = "Low"
	PriorityMedium    Priority = "Medium"
	PriorityHigh      Priority = "High"
	PriorityEmergency Priority = "Emergency"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency:
		return true
	}
	return false
}

// InvoiceStatus is the billing state of an invoice.
//
// Transitions:
//   Pending -> Paid | Overdue | Cancelled
//   Overdue -> Paid | Cancelled   (an overdue bill can still be settled)
//   Paid, Cancelled               terminal
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "Pending"
	InvoicePaid      InvoiceStatus = "Paid"
	InvoiceOverdue   InvoiceStatus = "Overdue"
	InvoiceCancelled InvoiceStatus = "Cancelled"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoicePending, InvoicePaid, InvoiceOverdue, InvoiceCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoicePaid || s == InvoiceCancelled
}

// TreatmentStatus is the state of one treatment line item within a case.
type TreatmentStatus string

const (
	TreatmentPlanned    TreatmentStatus = "Planned"
	TreatmentInProgress TreatmentStatus = "In Progress"
	TreatmentCompleted  TreatmentStatus = "Completed"
	TreatmentCancelled  TreatmentStatus = "Cancelled"
)

func (s TreatmentStatus) Valid() bool {
	switch s {
	case TreatmentPlanned, TreatmentInProgress, TreatmentCompleted, TreatmentCancelled:
		return true
	}
	return false
}

// Role is the access level of an authorized user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RoleHelper  Role = "helper"
	RolePatient Role = "patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RoleHelper, RolePatient:
		return true
	}
	return false
}

// =============================================================================
// SOFT DELETE - Tombstone fields shared by patients and cases
// =============================================================================

// Tombstone marks a record as removed without physically deleting the row.
// A non-nil DeletedAt excludes the record from all default reads.
type Tombstone struct {
	DeletedAt *time.Time
	DeletedBy string
}

func (t Tombstone) Deleted() bool {
	return t.DeletedAt != nil
}
