/*
invoice.go - Invoice lifecycle

PURPOSE:
  An Invoice bills a specific amount against exactly one case/patient pair.
  The Paid transition is what triggers ledger reconciliation; it must happen
  exactly once per invoice, so MarkPaid rejects a second attempt instead of
  double-counting the payment.

STATUS FLOW:
  Pending -> Paid | Overdue | Cancelled
  Overdue -> Paid | Cancelled
  Paid, Cancelled: terminal. Paid invoices are immutable; there is no void or
  refund path, so the case ledger is never decremented.
*/
package clinic

import (
	"strings"
	"time"
)

// Invoice is one billable line against a case.
type Invoice struct {
	ID            InvoiceID
	InvoiceNumber string
	CaseID        CaseID
	PatientID     PatientID
	Amount        Money
	Status        InvoiceStatus
	DueDate       time.Time
	PaymentDate   *time.Time
	PaymentMethod string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// InvoiceInput is the validated creation form for an invoice.
type InvoiceInput struct {
	InvoiceNumber string `json:"invoice_number"`
	CaseID        string `json:"case_id"`
	PatientID     string `json:"patient_id"`
	Amount        string `json:"amount"`   // decimal string
	DueDate       string `json:"due_date"` // YYYY-MM-DD
	Notes         string `json:"notes"`
}

func (in *InvoiceInput) Validate() error {
	if strings.TrimSpace(in.CaseID) == "" {
		return &ValidationError{Field: "case_id", Message: "case is required"}
	}
	if strings.TrimSpace(in.PatientID) == "" {
		return &ValidationError{Field: "patient_id", Message: "patient is required"}
	}
	amt, err := ParseMoney(in.Amount)
	if err != nil {
		return &ValidationError{Field: "amount", Message: "invalid amount"}
	}
	if amt.IsNegative() || amt.IsZero() {
		return &ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	if in.DueDate != "" {
		if _, err := time.Parse("2006-01-02", in.DueDate); err != nil {
			return &ValidationError{Field: "due_date", Message: "use YYYY-MM-DD"}
		}
	}
	return nil
}

// NewInvoice builds a Pending invoice from validated input. The invoice
// number is taken as given when supplied (it comes from an external numbering
// scheme) and generated from the timestamp otherwise.
func NewInvoice(in InvoiceInput, now time.Time) Invoice {
	amt, _ := ParseMoney(in.Amount) // validated above

	number := strings.TrimSpace(in.InvoiceNumber)
	if number == "" {
		number = "INV-" + now.UTC().Format("20060102-150405")
	}

	due := now.AddDate(0, 0, 14)
	if in.DueDate != "" {
		due, _ = time.Parse("2006-01-02", in.DueDate) // validated above
	}

	return Invoice{
		ID:            InvoiceID(NewID()),
		InvoiceNumber: number,
		CaseID:        CaseID(in.CaseID),
		PatientID:     PatientID(in.PatientID),
		Amount:        amt,
		Status:        InvoicePending,
		DueDate:       due,
		Notes:         in.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Payment captures how an invoice was settled.
type Payment struct {
	Method string    `json:"payment_method"`
	Date   time.Time `json:"payment_date"`
}

// MarkPaid transitions the invoice to Paid. It is the caller's entry point
// into reconciliation: the returned invoice and the delta it contributes to
// the case ledger must be persisted in one transaction (store/sqlite does
// this in MarkInvoicePaid).
func (i Invoice) MarkPaid(p Payment) (Invoice, error) {
	if i.Status == InvoicePaid {
		return i, ErrInvoiceAlreadyPaid
	}
	if i.Status == InvoiceCancelled {
		return i, ErrInvoiceTerminal
	}
	if p.Method == "" {
		return i, &ValidationError{Field: "payment_method", Message: "payment method is required"}
	}
	date := p.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}
	i.Status = InvoicePaid
	i.PaymentDate = &date
	i.PaymentMethod = p.Method
	i.UpdatedAt = date
	return i, nil
}

// Cancel transitions the invoice to Cancelled. Paid invoices cannot be
// cancelled; the ledger has already absorbed the payment.
func (i Invoice) Cancel(now time.Time) (Invoice, error) {
	if i.Status.Terminal() {
		return i, ErrInvoiceTerminal
	}
	i.Status = InvoiceCancelled
	i.UpdatedAt = now
	return i, nil
}

// Overdue reports whether a Pending invoice is past its due date.
func (i Invoice) OverdueAt(now time.Time) bool {
	return i.Status == InvoicePending && now.After(i.DueDate)
}
