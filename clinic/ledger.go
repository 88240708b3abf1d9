/*
ledger.go - Case financial ledger and payment reconciliation

PURPOSE:
  The Ledger is the (total_cost, amount_paid, amount_pending) triple carried
  by every treatment case. The store does not enforce its invariant, so every
  writer recomputes it through this package.

CRITICAL INVARIANTS:
  1. amount_pending == max(0, total_cost - amount_paid), always
  2. Overpayment floors pending at zero; no negative balance, no credit model
  3. Reconciliation only ever promotes case status to Completed, never demotes

ATOMICITY:
  Reconcile is a pure computation. The store applies its result to the invoice
  row and the case row inside ONE SQL transaction (store/sqlite), so a reader
  can never observe an invoice marked Paid with a stale case balance, and two
  concurrent payments against the same case cannot lose an update.

SEE ALSO:
  - invoice.go: The Paid transition that triggers reconciliation
  - store/sqlite: MarkInvoicePaid, the transactional application
*/
package clinic

// Ledger is the financial state of a treatment case.
type Ledger struct {
	TotalCost     Money
	AmountPaid    Money
	AmountPending Money
}

// NewLedger returns a ledger for a freshly created case: nothing paid,
// everything pending.
func NewLedger(totalCost Money) Ledger {
	totalCost = totalCost.FloorZero()
	return Ledger{
		TotalCost:     totalCost,
		AmountPaid:    NewMoney(0),
		AmountPending: totalCost,
	}
}

// Recompute re-derives amount_pending from total_cost and amount_paid.
// Called by every writer that touches either input, including case edits
// that change total_cost after payments have been recorded.
func (l Ledger) Recompute() Ledger {
	l.AmountPending = l.TotalCost.Sub(l.AmountPaid).FloorZero()
	return l
}

// Settled reports whether the outstanding balance is zero.
func (l Ledger) Settled() bool {
	return l.AmountPending.IsZero()
}

// ReconcileResult is the outcome of applying one payment to a case.
type ReconcileResult struct {
	Ledger    Ledger
	Status    CaseStatus
	Completed bool // true when this payment brought the balance to zero
}

// Reconcile applies a payment of paidAmount to the case ledger:
//
//  1. amount_paid   += paidAmount
//  2. amount_pending = max(0, total_cost - amount_paid)
//  3. status         = Completed when pending reaches zero, else unchanged
//
// Overpayment is allowed: pending floors at zero and no error is raised.
// The status promotion is one-way; a case already Completed (or Cancelled)
// stays that way regardless of further payments.
func Reconcile(l Ledger, status CaseStatus, paidAmount Money) ReconcileResult {
	next := Ledger{
		TotalCost:  l.TotalCost,
		AmountPaid: l.AmountPaid.Add(paidAmount.FloorZero()),
	}
	next = next.Recompute()

	completed := next.Settled() && status != CaseCompleted && status != CaseCancelled
	if next.Settled() && status != CaseCancelled {
		status = CaseCompleted
	}

	return ReconcileResult{Ledger: next, Status: status, Completed: completed}
}
