/*
invoices.go - Invoice and payment handlers

PURPOSE:
  Billing endpoints. The pay endpoint is the entry point into ledger
  reconciliation: the store performs the invoice transition and the case
  balance update in one transaction and this handler just reports both
  results from that transaction.

SEE ALSO:
  - store/sqlite: MarkInvoicePaid, the atomic reconciliation
  - document/invoice.go: The PDF export
*/
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dentaldesk/clinic-api/clinic"
	"github.com/dentaldesk/clinic-api/document"
	"github.com/dentaldesk/clinic-api/store/sqlite"
)

// CreateInvoice raises a Pending invoice against a case.
// POST /api/invoices
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionWriteInvoice); !ok {
		return
	}

	var in clinic.InvoiceInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		h.respondDomainError(w, err)
		return
	}

	// Both sides of the billing relationship must be live.
	c, err := h.store.GetCase(r.Context(), clinic.CaseID(in.CaseID))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	if c.PatientID != clinic.PatientID(in.PatientID) {
		writeError(w, http.StatusBadRequest, "patient does not match the case")
		return
	}

	inv := clinic.NewInvoice(in, time.Now().UTC())
	if err := h.store.CreateInvoice(r.Context(), inv); err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.log.Info().
		Str("invoice_id", string(inv.ID)).
		Str("case_id", string(inv.CaseID)).
		Str("amount", inv.Amount.String()).
		Msg("invoice created")
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// ListInvoices returns a page of invoices.
// GET /api/invoices?case_id=&patient_id=&status=&search=&limit=&offset=
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sqlite.InvoiceFilter{
		ListOptions: listOptionsFrom(r),
		CaseID:      clinic.CaseID(q.Get("case_id")),
		PatientID:   clinic.PatientID(q.Get("patient_id")),
		Status:      clinic.InvoiceStatus(q.Get("status")),
	}

	invoices, total, err := h.store.ListInvoices(r.Context(), filter)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	items := make([]InvoiceDTO, 0, len(invoices))
	for _, inv := range invoices {
		items = append(items, toInvoiceDTO(inv))
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

// GetInvoice returns one invoice.
// GET /api/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.store.GetInvoice(r.Context(), clinic.InvoiceID(chi.URLParam(r, "id")))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// PayInvoice marks the invoice Paid and reconciles the case ledger in one
// store transaction. Paying an already-Paid invoice returns 409 and changes
// nothing.
// POST /api/invoices/{id}/pay
func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionRecordPayment); !ok {
		return
	}

	var payment clinic.Payment
	if err := decodeJSON(r, &payment); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payment.Date.IsZero() {
		payment.Date = time.Now().UTC()
	}

	inv, c, err := h.store.MarkInvoicePaid(r.Context(), clinic.InvoiceID(chi.URLParam(r, "id")), payment)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.log.Info().
		Str("invoice_id", string(inv.ID)).
		Str("case_id", string(c.ID)).
		Str("amount", inv.Amount.String()).
		Str("amount_pending", c.Ledger.AmountPending.String()).
		Str("case_status", string(c.Status)).
		Msg("invoice paid")

	writeJSON(w, http.StatusOK, PaymentResultDTO{
		Invoice: toInvoiceDTO(*inv),
		Case:    toCaseDTO(*c),
	})
}

// CancelInvoice voids a Pending or Overdue invoice. Paid invoices cannot be
// cancelled; the ledger has already absorbed the payment.
// POST /api/invoices/{id}/cancel
func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionWriteInvoice); !ok {
		return
	}

	inv, err := h.store.CancelInvoice(r.Context(), clinic.InvoiceID(chi.URLParam(r, "id")), time.Now().UTC())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.log.Info().Str("invoice_id", string(inv.ID)).Msg("invoice cancelled")
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv))
}

// InvoicePDF streams the printable invoice.
// GET /api/invoices/{id}/pdf
func (h *Handler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	inv, err := h.store.GetInvoice(r.Context(), clinic.InvoiceID(chi.URLParam(r, "id")))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	patient, err := h.store.GetPatient(r.Context(), inv.PatientID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	c, err := h.store.GetCase(r.Context(), inv.CaseID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	items, err := h.store.ListCaseTreatments(r.Context(), inv.CaseID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	pdf, err := document.RenderInvoice(document.InvoiceData{
		Invoice: *inv,
		Patient: *patient,
		Case:    *c,
		Items:   items,
	}, h.opts.Letterhead)
	if err != nil {
		h.serverError(w, err, "failed to render invoice pdf")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+inv.InvoiceNumber+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Write(pdf)
}
