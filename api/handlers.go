/*
handlers.go - HTTP handlers for patients and treatment cases

PURPOSE:
  Translates HTTP requests into domain operations: decode and validate the
  body, check the role policy, call the store, map the result (or error) to
  a JSON response. Handlers hold no business rules; validation lives on the
  input structs and reconciliation lives in the store transaction.

ERROR MAPPING:
  clinic.ErrNotFound            -> 404
  clinic.ErrForbidden           -> 403
  *clinic.ValidationError       -> 400
  phone/email conflicts,
  already-paid, terminal status -> 409
  anything else                 -> 500 (logged, body stays generic)

SEE ALSO:
  - invoices.go: Invoice and payment handlers
  - admin.go: Treatment catalog and user management
  - server.go: Route wiring
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dentaldesk/clinic-api/clinic"
	"github.com/dentaldesk/clinic-api/document"
	"github.com/dentaldesk/clinic-api/store/sqlite"
)

// Options carries the static configuration the handlers need.
type Options struct {
	JWTSecret  string
	TokenTTL   time.Duration
	Letterhead document.Letterhead
}

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	store *sqlite.Store
	authz clinic.Authorizer
	opts  Options
	log   zerolog.Logger
}

// NewHandler creates a handler with the given dependencies.
func NewHandler(store *sqlite.Store, authz clinic.Authorizer, opts Options, log zerolog.Logger) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	return &Handler{store: store, authz: authz, opts: opts, log: log}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// serverError logs the underlying error and returns a generic 500.
func (h *Handler) serverError(w http.ResponseWriter, err error, msg string) {
	h.log.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// respondDomainError maps a domain error to the right status code.
func (h *Handler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case clinic.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	case clinic.IsForbidden(err):
		writeError(w, http.StatusForbidden, "insufficient permissions")
	case errors.Is(err, clinic.ErrInvoiceAlreadyPaid):
		writeError(w, http.StatusConflict, "invoice is already paid")
	case errors.Is(err, clinic.ErrInvoiceTerminal):
		writeError(w, http.StatusConflict, "invoice is in a terminal status")
	case errors.Is(err, clinic.ErrPhoneAlreadyRegistered):
		writeError(w, http.StatusConflict, "phone number is already registered")
	case errors.Is(err, clinic.ErrEmailAlreadyRegistered):
		writeError(w, http.StatusConflict, "email is already registered")
	case clinic.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.serverError(w, err, "request failed")
	}
}

func listOptionsFrom(r *http.Request) sqlite.ListOptions {
	q := r.URL.Query()
	opts := sqlite.ListOptions{Search: q.Get("search")}
	opts.Limit, _ = strconv.Atoi(q.Get("limit"))
	opts.Offset, _ = strconv.Atoi(q.Get("offset"))
	return opts
}

// =============================================================================
// PATIENT HANDLERS
// =============================================================================

// CreatePatient registers a new patient.
// POST /api/patients
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionWritePatient); !ok {
		return
	}

	var in clinic.PatientInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		h.respondDomainError(w, err)
		return
	}

	patient := clinic.NewPatient(in, time.Now().UTC())
	if err := h.store.CreatePatient(r.Context(), patient); err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.log.Info().Str("patient_id", string(patient.ID)).Msg("patient created")
	writeJSON(w, http.StatusCreated, toPatientDTO(patient))
}

// ListPatients returns a page of patients with the total count.
// GET /api/patients?search=&limit=&offset=
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, total, err := h.store.ListPatients(r.Context(), listOptionsFrom(r))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	items := make([]PatientDTO, 0, len(patients))
	for _, p := range patients {
		items = append(items, toPatientDTO(p))
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

// GetPatient returns one patient with their cases and case treatments.
// GET /api/patients/{id}
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	id := clinic.PatientID(chi.URLParam(r, "id"))

	patient, err := h.store.GetPatient(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	cases, _, err := h.store.ListCases(r.Context(), sqlite.CaseFilter{PatientID: id})
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	detail := PatientDetailDTO{PatientDTO: toPatientDTO(*patient)}
	detail.Cases = make([]CaseDetailDTO, 0, len(cases))
	for _, c := range cases {
		caseDetail, err := h.caseDetail(r, c, false)
		if err != nil {
			h.respondDomainError(w, err)
			return
		}
		detail.Cases = append(detail.Cases, caseDetail)
	}

	writeJSON(w, http.StatusOK, detail)
}

// UpdatePatient replaces the patient's editable fields.
// PUT /api/patients/{id}
func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionWritePatient); !ok {
		return
	}

	var in clinic.PatientInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		h.respondDomainError(w, err)
		return
	}

	patient, err := h.store.GetPatient(r.Context(), clinic.PatientID(chi.URLParam(r, "id")))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	patient.Apply(in, time.Now().UTC())
	if err := h.store.UpdatePatient(r.Context(), *patient); err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPatientDTO(*patient))
}

// DeletePatient soft-deletes a patient. Admin only. The record is stamped
// with deleted_at/deleted_by and disappears from all default reads.
// DELETE /api/patients/{id}
func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireAction(w, r, clinic.ActionDeletePatient)
	if !ok {
		return
	}

	id := clinic.PatientID(chi.URLParam(r, "id"))
	if err := h.store.SoftDeletePatient(r.Context(), id, claims.Subject, time.Now().UTC()); err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.log.Info().
		Str("patient_id", string(id)).
		Str("deleted_by", claims.Subject).
		Msg("patient soft-deleted")
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CASE HANDLERS
// =============================================================================

// CreateCase opens a treatment case with at least one planned treatment.
// Costs are snapshotted from the catalog at creation time.
// POST /api/cases
func (h *Handler) CreateCase(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionWriteCase); !ok {
		return
	}

	var in clinic.CaseInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		h.respondDomainError(w, err)
		return
	}

	// The patient must exist and be live.
	if _, err := h.store.GetPatient(r.Context(), clinic.PatientID(in.PatientID)); err != nil {
		h.respondDomainError(w, err)
		return
	}

	ids := make([]clinic.TreatmentID, 0, len(in.Treatments))
	for _, t := range in.Treatments {
		ids = append(ids, clinic.TreatmentID(t.TreatmentID))
	}
	catalog, err := h.store.GetTreatmentsByIDs(r.Context(), ids)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	c, items, err := clinic.NewCase(in, catalog, time.Now().UTC())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	if err := h.store.CreateCase(r.Context(), c, items); err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.log.Info().
		Str("case_id", string(c.ID)).
		Str("patient_id", string(c.PatientID)).
		Str("total_cost", c.Ledger.TotalCost.String()).
		Msg("case created")

	detail := CaseDetailDTO{CaseDTO: toCaseDTO(c)}
	detail.Treatments = make([]CaseTreatmentDTO, 0, len(items))
	for _, item := range items {
		detail.Treatments = append(detail.Treatments, toCaseTreatmentDTO(item))
	}
	writeJSON(w, http.StatusCreated, detail)
}

// ListCases returns a page of cases filtered by patient and status.
// GET /api/cases?patient_id=&status=&search=&limit=&offset=
func (h *Handler) ListCases(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sqlite.CaseFilter{
		ListOptions: listOptionsFrom(r),
		PatientID:   clinic.PatientID(q.Get("patient_id")),
		Status:      clinic.CaseStatus(q.Get("status")),
	}

	cases, total, err := h.store.ListCases(r.Context(), filter)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	items := make([]CaseDTO, 0, len(cases))
	for _, c := range cases {
		items = append(items, toCaseDTO(c))
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: total})
}

// GetCase returns one case with its treatments and invoices.
// GET /api/cases/{id}
func (h *Handler) GetCase(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.GetCase(r.Context(), clinic.CaseID(chi.URLParam(r, "id")))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	detail, err := h.caseDetail(r, *c, true)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// caseDetail assembles the nested case view.
func (h *Handler) caseDetail(r *http.Request, c clinic.Case, withInvoices bool) (CaseDetailDTO, error) {
	detail := CaseDetailDTO{CaseDTO: toCaseDTO(c)}

	items, err := h.store.ListCaseTreatments(r.Context(), c.ID)
	if err != nil {
		return detail, err
	}
	detail.Treatments = make([]CaseTreatmentDTO, 0, len(items))
	for _, item := range items {
		detail.Treatments = append(detail.Treatments, toCaseTreatmentDTO(item))
	}

	if withInvoices {
		invoices, _, err := h.store.ListInvoices(r.Context(), sqlite.InvoiceFilter{CaseID: c.ID})
		if err != nil {
			return detail, err
		}
		detail.Invoices = make([]InvoiceDTO, 0, len(invoices))
		for _, inv := range invoices {
			detail.Invoices = append(detail.Invoices, toInvoiceDTO(inv))
		}
	}
	return detail, nil
}

// UpdateCase patches case fields. Editing total_cost recomputes the pending
// balance and may complete the case when the balance reaches zero.
// PUT /api/cases/{id}
func (h *Handler) UpdateCase(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionWriteCase); !ok {
		return
	}

	var in clinic.CaseUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		h.respondDomainError(w, err)
		return
	}

	c, err := h.store.GetCase(r.Context(), clinic.CaseID(chi.URLParam(r, "id")))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	c.Apply(in, time.Now().UTC())
	if err := h.store.UpdateCase(r.Context(), *c); err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCaseDTO(*c))
}

// DeleteCase soft-deletes a case. Admin only. Invoices keep their case_id;
// there is no cascade.
// DELETE /api/cases/{id}
func (h *Handler) DeleteCase(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireAction(w, r, clinic.ActionDeleteCase)
	if !ok {
		return
	}

	id := clinic.CaseID(chi.URLParam(r, "id"))
	if err := h.store.SoftDeleteCase(r.Context(), id, claims.Subject, time.Now().UTC()); err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.log.Info().
		Str("case_id", string(id)).
		Str("deleted_by", claims.Subject).
		Msg("case soft-deleted")
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCaseTreatmentStatus moves one line item through its lifecycle.
// Costs stay frozen; only the status changes.
// PUT /api/cases/{id}/treatments/{tid}
func (h *Handler) UpdateCaseTreatmentStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionWriteCase); !ok {
		return
	}

	var req TreatmentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "invalid treatment status")
		return
	}

	caseID := clinic.CaseID(chi.URLParam(r, "id"))
	itemID := clinic.CaseTreatmentID(chi.URLParam(r, "tid"))
	if err := h.store.UpdateCaseTreatmentStatus(r.Context(), caseID, itemID, req.Status); err != nil {
		h.respondDomainError(w, err)
		return
	}

	items, err := h.store.ListCaseTreatments(r.Context(), caseID)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}
	dtos := make([]CaseTreatmentDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, toCaseTreatmentDTO(item))
	}
	writeJSON(w, http.StatusOK, dtos)
}
