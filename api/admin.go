/*
admin.go - Treatment catalog and user management handlers

PURPOSE:
  Admin-only surface: maintaining the treatment price list and the staff
  accounts. Catalog edits never touch existing cases; case treatments hold
  cost snapshots frozen at case creation.
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dentaldesk/clinic-api/clinic"
)

// =============================================================================
// TREATMENT CATALOG
// =============================================================================

// ListTreatments returns the full catalog. Readable by any authenticated
// user; the frontend needs it to build a case.
// GET /api/treatments
func (h *Handler) ListTreatments(w http.ResponseWriter, r *http.Request) {
	treatments, err := h.store.ListTreatments(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	items := make([]TreatmentDTO, 0, len(treatments))
	for _, t := range treatments {
		items = append(items, toTreatmentDTO(t))
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateTreatment adds a catalog entry.
// POST /api/treatments
func (h *Handler) CreateTreatment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionManageCatalog); !ok {
		return
	}

	var in clinic.TreatmentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		h.respondDomainError(w, err)
		return
	}

	t := clinic.NewTreatment(in, time.Now().UTC())
	if err := h.store.CreateTreatment(r.Context(), t); err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTreatmentDTO(t))
}

// UpdateTreatment edits a catalog entry. Price changes affect future cases
// only.
// PUT /api/treatments/{id}
func (h *Handler) UpdateTreatment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionManageCatalog); !ok {
		return
	}

	var in clinic.TreatmentInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		h.respondDomainError(w, err)
		return
	}

	t, err := h.store.GetTreatment(r.Context(), clinic.TreatmentID(chi.URLParam(r, "id")))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	t.Apply(in, time.Now().UTC())
	if err := h.store.UpdateTreatment(r.Context(), *t); err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTreatmentDTO(*t))
}

// DeleteTreatment removes a catalog entry. Existing cases keep their
// snapshots.
// DELETE /api/treatments/{id}
func (h *Handler) DeleteTreatment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionManageCatalog); !ok {
		return
	}

	if err := h.store.DeleteTreatment(r.Context(), clinic.TreatmentID(chi.URLParam(r, "id"))); err != nil {
		h.respondDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// USERS
// =============================================================================

// ListUsers returns all accounts without password hashes.
// GET /api/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionManageUsers); !ok {
		return
	}

	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	items := make([]UserDTO, 0, len(users))
	for _, u := range users {
		items = append(items, toUserDTO(u))
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateUser registers a staff account.
// POST /api/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAction(w, r, clinic.ActionManageUsers); !ok {
		return
	}

	var in clinic.UserInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := in.Validate(); err != nil {
		h.respondDomainError(w, err)
		return
	}

	user, err := clinic.NewUser(in, time.Now().UTC())
	if err != nil {
		h.serverError(w, err, "failed to hash password")
		return
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.log.Info().Str("user_id", string(user.ID)).Str("role", string(user.Role)).Msg("user created")
	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// UpdateUser patches name, role, or the active flag. Deactivation is the
// off-boarding path; accounts are never deleted.
// PUT /api/users/{id}
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.requireAction(w, r, clinic.ActionManageUsers)
	if !ok {
		return
	}

	var req UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != nil && !req.Role.Valid() {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	id := clinic.UserID(chi.URLParam(r, "id"))

	// Admins cannot lock themselves out.
	if string(id) == claims.Subject {
		if (req.IsActive != nil && !*req.IsActive) || (req.Role != nil && *req.Role != clinic.RoleAdmin) {
			writeError(w, http.StatusBadRequest, "cannot deactivate or demote your own account")
			return
		}
	}

	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.store.UpdateUser(r.Context(), *user); err != nil {
		h.respondDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(*user))
}
