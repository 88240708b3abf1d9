/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - Request bodies reuse the clinic Input structs directly; they already
    carry json tags and Validate methods.

MONEY:
  Amounts are serialized as fixed-point decimal strings ("800.00") to avoid
  JSON float rounding on billing data.
*/
package api

import (
	"time"

	"github.com/dentaldesk/clinic-api/clinic"
)

// listResponse wraps every paginated list with its total count.
type listResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// PATIENTS
// =============================================================================

type PatientDTO struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Address        string `json:"address,omitempty"`
	MedicalHistory string `json:"medical_history,omitempty"`
	Allergies      string `json:"allergies,omitempty"`
	Notes          string `json:"notes,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toPatientDTO(p clinic.Patient) PatientDTO {
	return PatientDTO{
		ID:             string(p.ID),
		Name:           p.Name,
		Phone:          p.Phone,
		Email:          p.Email,
		DateOfBirth:    p.DateOfBirth,
		Gender:         p.Gender,
		Address:        p.Address,
		MedicalHistory: p.MedicalHistory,
		Allergies:      p.Allergies,
		Notes:          p.Notes,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
}

// PatientDetailDTO nests the patient's cases (each with its treatments).
type PatientDetailDTO struct {
	PatientDTO
	Cases []CaseDetailDTO `json:"cases"`
}

// =============================================================================
// CASES
// =============================================================================

type CaseDTO struct {
	ID             string `json:"id"`
	PatientID      string `json:"patient_id"`
	DoctorID       string `json:"doctor_id,omitempty"`
	Status         string `json:"status"`
	Priority       string `json:"priority"`
	ChiefComplaint string `json:"chief_complaint"`
	Diagnosis      string `json:"diagnosis,omitempty"`
	TreatmentPlan  string `json:"treatment_plan,omitempty"`
	Notes          string `json:"notes,omitempty"`
	TotalCost      string `json:"total_cost"`
	AmountPaid     string `json:"amount_paid"`
	AmountPending  string `json:"amount_pending"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func toCaseDTO(c clinic.Case) CaseDTO {
	return CaseDTO{
		ID:             string(c.ID),
		PatientID:      string(c.PatientID),
		DoctorID:       string(c.DoctorID),
		Status:         string(c.Status),
		Priority:       string(c.Priority),
		ChiefComplaint: c.ChiefComplaint,
		Diagnosis:      c.Diagnosis,
		TreatmentPlan:  c.TreatmentPlan,
		Notes:          c.Notes,
		TotalCost:      c.Ledger.TotalCost.String(),
		AmountPaid:     c.Ledger.AmountPaid.String(),
		AmountPending:  c.Ledger.AmountPending.String(),
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      c.UpdatedAt.Format(time.RFC3339),
	}
}

type CaseTreatmentDTO struct {
	ID            string `json:"id"`
	TreatmentID   string `json:"treatment_id"`
	TreatmentName string `json:"treatment_name"`
	Status        string `json:"status"`
	Cost          string `json:"cost"`
	ToothArea     string `json:"tooth_area,omitempty"`
}

func toCaseTreatmentDTO(item clinic.CaseTreatment) CaseTreatmentDTO {
	return CaseTreatmentDTO{
		ID:            string(item.ID),
		TreatmentID:   string(item.TreatmentID),
		TreatmentName: item.TreatmentName,
		Status:        string(item.Status),
		Cost:          item.Cost.String(),
		ToothArea:     item.ToothArea,
	}
}

// CaseDetailDTO nests line items and invoices under the case.
type CaseDetailDTO struct {
	CaseDTO
	Treatments []CaseTreatmentDTO `json:"treatments"`
	Invoices   []InvoiceDTO       `json:"invoices,omitempty"`
}

// =============================================================================
// INVOICES
// =============================================================================

type InvoiceDTO struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	CaseID        string `json:"case_id"`
	PatientID     string `json:"patient_id"`
	Amount        string `json:"amount"`
	Status        string `json:"status"`
	DueDate       string `json:"due_date"`
	PaymentDate   string `json:"payment_date,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Notes         string `json:"notes,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toInvoiceDTO(inv clinic.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:            string(inv.ID),
		InvoiceNumber: inv.InvoiceNumber,
		CaseID:        string(inv.CaseID),
		PatientID:     string(inv.PatientID),
		Amount:        inv.Amount.String(),
		Status:        string(inv.Status),
		DueDate:       inv.DueDate.Format("2006-01-02"),
		PaymentMethod: inv.PaymentMethod,
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.PaymentDate != nil {
		dto.PaymentDate = inv.PaymentDate.Format(time.RFC3339)
	}
	return dto
}

// PaymentResultDTO is returned by the pay endpoint: the paid invoice plus the
// reconciled case, both from the same transaction.
type PaymentResultDTO struct {
	Invoice InvoiceDTO `json:"invoice"`
	Case    CaseDTO    `json:"case"`
}

// =============================================================================
// TREATMENT CATALOG
// =============================================================================

type TreatmentDTO struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category,omitempty"`
	Price           string `json:"price"`
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description,omitempty"`
}

func toTreatmentDTO(t clinic.Treatment) TreatmentDTO {
	return TreatmentDTO{
		ID:              string(t.ID),
		Name:            t.Name,
		Category:        t.Category,
		Price:           t.Price.String(),
		DurationMinutes: t.DurationMinutes,
		Description:     t.Description,
	}
}

// =============================================================================
// USERS & AUTH
// =============================================================================

// UserDTO never carries the password hash.
type UserDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

func toUserDTO(u clinic.User) UserDTO {
	return UserDTO{
		ID:       string(u.ID),
		Email:    u.Email,
		Name:     u.Name,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

// UserUpdateRequest patches name, role, or active flag.
type UserUpdateRequest struct {
	Name     *string      `json:"name"`
	Role     *clinic.Role `json:"role"`
	IsActive *bool        `json:"is_active"`
}

// TreatmentStatusRequest moves one case line item.
type TreatmentStatusRequest struct {
	Status clinic.TreatmentStatus `json:"status"`
}
