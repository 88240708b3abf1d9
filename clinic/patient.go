/*
patient.go - Patient records and intake validation

PURPOSE:
  The patient master record. Identity is the opaque ID; uniqueness is
  enforced on the phone number (not email), and only among non-deleted
  patients so a number can be re-registered after a record is removed.

LIFECYCLE:
  Created via intake, mutated via edit, removed via soft delete (tombstone,
  see types.go). The row is never physically deleted.
*/
package clinic

import (
	"strings"
	"time"
)

// Patient is one patient master record.
type Patient struct {
	ID             PatientID
	Name           string
	Phone          string
	Email          string
	DateOfBirth    string // YYYY-MM-DD, optional
	Gender         string
	Address        string
	MedicalHistory string
	Allergies      string
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tombstone
}

// PatientInput is the validated intake/edit form for a patient.
// Name and phone are required; everything else is free text.
type PatientInput struct {
	Name           string `json:"name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	DateOfBirth    string `json:"date_of_birth"`
	Gender         string `json:"gender"`
	Address        string `json:"address"`
	MedicalHistory string `json:"medical_history"`
	Allergies      string `json:"allergies"`
	Notes          string `json:"notes"`
}

// Validate rejects the input before it reaches the store.
func (in *PatientInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	phone := strings.TrimSpace(in.Phone)
	if phone == "" {
		return &ValidationError{Field: "phone", Message: "phone is required"}
	}
	if len(phone) < 7 {
		return &ValidationError{Field: "phone", Message: "phone number too short"}
	}
	if in.DateOfBirth != "" {
		if _, err := time.Parse("2006-01-02", in.DateOfBirth); err != nil {
			return &ValidationError{Field: "date_of_birth", Message: "use YYYY-MM-DD"}
		}
	}
	return nil
}

// NewPatient builds a patient record from validated input.
func NewPatient(in PatientInput, now time.Time) Patient {
	return Patient{
		ID:             PatientID(NewID()),
		Name:           strings.TrimSpace(in.Name),
		Phone:          strings.TrimSpace(in.Phone),
		Email:          strings.TrimSpace(in.Email),
		DateOfBirth:    in.DateOfBirth,
		Gender:         in.Gender,
		Address:        in.Address,
		MedicalHistory: in.MedicalHistory,
		Allergies:      in.Allergies,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Apply overwrites the editable fields from validated input.
func (p *Patient) Apply(in PatientInput, now time.Time) {
	p.Name = strings.TrimSpace(in.Name)
	p.Phone = strings.TrimSpace(in.Phone)
	p.Email = strings.TrimSpace(in.Email)
	p.DateOfBirth = in.DateOfBirth
	p.Gender = in.Gender
	p.Address = in.Address
	p.MedicalHistory = in.MedicalHistory
	p.Allergies = in.Allergies
	p.Notes = in.Notes
	p.UpdatedAt = now
}
