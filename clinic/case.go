/*
case.go - Treatment cases and their line items

PURPOSE:
  A Case is one treatment episode for one patient, optionally assigned to a
  doctor. It carries clinical free text, a priority, a status, the financial
  ledger (ledger.go), and its treatment line items.

PRICING SNAPSHOT:
  CaseTreatment.Cost is copied from the catalog at case-creation time and is
  never re-synced when the catalog price changes. The case total_cost is the
  sum of those snapshots.
*/
package clinic

import (
	"strings"
	"time"
)

// Case is one treatment episode.
type Case struct {
	ID             CaseID
	PatientID      PatientID
	DoctorID       UserID // optional, empty when unassigned
	Status         CaseStatus
	Priority       Priority
	ChiefComplaint string
	Diagnosis      string
	TreatmentPlan  string
	Notes          string
	Ledger         Ledger
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tombstone
}

// CaseTreatment is one line item binding a case to a catalog treatment.
type CaseTreatment struct {
	ID            CaseTreatmentID
	CaseID        CaseID
	TreatmentID   TreatmentID
	TreatmentName string // snapshot, like Cost
	Status        TreatmentStatus
	Cost          Money // frozen at creation, not re-synced with the catalog
	ToothArea     string
	CreatedAt     time.Time
}

// CaseInput is the validated creation form for a case.
type CaseInput struct {
	PatientID      string               `json:"patient_id"`
	DoctorID       string               `json:"doctor_id"`
	Priority       Priority             `json:"priority"`
	ChiefComplaint string               `json:"chief_complaint"`
	Diagnosis      string               `json:"diagnosis"`
	TreatmentPlan  string               `json:"treatment_plan"`
	Notes          string               `json:"notes"`
	Treatments     []CaseTreatmentInput `json:"treatments"`
}

// CaseTreatmentInput selects one catalog treatment for a new case.
type CaseTreatmentInput struct {
	TreatmentID string `json:"treatment_id"`
	ToothArea   string `json:"tooth_area"`
}

func (in *CaseInput) Validate() error {
	if strings.TrimSpace(in.PatientID) == "" {
		return &ValidationError{Field: "patient_id", Message: "patient is required"}
	}
	if strings.TrimSpace(in.ChiefComplaint) == "" {
		return &ValidationError{Field: "chief_complaint", Message: "chief complaint is required"}
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if !in.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "unknown priority"}
	}
	if len(in.Treatments) == 0 {
		return &ValidationError{Field: "treatments", Message: "at least one treatment is required"}
	}
	for _, t := range in.Treatments {
		if strings.TrimSpace(t.TreatmentID) == "" {
			return &ValidationError{Field: "treatments", Message: "treatment_id is required"}
		}
	}
	return nil
}

// NewCase builds a case and its line items from validated input plus the
// catalog rows the input referenced. Costs are snapshot from the catalog and
// summed into the ledger's total_cost.
func NewCase(in CaseInput, catalog map[TreatmentID]Treatment, now time.Time) (Case, []CaseTreatment, error) {
	c := Case{
		ID:             CaseID(NewID()),
		PatientID:      PatientID(in.PatientID),
		DoctorID:       UserID(in.DoctorID),
		Status:         CaseConsultation,
		Priority:       in.Priority,
		ChiefComplaint: strings.TrimSpace(in.ChiefComplaint),
		Diagnosis:      in.Diagnosis,
		TreatmentPlan:  in.TreatmentPlan,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	total := NewMoney(0)
	items := make([]CaseTreatment, 0, len(in.Treatments))
	for _, sel := range in.Treatments {
		t, ok := catalog[TreatmentID(sel.TreatmentID)]
		if !ok {
			return Case{}, nil, &ValidationError{Field: "treatments", Message: "unknown treatment " + sel.TreatmentID}
		}
		items = append(items, CaseTreatment{
			ID:            CaseTreatmentID(NewID()),
			CaseID:        c.ID,
			TreatmentID:   t.ID,
			TreatmentName: t.Name,
			Status:        TreatmentPlanned,
			Cost:          t.Price,
			ToothArea:     sel.ToothArea,
			CreatedAt:     now,
		})
		total = total.Add(t.Price)
	}

	c.Ledger = NewLedger(total)
	return c, items, nil
}

// CaseUpdate is the validated edit form for an existing case. Status changes
// are user-driven and unconstrained here; only reconciliation promotes to
// Completed automatically.
type CaseUpdate struct {
	DoctorID       *string     `json:"doctor_id"`
	Status         *CaseStatus `json:"status"`
	Priority       *Priority   `json:"priority"`
	ChiefComplaint *string     `json:"chief_complaint"`
	Diagnosis      *string     `json:"diagnosis"`
	TreatmentPlan  *string     `json:"treatment_plan"`
	Notes          *string     `json:"notes"`
	TotalCost      *string     `json:"total_cost"` // decimal string
}

func (in *CaseUpdate) Validate() error {
	if in.Status != nil && !in.Status.Valid() {
		return &ValidationError{Field: "status", Message: "unknown case status"}
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "unknown priority"}
	}
	if in.TotalCost != nil {
		m, err := ParseMoney(*in.TotalCost)
		if err != nil {
			return &ValidationError{Field: "total_cost", Message: "invalid amount"}
		}
		if m.IsNegative() {
			return &ValidationError{Field: "total_cost", Message: "amount must not be negative"}
		}
	}
	return nil
}

// Apply overwrites the provided fields. When total_cost changes, the ledger
// is recomputed so amount_pending keeps its invariant.
func (c *Case) Apply(in CaseUpdate, now time.Time) {
	if in.DoctorID != nil {
		c.DoctorID = UserID(*in.DoctorID)
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if in.Priority != nil {
		c.Priority = *in.Priority
	}
	if in.ChiefComplaint != nil {
		c.ChiefComplaint = *in.ChiefComplaint
	}
	if in.Diagnosis != nil {
		c.Diagnosis = *in.Diagnosis
	}
	if in.TreatmentPlan != nil {
		c.TreatmentPlan = *in.TreatmentPlan
	}
	if in.Notes != nil {
		c.Notes = *in.Notes
	}
	if in.TotalCost != nil {
		m, _ := ParseMoney(*in.TotalCost) // validated above
		c.Ledger.TotalCost = m
		c.Ledger = c.Ledger.Recompute()
	}
	c.UpdatedAt = now
}
