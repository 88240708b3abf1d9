// treatment.go - Treatment catalog (static price list)
//
// Catalog entries are independently CRUD-managed and have no lifecycle
// coupling to cases beyond being copied at CaseTreatment creation.
package clinic

import (
	"strings"
	"time"
)

// Treatment is one catalog price-list entry.
type Treatment struct {
	ID              TreatmentID
	Name            string
	Category        string
	Price           Money
	DurationMinutes int
	Description     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TreatmentInput is the validated form for a catalog entry.
type TreatmentInput struct {
	Name            string `json:"name"`
	Category        string `json:"category"`
	Price           string `json:"price"` // decimal string
	DurationMinutes int    `json:"duration_minutes"`
	Description     string `json:"description"`
}

func (in *TreatmentInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	price, err := ParseMoney(in.Price)
	if err != nil {
		return &ValidationError{Field: "price", Message: "invalid amount"}
	}
	if price.IsNegative() {
		return &ValidationError{Field: "price", Message: "price must not be negative"}
	}
	if in.DurationMinutes < 0 {
		return &ValidationError{Field: "duration_minutes", Message: "duration must not be negative"}
	}
	return nil
}

// NewTreatment builds a catalog entry from validated input.
func NewTreatment(in TreatmentInput, now time.Time) Treatment {
	price, _ := ParseMoney(in.Price) // validated above
	return Treatment{
		ID:              TreatmentID(NewID()),
		Name:            strings.TrimSpace(in.Name),
		Category:        in.Category,
		Price:           price,
		DurationMinutes: in.DurationMinutes,
		Description:     in.Description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Apply overwrites the editable fields from validated input. Existing
// CaseTreatment cost snapshots are unaffected.
func (t *Treatment) Apply(in TreatmentInput, now time.Time) {
	price, _ := ParseMoney(in.Price)
	t.Name = strings.TrimSpace(in.Name)
	t.Category = in.Category
	t.Price = price
	t.DurationMinutes = in.DurationMinutes
	t.Description = in.Description
	t.UpdatedAt = now
}
