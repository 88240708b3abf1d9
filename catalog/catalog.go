/*
Package catalog provides JSON to treatment-catalog conversion.

PURPOSE:
  Converts JSON price-list definitions into clinic.Treatment records. This
  enables catalog configuration without code changes - the clinic can define
  its price list in JSON, and the loader creates the proper records.

JSON SCHEMA:
  [
    {
      "name": "Root Canal Treatment",
      "category": "Endodontics",
      "price": "4500",
      "duration_minutes": 60,
      "description": "Single sitting RCT"
    }
  ]

SEEDING:
  Seed loads the default price list into an empty store on first boot.
  A non-empty treatments table is left alone, so edits made through the
  catalog API survive restarts.

SEE ALSO:
  - clinic/treatment.go: The validated input type used per entry
  - cmd/server: Calls Seed on startup
*/
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dentaldesk/clinic-api/clinic"
)

// Store is the slice of the persistence layer the loader needs.
type Store interface {
	CountTreatments(ctx context.Context) (int, error)
	CreateTreatment(ctx context.Context, t clinic.Treatment) error
}

// Parse converts a JSON price list into validated treatment records.
func Parse(data []byte, now time.Time) ([]clinic.Treatment, error) {
	var inputs []clinic.TreatmentInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("invalid catalog JSON: %w", err)
	}

	treatments := make([]clinic.Treatment, 0, len(inputs))
	for i := range inputs {
		if err := inputs[i].Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		treatments = append(treatments, clinic.NewTreatment(inputs[i], now))
	}
	return treatments, nil
}

// Seed loads the given price list into the store if the catalog is empty.
// Returns the number of entries created (0 when the catalog already has rows).
func Seed(ctx context.Context, store Store, data []byte, now time.Time) (int, error) {
	count, err := store.CountTreatments(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	treatments, err := Parse(data, now)
	if err != nil {
		return 0, err
	}
	for _, t := range treatments {
		if err := store.CreateTreatment(ctx, t); err != nil {
			return 0, err
		}
	}
	return len(treatments), nil
}

// DefaultJSON is the starter price list for a new installation.
const DefaultJSON = `[
  {"name": "Consultation", "category": "General", "price": "500", "duration_minutes": 20},
  {"name": "Scaling and Polishing", "category": "General", "price": "1500", "duration_minutes": 40},
  {"name": "Composite Filling", "category": "Restorative", "price": "1200", "duration_minutes": 45},
  {"name": "Root Canal Treatment", "category": "Endodontics", "price": "4500", "duration_minutes": 60},
  {"name": "Crown (Ceramic)", "category": "Prosthodontics", "price": "6000", "duration_minutes": 45},
  {"name": "Extraction (Simple)", "category": "Oral Surgery", "price": "1000", "duration_minutes": 30},
  {"name": "Extraction (Surgical)", "category": "Oral Surgery", "price": "3500", "duration_minutes": 60},
  {"name": "Dental Implant", "category": "Implantology", "price": "25000", "duration_minutes": 90},
  {"name": "Teeth Whitening", "category": "Cosmetic", "price": "8000", "duration_minutes": 60},
  {"name": "Orthodontic Consultation", "category": "Orthodontics", "price": "800", "duration_minutes": 30}
]`
