package document_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentaldesk/clinic-api/clinic"
	"github.com/dentaldesk/clinic-api/document"
)

func TestRenderInvoice(t *testing.T) {
	now := time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC)

	data := document.InvoiceData{
		Invoice: clinic.Invoice{
			ID:            "inv-1",
			InvoiceNumber: "INV-2026-0042",
			Amount:        clinic.NewMoney(800),
			Status:        clinic.InvoicePaid,
			DueDate:       now.AddDate(0, 0, 14),
			PaymentDate:   &now,
			PaymentMethod: "UPI",
			CreatedAt:     now,
		},
		Patient: clinic.Patient{
			Name:    "Asha Rao",
			Phone:   "9876543210",
			Address: "12 MG Road, Bengaluru",
		},
		Case: clinic.Case{
			Ledger: clinic.Ledger{
				TotalCost:  clinic.NewMoney(800),
				AmountPaid: clinic.NewMoney(800),
			}.Recompute(),
		},
		Items: []clinic.CaseTreatment{
			{TreatmentName: "Root Canal Treatment", ToothArea: "16", Status: clinic.TreatmentCompleted, Cost: clinic.NewMoney(500)},
			{TreatmentName: "Crown (Ceramic)", ToothArea: "16", Status: clinic.TreatmentPlanned, Cost: clinic.NewMoney(300)},
		},
	}

	out, err := document.RenderInvoice(data, document.Letterhead{
		ClinicName: "DentalDesk Clinic",
		Address:    "12 MG Road, Bengaluru",
		Phone:      "080-12345678",
	})

	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]), "output should be a PDF document")
}

func TestRenderInvoice_NoItems(t *testing.T) {
	data := document.InvoiceData{
		Invoice: clinic.Invoice{
			InvoiceNumber: "INV-1",
			Amount:        clinic.NewMoney(500),
			Status:        clinic.InvoicePending,
			DueDate:       time.Now().UTC(),
			CreatedAt:     time.Now().UTC(),
		},
		Patient: clinic.Patient{Name: "Ravi Kumar"},
		Case:    clinic.Case{Ledger: clinic.NewLedger(clinic.NewMoney(500))},
	}

	out, err := document.RenderInvoice(data, document.Letterhead{ClinicName: "DentalDesk Clinic"})

	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
