/*
Package document renders printable documents for the clinic.

PURPOSE:
  Produces the paginated invoice PDF handed to patients: clinic letterhead,
  invoice metadata, bill-to block, treatment line items, financial summary,
  and the case-level balance summary.

NOTES:
  Amounts are printed with an "Rs." prefix because the core PDF fonts carry
  no rupee glyph. Layout is A4 portrait with millimeter units.
*/
package document

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/dentaldesk/clinic-api/clinic"
)

// Letterhead is the clinic identity printed at the top of every document.
type Letterhead struct {
	ClinicName string
	Address    string
	Phone      string
}

// InvoiceData bundles everything one invoice render needs.
type InvoiceData struct {
	Invoice clinic.Invoice
	Patient clinic.Patient
	Case    clinic.Case
	Items   []clinic.CaseTreatment
}

func money(m clinic.Money) string {
	return "Rs. " + m.String()
}

// RenderInvoice produces the invoice PDF as a byte slice.
func RenderInvoice(data InvoiceData, lh Letterhead) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Letterhead
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, lh.ClinicName, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if lh.Address != "" {
		pdf.CellFormat(0, 5, lh.Address, "", 1, "C", false, 0, "")
	}
	if lh.Phone != "" {
		pdf.CellFormat(0, 5, "Phone: "+lh.Phone, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
	pdf.SetDrawColor(120, 120, 120)
	pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
	pdf.Ln(6)

	// Invoice metadata
	inv := data.Invoice
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 7, "INVOICE "+inv.InvoiceNumber, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(95, 6, "Date: "+inv.CreatedAt.Format("02 Jan 2006"), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Status: "+string(inv.Status), "", 1, "L", false, 0, "")
	pdf.CellFormat(95, 6, "Due: "+inv.DueDate.Format("02 Jan 2006"), "", 0, "L", false, 0, "")
	if inv.PaymentDate != nil {
		pdf.CellFormat(0, 6, fmt.Sprintf("Paid: %s (%s)",
			inv.PaymentDate.Format("02 Jan 2006"), inv.PaymentMethod), "", 1, "L", false, 0, "")
	} else {
		pdf.Ln(6)
	}
	pdf.Ln(4)

	// Bill-to block
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 5, data.Patient.Name, "", 1, "L", false, 0, "")
	if data.Patient.Phone != "" {
		pdf.CellFormat(0, 5, data.Patient.Phone, "", 1, "L", false, 0, "")
	}
	if data.Patient.Address != "" {
		pdf.MultiCell(0, 5, data.Patient.Address, "", "L", false)
	}
	pdf.Ln(4)

	// Line-item table
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(80, 7, "Treatment", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Tooth/Area", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Status", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Cost", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	subtotal := clinic.NewMoney(0)
	for _, item := range data.Items {
		pdf.CellFormat(80, 7, item.TreatmentName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, item.ToothArea, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, string(item.Status), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, money(item.Cost), "1", 1, "R", false, 0, "")
		subtotal = subtotal.Add(item.Cost)
	}
	pdf.Ln(2)

	// Financial summary
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(150, 6, "Subtotal", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, money(subtotal), "", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 7, "Invoice Amount", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, money(inv.Amount), "", 1, "R", false, 0, "")
	pdf.Ln(6)

	// Case balance summary
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Case Balance", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	ledger := data.Case.Ledger
	pdf.CellFormat(63, 6, "Total: "+money(ledger.TotalCost), "1", 0, "L", false, 0, "")
	pdf.CellFormat(63, 6, "Paid: "+money(ledger.AmountPaid), "1", 0, "L", false, 0, "")
	pdf.CellFormat(64, 6, "Pending: "+money(ledger.AmountPending), "1", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}
