// Package pdfexport renders a comparison snapshot as a PDF document.
package pdfexport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// Render produces a PDF with the client/vehicle header and one block per
// compared plan. Plans are expected to belong to a single version.
func Render(c *models.Cotizacion, plans []*models.ComparedPlan) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Comparativo de cotizacion", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Comparativo de cotizacion", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	header := [][2]string{
		{"Cliente", c.Nombre},
		{"Cedula", c.Cedula},
		{"Ciudad", c.Ciudad},
		{"Vehiculo", strings.TrimSpace(fmt.Sprintf("%s %s %d", c.Marca, c.Modelo, c.Anio))},
		{"Placa", c.Placa},
		{"Valor asegurado", fmt.Sprintf("USD %.2f", c.Valor)},
	}
	for _, row := range header {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 6, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	for _, p := range plans {
		pdf.SetFont("Helvetica", "B", 12)
		title := fmt.Sprintf("%s - %s", strings.ToUpper(p.Aseguradora), p.Plan)
		if p.Selected {
			title += " (seleccionado)"
		}
		pdf.CellFormat(0, 8, title, "B", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6,
			fmt.Sprintf("Prima neta: USD %.2f    Prima total: USD %.2f    Tasa: %.2f%%",
				p.PrimaNeta, p.PrimaTotal, p.Tasa),
			"", 1, "L", false, 0, "")

		writeList(pdf, "Coberturas", p.Coberturas)
		writeList(pdf, "Beneficios", p.Beneficios)
		writeList(pdf, "Deducibles", p.Deducibles)
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("rendering pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeList(pdf *fpdf.Fpdf, label string, items []string) {
	if len(items) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, label+":", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, item := range items {
		pdf.MultiCell(0, 5, "  - "+item, "", "L", false)
	}
}
