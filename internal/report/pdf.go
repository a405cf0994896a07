// Package report renders a daemon's audit history as an operator-facing
// PDF timeline.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/relaywatch/daemonctl"
)

// RenderPDF writes a timeline of history to w: a header naming
// identifier and the generation time, then a table of (kind, at, detail)
// rows in the order passed in by the caller. A long table continues onto
// further pages.
func RenderPDF(w io.Writer, identifier string, history []daemonctl.Event, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Daemon Lifecycle Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 7, "Identifier:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, identifier, "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 7, "Generated:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 7, generatedAt.Format(time.RFC3339), "", 1, "L", false, 0, "")

	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Event History", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	if len(history) == 0 {
		pdf.SetFont("Arial", "I", 10)
		pdf.CellFormat(0, 7, "No events recorded.", "", 1, "L", false, 0, "")
		return pdf.Output(w)
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(220, 220, 220)
	pdf.CellFormat(35, 7, "Kind", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 7, "At", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 7, "Detail", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, evt := range history {
		pdf.CellFormat(35, 7, evt.Kind.String(), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, evt.At.Format("2006-01-02 15:04:05"), "1", 0, "L", false, 0, "")
		detail := evt.Detail
		if detail == "" {
			pdf.CellFormat(0, 7, "", "1", 1, "L", false, 0, "")
			continue
		}
		pdf.MultiCell(0, 7, truncate(detail, 120), "1", "L", false)
	}

	return pdf.Output(w)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...", s[:max-3])
}
