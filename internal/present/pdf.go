package present

import (
	"fmt"
	"io"

	"github.com/passbi/passbi_itinerary/internal/models"
	"github.com/phpdave11/gofpdf"
)

// PDFOptions controls PDF rendering
type PDFOptions struct {
	Title string
	// FontPath points to a UTF-8 TrueType font. Without one the core
	// Helvetica font is used and characters outside cp1252 are lost.
	FontPath string
}

// PDF writes ranked itineraries as an A4 document with the same content as
// Text.
func PDF(w io.Writer, itineraries []models.Itinerary, dir models.Directory, opts PDFOptions) error {
	title := opts.Title
	if title == "" {
		title = "Itineraries"
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		pdf.AddUTF8Font("body", "", opts.FontPath)
		pdf.AddUTF8Font("body", "B", opts.FontPath)
		family = "body"
		tr = func(s string) string { return s }
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to load font: %w", err)
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 18)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(12)

	pdf.SetFont(family, "", 12)
	if len(itineraries) == 0 {
		pdf.Cell(0, 7, "No itineraries found")
		pdf.Ln(7)
	} else {
		pdf.Cell(0, 7, fmt.Sprintf("Found %d itineraries:", len(itineraries)))
		pdf.Ln(9)
	}

	for i, it := range itineraries {
		pdf.SetFont(family, "B", 12)
		pdf.Cell(0, 7, fmt.Sprintf("Itinerary #%d", i+1))
		pdf.Ln(7)

		pdf.SetFont(family, "", 11)
		pdf.Cell(0, 6, fmt.Sprintf("Total time: %s h    Travel time: %s h", Hours(it.TotalTime, 2), Hours(it.TravelTime, 2)))
		pdf.Ln(7)

		for _, leg := range it.Legs {
			pdf.SetFont(family, "B", 11)
			pdf.Cell(0, 6, tr(fmt.Sprintf("%s -> %s", dir.Name(leg.FromCode), dir.Name(leg.ToCode))))
			pdf.Ln(6)

			pdf.SetFont(family, "", 10)
			lines := []string{
				"Transport: " + transportLabel(leg.LegCandidate),
				fmt.Sprintf("Local departure: %s    Local arrival: %s",
					leg.DepartureLocal.Format(TimeLayout), leg.ArrivalLocal.Format(TimeLayout)),
				fmt.Sprintf("Travel: %s h    Waiting: %s h", Hours(leg.Duration, 1), Hours(leg.Waiting, 1)),
			}
			for _, s := range lines {
				pdf.Cell(0, 5, tr(s))
				pdf.Ln(5)
			}
			pdf.Ln(2)
		}

		pdf.Line(10, pdf.GetY(), 200, pdf.GetY())
		pdf.Ln(4)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}
