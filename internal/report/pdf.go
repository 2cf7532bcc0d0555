package report

import (
	"fmt"
	"io"

	"github.com/signintech/gopdf"

	"github.com/palliative-rounds/rounds/internal/schema"
)

// fontPaths are tried in order; the first TTF that loads wins. Covers the
// usual Linux and macOS locations.
var fontPaths = []string{
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/Library/Fonts/Arial Unicode.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// WritePDF renders a printable round sheet: one block per patient with the
// header fields, symptom scores, and latest notes.
func WritePDF(w io.Writer, title string, patients []schema.Patient) error {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	loaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("main", path); err == nil {
			loaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !loaded {
		return fmt.Errorf("no usable TTF font found, install dejavu fonts: %w", fontErr)
	}

	if err := pdf.SetFont("main", "", 18); err != nil {
		return err
	}
	pdf.Cell(nil, title)
	pdf.Br(28)

	for _, p := range patients {
		if pdf.GetY() > 740 {
			pdf.AddPage()
		}

		if err := pdf.SetFont("main", "", 13); err != nil {
			return err
		}
		name := p.Name()
		if name == "" {
			name = "(unnamed)"
		}
		status := ""
		if bool(p.Done) {
			status = "  [seen]"
		}
		pdf.Cell(nil, fmt.Sprintf("%s  .  Room %s  .  Section %s%s", name, p.Bio["Room"], p.Section, status))
		pdf.Br(16)

		if err := pdf.SetFont("main", "", 10); err != nil {
			return err
		}
		for _, col := range []string{"Patient Age", "Admitting Provider", "Cause Of Admission", "Diet", "Isolation"} {
			if v := string(p.Bio[col]); v != "" {
				pdf.Cell(nil, fmt.Sprintf("%s: %s", col, v))
				pdf.Br(12)
			}
		}

		if line := esasLine(p); line != "" {
			pdf.Cell(nil, "ESAS: "+line)
			pdf.Br(12)
		}

		if notes := string(p.LatestNotes); notes != "" {
			lines, _ := pdf.SplitText("Notes: "+notes, 500)
			for _, l := range lines {
				pdf.Cell(nil, l)
				pdf.Br(12)
			}
		}
		pdf.Br(10)
	}

	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// esasLine formats the answered symptom scores in canonical order.
func esasLine(p schema.Patient) string {
	out := ""
	for _, field := range schema.ESASFields {
		score := p.ESAS[field]
		if !score.Answered() {
			continue
		}
		if out != "" {
			out += ", "
		}
		out += fmt.Sprintf("%s %d", field, int(score))
	}
	return out
}
