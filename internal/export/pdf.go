package export

import (
	"io"
	"strings"

	"codeberg.org/go-pdf/fpdf"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/core/tei"
	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

// WritePDF renders the document as a PDF. fontPath may name a UTF-8 TrueType
// font to embed; Devanagari content needs one, since the built-in core fonts
// cover Latin only. Rendering uses the font's glyphs without complex text
// shaping, so conjunct display quality depends on the font.
func WritePDF(w io.Writer, meta Metadata, doc *tei.Document, fontPath string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(meta.Title, true)

	family := "Helvetica"
	if fontPath != "" {
		family = "custom"
		pdf.AddUTF8Font(family, "", fontPath)
	}

	pdf.AddPage()
	pdf.SetFont(family, "", 16)
	pdf.MultiCell(0, 8, meta.Title, "", "C", false)
	if meta.Author != "" {
		pdf.SetFont(family, "", 12)
		pdf.MultiCell(0, 6, meta.Author, "", "C", false)
	}
	pdf.Ln(6)

	for _, sec := range doc.Sections {
		for _, block := range sec.Blocks {
			el, err := xml.Parse(block.XML)
			if err != nil {
				return errors.NewParse("block XML", block.Slug, err.Error())
			}
			pdf.SetFont(family, "", 8)
			pdf.SetTextColor(102, 102, 102)
			pdf.MultiCell(0, 4, block.Slug, "", "L", false)
			pdf.SetFont(family, "", 11)
			pdf.SetTextColor(0, 0, 0)
			pdf.MultiCell(0, 6, strings.TrimSpace(elementText(el)), "", "L", false)
			pdf.Ln(3)
		}
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing PDF")
	}
	return nil
}

// elementText flattens an element to its character data with one line per
// verse line, matching the plain-text rendering.
func elementText(el *xml.Element) string {
	var b strings.Builder
	var visit func(*xml.Element)
	visit = func(e *xml.Element) {
		b.WriteString(e.Text)
		for _, c := range e.Children {
			visit(c)
			if c.Tag == "l" {
				b.WriteString("\n")
			}
			b.WriteString(c.Tail)
		}
	}
	visit(el)
	return b.String()
}
