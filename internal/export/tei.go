// Package export renders a published text into its download formats: TEI
// XML (the canonical format every other export derives from), plain text,
// PDF, and a compressed bundle of all of them.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/FocuswithJustin/TulsiPress/core/encoding"
	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/core/tei"
	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

// teiNamespace is the TEI P5 namespace.
const teiNamespace = "http://www.tei-c.org/ns/1.0"

// Metadata describes the text being exported, drawn from its project.
type Metadata struct {
	Title        string
	Author       string
	Publisher    string
	WorldcatLink string
	Language     string
	// FromProofing distinguishes texts exported from the proofing system
	// from third-party imports.
	FromProofing bool
}

// WriteTEI writes a complete TEI file for the document: a teiHeader built
// from the metadata, then one <div> per section with each block's XML
// stamped with its slug as n.
func WriteTEI(w io.Writer, meta Metadata, doc *tei.Document) error {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="utf-8"?>` + "\n")
	b.WriteString(`<TEI xmlns="` + teiNamespace + `">` + "\n")

	writeHeader(&b, meta)

	b.WriteString("<text>\n<body>\n")
	for _, sec := range doc.Sections {
		b.WriteString(`<div xml:id="` + encoding.EscapeXMLAttr(sec.Slug) + `">` + "\n")
		for _, block := range sec.Blocks {
			el, err := xml.Parse(block.XML)
			if err != nil {
				return errors.NewParse("block XML", block.Slug, err.Error())
			}
			el.SetAttr("n", block.Slug)
			b.WriteString(el.String())
			b.WriteString("\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</body>\n</text>\n</TEI>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeHeader(b *strings.Builder, meta Metadata) {
	text := func(tag, content string) {
		fmt.Fprintf(b, "<%s>%s</%s>\n", tag, encoding.EscapeXMLText(content), tag)
	}

	author := meta.Author
	if author == "" {
		author = "(missing)"
	}
	publisher := meta.Publisher
	if publisher == "" {
		publisher = "TulsiPress"
	}

	b.WriteString("<teiHeader>\n<fileDesc>\n<titleStmt>\n")
	text("title", meta.Title)
	text("author", author)
	b.WriteString("</titleStmt>\n<publicationStmt>\n")
	text("publisher", publisher)
	b.WriteString("<availability><p>Freely available.</p></availability>\n")
	b.WriteString("</publicationStmt>\n<notesStmt>\n")
	if meta.FromProofing {
		text("note", "This text has been created by direct export from the proofing system.")
	} else {
		text("note", "This text has been created by third-party import from another site.")
	}
	if meta.WorldcatLink != "" {
		text("note", "Printed source: "+meta.WorldcatLink)
	}
	b.WriteString("</notesStmt>\n</fileDesc>\n<encodingDesc>\n<projectDesc>\n")
	text("p", "Structured from collaboratively proofread page images.")
	b.WriteString("</projectDesc>\n</encodingDesc>\n</teiHeader>\n")
}
