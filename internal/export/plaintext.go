package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
)

// blockExpr selects every block of the TEI body: the children of the
// per-section divs.
var blockExpr = xpath.MustCompile("//body/div/*")

// WritePlainText renders a TEI file as plain text: a small comment header,
// then one "# slug" heading per block followed by the block's text with one
// line per <l> element.
func WritePlainText(w io.Writer, meta Metadata, teiXML string) error {
	doc, err := xmlquery.Parse(strings.NewReader(teiXML))
	if err != nil {
		return errors.NewParse("TEI XML", "", err.Error())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", meta.Title)

	first := true
	for _, node := range xmlquery.QuerySelectorAll(doc, blockExpr) {
		slug := node.SelectAttr("n")
		if slug == "" {
			continue
		}
		if !first {
			b.WriteString("\n\n")
		}
		first = false
		fmt.Fprintf(&b, "# %s\n", slug)
		b.WriteString(strings.TrimSpace(blockText(node)))
	}
	b.WriteString("\n")

	_, err = io.WriteString(w, b.String())
	return err
}

// blockText flattens a block to its character data, inserting a newline
// after each verse line.
func blockText(n *xmlquery.Node) string {
	var b strings.Builder
	var visit func(*xmlquery.Node)
	visit = func(n *xmlquery.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case xmlquery.TextNode, xmlquery.CharDataNode:
				b.WriteString(c.Data)
			case xmlquery.ElementNode:
				visit(c)
				if c.Data == "l" {
					b.WriteString("\n")
				}
			}
		}
	}
	visit(n)
	return b.String()
}
