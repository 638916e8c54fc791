// Package xml provides the mutable element tree used by the proofing and TEI
// pipelines.
//
// The tree mirrors the shape the structuring algorithms want: an element has a
// tag, ordered attributes, leading text, a tail (text between its closing tag
// and the next sibling), and ordered children. Parsing is delegated to the
// xmlquery DOM; serialization is hand-emitted so the output form stays stable
// regardless of parser internals.
//
// Security Notes:
//   - Parsing goes through xmlquery, which uses Go's encoding/xml internally
//     and does not fetch external entities.
package xml

import (
	"fmt"
	"strings"

	"github.com/FocuswithJustin/TulsiPress/core/encoding"
	"github.com/antchfx/xmlquery"
)

// Attr is a single attribute. Order of attributes on an element is preserved.
type Attr struct {
	Key   string
	Value string
}

// Element is one node of the tree.
type Element struct {
	// Tag is the element name. Prefixed names keep their prefix ("xml:id").
	Tag string
	// Attrs holds the element's attributes in document order.
	Attrs []Attr
	// Text is the character data between the opening tag and the first child.
	Text string
	// Tail is the character data between this element's closing tag and the
	// next sibling (or the parent's closing tag).
	Tail string
	// Children are the child elements in document order.
	Children []*Element
}

// NewElement returns an element with the given tag and no content.
func NewElement(tag string) *Element {
	return &Element{Tag: tag}
}

// Parse parses a complete XML document and returns its root element.
// It is strict the way a document parser should be: there must be exactly one
// root element, and nothing but whitespace, comments, and an optional XML
// declaration may surround it.
func Parse(content string) (*Element, error) {
	doc, err := xmlquery.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	var root *Element
	for n := doc.FirstChild; n != nil; n = n.NextSibling {
		switch n.Type {
		case xmlquery.ElementNode:
			if root != nil {
				return nil, fmt.Errorf("parsing XML: junk after document element")
			}
			root = fromNode(n)
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if strings.TrimSpace(n.Data) != "" {
				if root == nil {
					return nil, fmt.Errorf("parsing XML: text before document element")
				}
				return nil, fmt.Errorf("parsing XML: junk after document element")
			}
		case xmlquery.DeclarationNode, xmlquery.CommentNode:
			// skipped
		}
	}
	if root == nil {
		return nil, fmt.Errorf("parsing XML: no document element")
	}
	return root, nil
}

// xmlNamespaceURL is what encoding/xml resolves the reserved "xml:" prefix to.
const xmlNamespaceURL = "http://www.w3.org/XML/1998/namespace"

// fromNode converts an xmlquery element node into an Element, folding text
// node runs into Text and Tail fields.
func fromNode(n *xmlquery.Node) *Element {
	el := &Element{Tag: nodeName(n)}
	for _, a := range n.Attr {
		key := a.Name.Local
		switch a.Name.Space {
		case "":
		case "xml", xmlNamespaceURL:
			key = "xml:" + a.Name.Local
		default:
			key = a.Name.Space + ":" + a.Name.Local
		}
		el.Attrs = append(el.Attrs, Attr{Key: key, Value: a.Value})
	}

	var last *Element
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			if last == nil {
				el.Text += c.Data
			} else {
				last.Tail += c.Data
			}
		case xmlquery.ElementNode:
			child := fromNode(c)
			el.Children = append(el.Children, child)
			last = child
		}
	}
	return el
}

func nodeName(n *xmlquery.Node) string {
	if n.Prefix != "" {
		return n.Prefix + ":" + n.Data
	}
	return n.Data
}

// Attr returns the value of the named attribute, or "" if absent.
func (e *Element) Attr(key string) string {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// HasAttr reports whether the named attribute is present.
func (e *Element) HasAttr(key string) bool {
	for _, a := range e.Attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// SetAttr sets an attribute, replacing the value in place if the key exists.
func (e *Element) SetAttr(key, value string) {
	for i, a := range e.Attrs {
		if a.Key == key {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Key: key, Value: value})
}

// RemoveAttr removes the named attribute if present.
func (e *Element) RemoveAttr(key string) {
	for i, a := range e.Attrs {
		if a.Key == key {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return
		}
	}
}

// ClearAttrs removes every attribute.
func (e *Element) ClearAttrs() {
	e.Attrs = nil
}

// Append adds a child at the end.
func (e *Element) Append(child *Element) {
	e.Children = append(e.Children, child)
}

// InsertAt inserts a child at index i. An index at or beyond the current
// child count appends.
func (e *Element) InsertAt(i int, child *Element) {
	if i >= len(e.Children) {
		e.Children = append(e.Children, child)
		return
	}
	if i < 0 {
		i = 0
	}
	e.Children = append(e.Children, nil)
	copy(e.Children[i+1:], e.Children[i:])
	e.Children[i] = child
}

// RemoveAt removes and returns the child at index i, or nil if out of range.
func (e *Element) RemoveAt(i int) *Element {
	if i < 0 || i >= len(e.Children) {
		return nil
	}
	child := e.Children[i]
	e.Children = append(e.Children[:i], e.Children[i+1:]...)
	return child
}

// Index returns the index of the given child, or -1.
func (e *Element) Index(child *Element) int {
	for i, c := range e.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the element. The copy shares nothing with the
// original, so callers may mutate it freely.
func (e *Element) Clone() *Element {
	cp := &Element{
		Tag:  e.Tag,
		Text: e.Text,
		Tail: e.Tail,
	}
	if len(e.Attrs) > 0 {
		cp.Attrs = make([]Attr, len(e.Attrs))
		copy(cp.Attrs, e.Attrs)
	}
	if len(e.Children) > 0 {
		cp.Children = make([]*Element, len(e.Children))
		for i, c := range e.Children {
			cp.Children[i] = c.Clone()
		}
	}
	return cp
}

// Walk visits the element and every descendant in document order.
func (e *Element) Walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// InnerXML returns the element's content: its leading text followed by each
// child serialized with its tail. Text and tails are entity-escaped, so the
// result can be re-wrapped in a tag and reparsed verbatim.
func (e *Element) InnerXML() string {
	var b strings.Builder
	b.WriteString(encoding.EscapeXMLText(e.Text))
	for _, c := range e.Children {
		c.writeTo(&b)
		b.WriteString(encoding.EscapeXMLText(c.Tail))
	}
	return b.String()
}

// String serializes the element (without its tail) as a single well-formed
// XML element. Elements with no text and no children self-close.
func (e *Element) String() string {
	var b strings.Builder
	e.writeTo(&b)
	return b.String()
}

func (e *Element) writeTo(b *strings.Builder) {
	b.WriteString("<")
	b.WriteString(e.Tag)
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(encoding.EscapeXMLAttr(a.Value))
		b.WriteString(`"`)
	}
	if e.Text == "" && len(e.Children) == 0 {
		b.WriteString("/>")
		return
	}
	b.WriteString(">")
	b.WriteString(encoding.EscapeXMLText(e.Text))
	for _, c := range e.Children {
		c.writeTo(b)
		b.WriteString(encoding.EscapeXMLText(c.Tail))
	}
	b.WriteString("</")
	b.WriteString(e.Tag)
	b.WriteString(">")
}
