// Package xml provides the mutable element tree used by the proofing and TEI
// pipelines.
package xml

import (
	"testing"
)

// TestParseValidXML verifies parsing of well-formed XML into the element tree.
func TestParseValidXML(t *testing.T) {
	content := `<?xml version="1.0"?>
<page><p lang="sa">before <error>oops</error> after</p></page>`

	root, err := Parse(content)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if root.Tag != "page" {
		t.Errorf("root.Tag = %q, want %q", root.Tag, "page")
	}
	if len(root.Children) != 1 {
		t.Fatalf("len(root.Children) = %d, want 1", len(root.Children))
	}

	p := root.Children[0]
	if p.Tag != "p" {
		t.Errorf("p.Tag = %q, want %q", p.Tag, "p")
	}
	if p.Attr("lang") != "sa" {
		t.Errorf("p lang = %q, want %q", p.Attr("lang"), "sa")
	}
	if p.Text != "before " {
		t.Errorf("p.Text = %q, want %q", p.Text, "before ")
	}
	if len(p.Children) != 1 {
		t.Fatalf("len(p.Children) = %d, want 1", len(p.Children))
	}
	if p.Children[0].Text != "oops" {
		t.Errorf("error.Text = %q, want %q", p.Children[0].Text, "oops")
	}
	if p.Children[0].Tail != " after" {
		t.Errorf("error.Tail = %q, want %q", p.Children[0].Tail, " after")
	}
}

// TestParseInvalidXML verifies error handling for malformed input.
func TestParseInvalidXML(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"unclosed tag", "<page><p></page>"},
		{"mismatched tags", "<page></other>"},
		{"bare text", "just some prose\nwith lines"},
		{"empty", ""},
		{"junk after root", "<page/>trailing"},
		{"two roots", "<page/><page/>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.xml)
			if err == nil {
				t.Error("Parse should fail for invalid input")
			}
		})
	}
}

// TestSerialize verifies hand emission, including self-closing empty elements.
func TestSerialize(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"mixed content", `<p>before <error>oops</error> after</p>`},
		{"self close", `<pb n="4"/>`},
		{"nested", `<lg><l>foo</l><l>bar</l></lg>`},
		{"attr order", `<note type="footnote" xml:id="fn1">text</note>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := Parse(tt.xml)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got := el.String(); got != tt.xml {
				t.Errorf("String() = %q, want %q", got, tt.xml)
			}
		})
	}
}

// TestSerializeEscaping verifies text and attribute escaping.
func TestSerializeEscaping(t *testing.T) {
	el := NewElement("p")
	el.Text = "a & b < c"
	el.SetAttr("n", `say "so"`)

	want := `<p n="say &quot;so&quot;">a &amp; b &lt; c</p>`
	if got := el.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// TestInnerXML verifies that content keeps markup intact while text and
// tails come back entity-escaped.
func TestInnerXML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`<p>before <error>oops</error> after</p>`, `before <error>oops</error> after`},
		{`<p>a &amp; b <error>x</error> c &lt; d</p>`, `a &amp; b <error>x</error> c &lt; d`},
	}
	for _, tt := range tests {
		el, err := Parse(tt.in)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", tt.in, err)
		}
		if got := el.InnerXML(); got != tt.want {
			t.Errorf("InnerXML() = %q, want %q", got, tt.want)
		}
	}
}

// TestClone verifies deep copies share no structure.
func TestClone(t *testing.T) {
	el, err := Parse(`<p n="1">text<fix>x</fix></p>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cp := el.Clone()
	cp.SetAttr("n", "2")
	cp.Children[0].Text = "changed"
	cp.Text = "other"

	if el.Attr("n") != "1" {
		t.Errorf("original attr mutated: n = %q, want %q", el.Attr("n"), "1")
	}
	if el.Children[0].Text != "x" {
		t.Errorf("original child mutated: Text = %q, want %q", el.Children[0].Text, "x")
	}
	if el.Text != "text" {
		t.Errorf("original text mutated: Text = %q, want %q", el.Text, "text")
	}
}

// TestChildOps verifies index-based child editing.
func TestChildOps(t *testing.T) {
	el := NewElement("lg")
	a := NewElement("l")
	b := NewElement("l")
	c := NewElement("l")
	el.Append(a)
	el.Append(c)
	el.InsertAt(1, b)

	if el.Index(b) != 1 {
		t.Errorf("Index(b) = %d, want 1", el.Index(b))
	}
	if got := el.RemoveAt(0); got != a {
		t.Error("RemoveAt(0) did not return the first child")
	}
	if len(el.Children) != 2 || el.Children[0] != b {
		t.Error("children out of order after removal")
	}
	if el.Index(a) != -1 {
		t.Errorf("Index(removed) = %d, want -1", el.Index(a))
	}
}

// TestWalkOrder verifies document-order traversal.
func TestWalkOrder(t *testing.T) {
	el, err := Parse(`<page><p><error>x</error></p><verse/></page>`)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var tags []string
	el.Walk(func(e *Element) { tags = append(tags, e.Tag) })

	want := []string{"page", "p", "error", "verse"}
	if len(tags) != len(want) {
		t.Fatalf("visited %d nodes, want %d", len(tags), len(want))
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("walk[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
}

// TestAttrOps verifies attribute set/remove behavior.
func TestAttrOps(t *testing.T) {
	el := NewElement("ref")
	el.SetAttr("type", "noteAnchor")
	el.SetAttr("target", "1.2")
	el.SetAttr("target", "#fn1")

	if got := el.Attr("target"); got != "#fn1" {
		t.Errorf("Attr(target) = %q, want %q", got, "#fn1")
	}
	if !el.HasAttr("type") {
		t.Error("HasAttr(type) = false, want true")
	}

	el.RemoveAttr("type")
	if el.HasAttr("type") {
		t.Error("HasAttr after RemoveAttr = true, want false")
	}

	el.ClearAttrs()
	if len(el.Attrs) != 0 {
		t.Errorf("len(Attrs) after ClearAttrs = %d, want 0", len(el.Attrs))
	}
}
