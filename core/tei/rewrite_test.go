package tei

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/TulsiPress/core/proofing"
	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

// rewrite parses a single block element, rewrites it, and returns the
// serialized result.
func rewrite(t *testing.T, input string) string {
	t.Helper()
	el, err := xml.Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", input, err)
	}
	if err := RewriteBlock(el, 1); err != nil {
		t.Fatalf("RewriteBlock(%q) failed: %v", input, err)
	}
	return el.String()
}

func TestRewriteBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		// Basic tag mapping.
		{"paragraph keeps name", "<p>foo</p>", "<p>foo</p>"},
		{"heading renames", "<heading>foo</heading>", "<head>foo</head>"},
		{"title keeps name", "<title>foo</title>", "<title>foo</title>"},
		{"trailer keeps name", "<trailer>foo</trailer>", "<trailer>foo</trailer>"},

		// <p> joins text spread across print lines.
		{"join lines", "<p>foo \nbar</p>", "<p>foo bar</p>"},
		{"join bare newline", "<p>foo\nbar</p>", "<p>foo bar</p>"},
		{"join padded newline", "<p>foo \n bar</p>", "<p>foo bar</p>"},
		{"hyphen joins word halves", "<p>foo-\nbar</p>", "<p>foobar</p>"},
		{"interior hyphen kept", "<p>foo-bar\nbiz</p>", "<p>foo-bar biz</p>"},
		{"joining respects inline marks", "<p><fix>foo</fix> \n bar</p>", "<p><supplied>foo</supplied> bar</p>"},

		// <verse> splits into one <l> per line.
		{"one line", "<verse>foo</verse>", "<lg><l>foo</l></lg>"},
		{"two lines", "<verse>foo\nbar</verse>", "<lg><l>foo</l><l>bar</l></lg>"},
		{"three lines", "<verse>foo\nbar\nbiz</verse>", "<lg><l>foo</l><l>bar</l><l>biz</l></lg>"},
		{
			"splitting respects inline marks",
			"<verse>f<fix>oo</fix>oo\nbar</verse>",
			"<lg><l>f<supplied>oo</supplied>oo</l><l>bar</l></lg>",
		},
		{
			"danda spacing canonicalized",
			"<verse>अ ।\nक॥</verse>",
			"<lg><l>अ ।</l><l>क ॥</l></lg>",
		},

		// <error> and <fix> fold into <choice>.
		{
			"error then fix",
			"<p>foo<error>bar</error> <fix>biz</fix> tail</p>",
			"<p>foo<choice><sic>bar</sic><corr>biz</corr></choice> tail</p>",
		},
		{
			"fix then error normalizes order",
			"<p>foo<fix>biz</fix> <error>bar</error></p>",
			"<p>foo<choice><sic>bar</sic><corr>biz</corr></choice></p>",
		},
		{
			"error alone gets empty corr",
			"<p>foo<error>bar</error> tail</p>",
			"<p>foo<choice><sic>bar</sic><corr/></choice> tail</p>",
		},
		{"fix alone becomes supplied", "<p>foo<fix>bar</fix></p>", "<p>foo<supplied>bar</supplied></p>"},
		{
			"separate error and fix stay separate",
			"<p>foo<error>bar</error> biz <fix>baf</fix> tail</p>",
			"<p>foo<choice><sic>bar</sic><corr/></choice> biz <supplied>baf</supplied> tail</p>",
		},

		// <chaya> splits a bilingual paragraph.
		{
			"chaya split",
			"<p>aoeu<flag>foo</flag><chaya>asdf<flag>bar</flag></chaya></p>",
			`<p><choice type="chaya"><seg xml:lang="pra">aoeu<flag>foo</flag></seg><seg xml:lang="sa">asdf<flag>bar</flag></seg></choice></p>`,
		},
		{
			"chaya brackets stripped",
			"<p>pra<chaya>[sa]</chaya></p>",
			`<p><choice type="chaya"><seg xml:lang="pra">pra</seg><seg xml:lang="sa" rend="brackets">sa</seg></choice></p>`,
		},

		// <speaker> restructures the block into <sp>.
		{"speaker only", "<p><speaker>foo</speaker></p>", "<sp><speaker>foo</speaker></sp>"},
		{
			"speaker with content",
			"<p><speaker>foo</speaker>bar-\nbiz</p>",
			"<sp><speaker>foo</speaker><p>barbiz</p></sp>",
		},
		{
			"whitespace-only remainder dropped",
			"<p> <speaker>foo</speaker> </p>",
			"<sp><speaker>foo</speaker></sp>",
		},
		{
			"speaker in verse",
			"<verse><speaker>foo</speaker>bar</verse>",
			"<sp><speaker>foo</speaker><lg><l>bar</l></lg></sp>",
		},
		{
			"speaker trailing dash stripped",
			"<p><speaker>कञ्चुकी-</speaker>अ</p>",
			"<sp><speaker>कञ्चुकी</speaker><p>अ</p></sp>",
		},

		// <stage> normalization.
		{
			"stage parentheses stripped",
			"<p><stage>(विहस्य)</stage>अ</p>",
			`<p><stage rend="parentheses">विहस्य</stage> अ</p>`,
		},

		// <footnote> becomes a typed <note>.
		{"footnote", "<footnote>क</footnote>", `<note type="footnote">क</note>`},

		// <ref> gets a page-scoped anchor target.
		{
			"ref anchor stamped",
			"<p>अ<ref>1</ref></p>",
			`<p>अ<ref type="noteAnchor" target="1.1">1</ref></p>`,
		},

		// Block attributes are cleared; the assembler owns identifiers.
		{"attributes cleared", `<p lang="sa" text="mula" n="4">foo</p>`, "<p>foo</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewrite(t, tt.input); got != tt.want {
				t.Errorf("rewrite(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// A block that has already been rewritten must pass through unchanged: the
// merge step re-enters blocks and must not re-rename tags or re-split lines.
func TestRewriteBlockIdempotent(t *testing.T) {
	inputs := []string{
		"<verse>foo\nbar</verse>",
		"<heading>foo</heading>",
		"<footnote>क</footnote>",
		"<p>foo<error>bar</error> <fix>biz</fix></p>",
	}
	for _, input := range inputs {
		once := rewrite(t, input)
		twice := rewrite(t, once)
		if once != twice {
			t.Errorf("rewrite not idempotent for %q: first %q, second %q", input, once, twice)
		}
	}
}

func TestParseBlock(t *testing.T) {
	el, err := ParseBlock(proofing.Block{
		Type: proofing.BlockParagraph, Content: "अ<fix>क</fix>ख", Lang: "sa", N: "1",
	})
	if err != nil {
		t.Fatalf("ParseBlock failed: %v", err)
	}
	if el.Tag != "p" {
		t.Errorf("el.Tag = %q, want %q", el.Tag, "p")
	}
	if el.Attr("n") != "1" || el.Attr("lang") != "sa" {
		t.Errorf("attrs = %v, want n=1 lang=sa", el.Attrs)
	}
	if len(el.Children) != 1 || el.Children[0].Tag != "fix" {
		t.Fatalf("children = %v, want one fix element", el.Children)
	}
}

func TestParseBlockUnbalancedMarkup(t *testing.T) {
	_, err := ParseBlock(proofing.Block{Type: proofing.BlockParagraph, Content: "अ<fix>क"})
	if err == nil {
		t.Fatal("ParseBlock succeeded on unbalanced markup, want error")
	}
	if !strings.Contains(err.Error(), "block XML") {
		t.Errorf("err = %v, want mention of block XML", err)
	}
}

func TestPreviewBlocks(t *testing.T) {
	page := proofing.Page{ID: "p1", Blocks: []proofing.Block{
		{Type: proofing.BlockParagraph, Content: "foo\nbar"},
		{Type: proofing.BlockParagraph, Content: "bad<fix>markup"},
		{Type: proofing.BlockVerse, Content: "अ\nक"},
	}}

	blocks, errs := PreviewBlocks(page, 3)
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2", len(blocks))
	}
	if blocks[0] != "<p>foo bar</p>" {
		t.Errorf("blocks[0] = %q, want %q", blocks[0], "<p>foo bar</p>")
	}
	if blocks[1] != "<lg><l>अ</l><l>क</l></lg>" {
		t.Errorf("blocks[1] = %q, want %q", blocks[1], "<lg><l>अ</l><l>क</l></lg>")
	}
	if len(errs) != 1 || !strings.Contains(errs[0], "block 2") {
		t.Errorf("errs = %v, want one error for block 2", errs)
	}
}
