// Package tei turns parsed proofing blocks into publication-ready TEI
// markup and assembles them across page boundaries into a single
// addressable document.
package tei

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/FocuswithJustin/TulsiPress/core/encoding"
	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/core/proofing"
	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

const (
	danda       = "।"
	doubleDanda = "॥"
)

// blockRenames maps proofing block tags to their TEI names. Tags absent from
// the map keep their name, so a block that has already been rewritten is
// never renamed twice.
var blockRenames = map[string]string{
	"verse":    "lg",
	"heading":  "head",
	"footnote": "note",
}

var (
	whitespaceRun      = regexp.MustCompile(`\s+`)
	speakerDash        = regexp.MustCompile(`\s*[-\x{2013}]\s*$`)
	doubleDandaSpacing = regexp.MustCompile(`\s*` + doubleDanda + `\s*`)
)

// ParseBlock parses one proofing block's content into an element tree rooted
// at the block's type tag. Unbalanced inline markup is the one malformed
// input a structured page can still carry per block, so the error is scoped
// here rather than failing a whole page.
func ParseBlock(b proofing.Block) (*xml.Element, error) {
	tag := string(b.Type)
	wrapped := "<" + tag + ">" + encoding.EscapeBareAmpersands(b.Content) + "</" + tag + ">"
	el, err := xml.Parse(wrapped)
	if err != nil {
		return nil, &errors.ParseError{Format: "block XML", Path: tag, Message: err.Error(), Err: err}
	}
	if b.Lang != "" {
		el.SetAttr(proofing.AttrLang, b.Lang)
	}
	if b.Text != "" {
		el.SetAttr(proofing.AttrText, b.Text)
	}
	if b.N != "" {
		el.SetAttr(proofing.AttrN, b.N)
	}
	if b.Mark != "" {
		el.SetAttr(proofing.AttrMark, b.Mark)
	}
	if b.MergeNext {
		el.SetAttr(proofing.AttrMergeNext, "true")
	}
	return el, nil
}

// RewriteBlock transforms one proofing block element, in place, into its TEI
// shape. Callers pass a deep copy; the rewrite is destructive. imageNumber
// is the block's 1-based page position, used to scope footnote anchors.
//
// The sub-transforms run in a fixed order: inline normalization, speaker
// extraction, error/fix folding, tag renaming, paragraph whitespace
// normalization, chaya splitting, verse line splitting, attribute cleanup.
// The assembler owns ordering identifiers, so the root's attributes are
// cleared at the end.
func RewriteBlock(el *xml.Element, imageNumber int) error {
	normalizeInline(el, imageNumber)

	if extractSpeaker(el, imageNumber) {
		el.ClearAttrs()
		return nil
	}

	foldCorrections(el)

	wasVerse := el.Tag == "verse"
	if renamed, ok := blockRenames[el.Tag]; ok {
		el.Tag = renamed
	}

	if el.Tag == "p" {
		normalizeParagraph(el)
		splitChaya(el)
	}
	if el.Tag == "lg" && wasVerse {
		splitVerseLines(el)
	}

	el.ClearAttrs()
	if el.Tag == "note" {
		el.SetAttr("type", "footnote")
	}
	return nil
}

// normalizeInline canonicalizes inline elements in document order: stage
// directions lose their parentheses, speakers lose their trailing dash,
// chaya passages lose their brackets, and footnote anchors are stamped with
// a page-scoped target for later resolution.
func normalizeInline(el *xml.Element, imageNumber int) {
	el.Walk(func(e *xml.Element) {
		switch e.Tag {
		case "stage":
			if len(e.Children) == 0 {
				t := strings.TrimSpace(e.Text)
				if strings.HasPrefix(t, "(") && strings.HasSuffix(t, ")") && len(t) >= 2 {
					e.Text = t[1 : len(t)-1]
					e.SetAttr("rend", "parentheses")
				}
			}
			if e.Tail != "" && !startsWithSpace(e.Tail) {
				e.Tail = " " + e.Tail
			}
		case "speaker":
			e.Text = speakerDash.ReplaceAllString(e.Text, "")
		case "chaya":
			stripBrackets(e)
		case "ref":
			e.SetAttr("type", "noteAnchor")
			e.SetAttr("target", fmt.Sprintf("%d.%s", imageNumber, strings.TrimSpace(e.Text)))
		}
	})

	if el.Tag == "verse" {
		normalizeDanda(el)
	}
}

func startsWithSpace(s string) bool {
	return s != "" && (s[0] == ' ' || s[0] == '\t' || s[0] == '\n')
}

// stripBrackets removes the square brackets proofreaders type around a chaya
// passage, recording rend="brackets" so the presentation survives.
func stripBrackets(e *xml.Element) {
	if len(e.Children) == 0 {
		t := strings.TrimSpace(e.Text)
		if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") && len(t) >= 2 {
			e.Text = t[1 : len(t)-1]
			e.SetAttr("rend", "brackets")
		}
		return
	}
	last := e.Children[len(e.Children)-1]
	if strings.HasPrefix(e.Text, "[") && strings.HasSuffix(strings.TrimRight(last.Tail, " \t"), "]") {
		e.Text = e.Text[1:]
		last.Tail = strings.TrimSuffix(strings.TrimRight(last.Tail, " \t"), "]")
		e.SetAttr("rend", "brackets")
	}
}

// normalizeDanda inserts canonical spacing around the double danda in a
// verse block, with no trailing space at the end of the block.
func normalizeDanda(el *xml.Element) {
	spaced := func(s string) string {
		return doubleDandaSpacing.ReplaceAllString(s, " "+doubleDanda+" ")
	}
	el.Text = spaced(el.Text)
	for _, c := range el.Children {
		c.Tail = spaced(c.Tail)
	}
	if n := len(el.Children); n > 0 {
		el.Children[n-1].Tail = strings.TrimSuffix(el.Children[n-1].Tail, " ")
	} else {
		el.Text = strings.TrimSuffix(el.Text, " ")
	}
}

// extractSpeaker restructures a block containing a <speaker> child into an
// <sp> wrapper: the speaker element first, then (unless the block has no
// other content) a new element reusing the block's tag holding everything
// else. The inner element is rewritten recursively. Returns false when the
// block has no speaker.
func extractSpeaker(el *xml.Element, imageNumber int) bool {
	idx := -1
	for i, c := range el.Children {
		if c.Tag == "speaker" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	speaker := el.RemoveAt(idx)
	tail := speaker.Tail
	speaker.Tail = ""
	if idx == 0 {
		el.Text += tail
	} else {
		el.Children[idx-1].Tail += tail
	}

	inner := &xml.Element{
		Tag:      el.Tag,
		Text:     el.Text,
		Children: el.Children,
	}

	el.Tag = "sp"
	el.Text = ""
	el.Children = []*xml.Element{speaker}

	if strings.TrimSpace(inner.Text) != "" || len(inner.Children) > 0 {
		// The inner element runs through the full pipeline so its own
		// corrections, verse lines, and chaya passages still rewrite.
		_ = RewriteBlock(inner, imageNumber)
		el.Append(inner)
	}
	return true
}

// foldCorrections folds error/fix pairs among the block's direct children
// into TEI <choice> elements. An adjacent fix-then-error pair is first
// normalized to error-then-fix order (the tails stay with their positions);
// an error with an adjacent fix becomes <choice><sic/><corr/></choice>; an
// error alone gets an empty <corr/>; a fix alone becomes <supplied>.
// Adjacent means the intervening tail is whitespace-only.
func foldCorrections(el *xml.Element) {
	for i := 0; i+1 < len(el.Children); i++ {
		a, b := el.Children[i], el.Children[i+1]
		if a.Tag == "fix" && b.Tag == "error" && strings.TrimSpace(a.Tail) == "" {
			a.Tail, b.Tail = b.Tail, a.Tail
			el.Children[i], el.Children[i+1] = b, a
		}
	}

	var out []*xml.Element
	i := 0
	for i < len(el.Children) {
		c := el.Children[i]
		switch c.Tag {
		case "error":
			sic := c
			sic.Tag = "sic"
			corr := xml.NewElement("corr")
			var tail string
			if i+1 < len(el.Children) && el.Children[i+1].Tag == "fix" && strings.TrimSpace(c.Tail) == "" {
				corr = el.Children[i+1]
				corr.Tag = "corr"
				tail = corr.Tail
				i += 2
			} else {
				tail = c.Tail
				i++
			}
			sic.Tail = ""
			corr.Tail = ""
			choice := xml.NewElement("choice")
			choice.Append(sic)
			choice.Append(corr)
			choice.Tail = tail
			out = append(out, choice)
		case "fix":
			c.Tag = "supplied"
			out = append(out, c)
			i++
		default:
			out = append(out, c)
			i++
		}
	}
	el.Children = out
}

// normalizeParagraph joins text wrapped across print lines: a hyphen at a
// line end glues the halves of a word back together, and remaining
// whitespace runs collapse to single spaces.
func normalizeParagraph(el *xml.Element) {
	clean := func(s string) string {
		s = strings.ReplaceAll(s, "-\n", "")
		return whitespaceRun.ReplaceAllString(s, " ")
	}
	el.Walk(func(e *xml.Element) {
		e.Text = clean(e.Text)
		if e != el {
			e.Tail = clean(e.Tail)
		}
	})

	el.Text = strings.TrimLeft(el.Text, " ")
	if n := len(el.Children); n > 0 {
		el.Children[n-1].Tail = strings.TrimRight(el.Children[n-1].Tail, " ")
	} else {
		el.Text = strings.TrimRight(el.Text, " ")
	}
}

// splitChaya wraps a bilingual paragraph into a TEI <choice>: the original
// Prakrit content in one <seg>, the chaya's Sanskrit rendering in the other.
// Only the first chaya child splits.
func splitChaya(el *xml.Element) {
	idx := -1
	for i, c := range el.Children {
		if c.Tag == "chaya" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	chaya := el.Children[idx]

	original := xml.NewElement("seg")
	original.SetAttr("xml:lang", "pra")
	original.Text = el.Text
	for i, c := range el.Children {
		if i == idx {
			continue
		}
		original.Append(c)
	}
	if n := len(original.Children); n > 0 {
		original.Children[n-1].Tail = strings.TrimRight(original.Children[n-1].Tail, " ")
	} else {
		original.Text = strings.TrimRight(original.Text, " ")
	}

	rendering := xml.NewElement("seg")
	rendering.SetAttr("xml:lang", "sa")
	if rend := chaya.Attr("rend"); rend != "" {
		rendering.SetAttr("rend", rend)
	}
	rendering.Text = chaya.Text
	rendering.Children = chaya.Children

	choice := xml.NewElement("choice")
	choice.SetAttr("type", "chaya")
	choice.Append(original)
	choice.Append(rendering)
	choice.Tail = chaya.Tail

	el.Text = ""
	el.Children = []*xml.Element{choice}
}

// splitVerseLines re-segments a verse block into one <l> element per line.
// Inline elements attach to the line that was open when they were met; a
// line boundary inside a tail starts a new <l>.
func splitVerseLines(el *xml.Element) {
	var lines []*xml.Element
	cur := xml.NewElement("l")

	closeLine := func() {
		if n := len(cur.Children); n > 0 {
			cur.Children[n-1].Tail = strings.TrimRight(cur.Children[n-1].Tail, " \t")
		} else {
			cur.Text = strings.TrimRight(cur.Text, " \t")
		}
		if strings.TrimSpace(cur.Text) != "" || len(cur.Children) > 0 {
			lines = append(lines, cur)
		}
		cur = xml.NewElement("l")
	}

	appendText := func(s string) {
		if len(cur.Children) == 0 {
			if cur.Text == "" {
				s = strings.TrimLeft(s, " \t")
			}
			cur.Text += s
			return
		}
		cur.Children[len(cur.Children)-1].Tail += s
	}

	feed := func(s string) {
		parts := strings.Split(s, "\n")
		for i, part := range parts {
			if i > 0 {
				closeLine()
				part = strings.TrimLeft(part, " \t")
			}
			appendText(part)
		}
	}

	children := el.Children
	feed(el.Text)
	for _, c := range children {
		tail := c.Tail
		c.Tail = ""
		cur.Append(c)
		feed(tail)
	}
	closeLine()

	el.Text = ""
	el.Children = lines
}
