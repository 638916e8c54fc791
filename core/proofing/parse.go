package proofing

import (
	"regexp"
	"strings"

	"github.com/FocuswithJustin/TulsiPress/core/encoding"
	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

// Block is one semantic unit of proofing content: a paragraph, a verse, a
// footnote, and so on. Content holds the block's inner markup verbatim,
// including any inline tags.
type Block struct {
	Type    BlockType
	Content string

	// Lang is the block's language code ("sa", "hi", "en"). Empty means unset.
	Lang string
	// Text names the published text this block belongs to ("mula",
	// "commentary", etc.). A project may interleave several texts.
	Text string
	// N is the user-assigned ordering identifier ("43", "1.1", etc.).
	N string
	// Mark is a footnote's marker symbol, e.g. "1" or "*".
	Mark string
	// MergeNext is set when the block continues on the next page and must be
	// concatenated with the next block of the same output tag.
	MergeNext bool
}

// Page is an ordered sequence of blocks plus the identity of the source page.
// Block order is author intent and must be preserved.
type Page struct {
	ID     string
	Blocks []Block
}

// ParsePage converts a page's raw content into a Page. Content that is
// well-formed <page> XML is parsed structurally; anything else (raw OCR
// output, hand-typed text) goes through the free-text heuristics. The
// structured parse failing is an expected fallback, not an error.
func ParsePage(content, pageID string) Page {
	if page, err := ParseStructured(content, pageID); err == nil {
		return page
	}
	return parseHeuristic(content, pageID)
}

// ParseStructured parses content as <page> XML with one child element per
// block. It fails if the content is not well-formed or the root element is
// not named "page".
func ParseStructured(content, pageID string) (Page, error) {
	root, err := xml.Parse(content)
	if err != nil {
		return Page{}, &errors.ParseError{Format: "page XML", Path: pageID, Message: err.Error(), Err: err}
	}
	if root.Tag != "page" {
		return Page{}, errors.NewParse("page XML", pageID, "root element must be 'page'")
	}

	page := Page{ID: pageID}
	for _, el := range root.Children {
		merge := strings.EqualFold(el.Attr(AttrMergeNext), "true") ||
			strings.EqualFold(el.Attr(AttrMergeText), "true")
		page.Blocks = append(page.Blocks, Block{
			Type:      BlockType(el.Tag),
			Content:   el.InnerXML(),
			Lang:      el.Attr(AttrLang),
			Text:      el.Attr(AttrText),
			N:         el.Attr(AttrN),
			Mark:      el.Attr(AttrMark),
			MergeNext: merge,
		})
	}
	return page, nil
}

// footnoteMarker matches a leading footnote marker like "[^1]" or "[^*].",
// with any trailing whitespace.
var footnoteMarker = regexp.MustCompile(`^\[\^([^\]]+)\]\.?\s*`)

// parseHeuristic splits free text into blocks on blank lines and classifies
// each block by shape: footnote marker prefix, then the verse heuristic for
// Sanskrit text, then plain paragraph.
func parseHeuristic(content, pageID string) Page {
	page := Page{ID: pageID}
	text := strings.TrimSpace(content)
	if text == "" {
		return page
	}

	var chunks []string
	var cur []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			cur = append(cur, line)
			continue
		}
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, "\n"))
	}

	for _, chunk := range chunks {
		block := Block{Type: BlockParagraph, Lang: DetectLanguage(chunk)}
		if m := footnoteMarker.FindStringSubmatch(chunk); m != nil {
			block.Type = BlockFootnote
			block.Mark = m[1]
			chunk = chunk[len(m[0]):]
		} else if block.Lang == LangSanskrit && IsVerse(chunk) {
			block.Type = BlockVerse
		}
		block.Content = chunk
		page.Blocks = append(page.Blocks, block)
	}
	return page
}

// hindiMarkers are common Hindi function words used to tell Hindi from
// Sanskrit when a block is mostly Devanagari.
var hindiMarkers = map[string]bool{
	"की": true, "में": true, "है": true, "हैं": true, "था": true,
	"थी": true, "थे": true, "नहीं": true, "और": true, "चाहिए": true,
}

// DetectLanguage classifies text with basic character and token heuristics.
// Empty input classifies as Sanskrit.
func DetectLanguage(text string) string {
	if strings.TrimSpace(text) == "" {
		return LangSanskrit
	}

	var latin, total int
	for _, r := range text {
		total++
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			latin++
		}
	}
	if float64(latin)/float64(total) > 0.5 {
		return LangEnglish
	}

	for _, token := range strings.Fields(text) {
		if hindiMarkers[token] {
			return LangHindi
		}
	}
	return LangSanskrit
}

const (
	danda       = "।"
	doubleDanda = "॥"
)

// IsVerse reports whether text has the shape of a Sanskrit verse: two
// non-blank lines with a danda in the first and a double danda in the second
// (two ardhas), or four lines with a danda in the second and a double danda
// in the fourth (four padas). Any other line count is never a verse.
func IsVerse(text string) bool {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			lines = append(lines, t)
		}
	}
	switch len(lines) {
	case 2:
		return strings.Contains(lines[0], danda) && strings.Contains(lines[1], doubleDanda)
	case 4:
		return strings.Contains(lines[1], danda) && strings.Contains(lines[3], doubleDanda)
	}
	return false
}

// XMLString serializes the page back to <page> XML, one child element per
// block in original order. Attributes are written only when set. Block
// content is reparsed so inline markup round-trips verbatim; bare ampersands
// are escaped first so literal "&" in user text survives the reparse.
func (p Page) XMLString() string {
	root := xml.NewElement("page")
	root.Text = "\n"
	for _, b := range p.Blocks {
		el := blockElement(b)
		el.Tail = "\n"
		root.Append(el)
	}
	return root.String()
}

func blockElement(b Block) *xml.Element {
	content := strings.TrimSpace(b.Content)
	wrapped := "<" + string(b.Type) + ">" + encoding.EscapeBareAmpersands(content) + "</" + string(b.Type) + ">"
	el, err := xml.Parse(wrapped)
	if err != nil {
		// Unbalanced inline markup: keep the raw content as text so the
		// proofreader's work is never dropped.
		el = xml.NewElement(string(b.Type))
		el.Text = content
	}
	if b.Lang != "" {
		el.SetAttr(AttrLang, b.Lang)
	}
	if b.Text != "" {
		el.SetAttr(AttrText, b.Text)
	}
	if b.N != "" {
		el.SetAttr(AttrN, b.N)
	}
	if b.Mark != "" {
		el.SetAttr(AttrMark, b.Mark)
	}
	if b.MergeNext {
		el.SetAttr(AttrMergeNext, "true")
	}
	return el
}
