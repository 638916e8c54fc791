package tei

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/TulsiPress/core/filter"
	"github.com/FocuswithJustin/TulsiPress/core/proofing"
	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

// PageInput is one page of a project as the assembler consumes it: the
// page's raw content, its identity for back-references, and its proofing
// status label (reported, not interpreted).
type PageInput struct {
	Content string
	ID      string
	Status  string
}

// DocBlock is one finished, addressable unit of output.
type DocBlock struct {
	// XML is the block's rewritten TEI markup, a single well-formed element.
	XML string
	// Slug is the ordering identifier the block was filed under, unique
	// within its document.
	Slug string
	// PageID identifies the source page, for edit links.
	PageID string
}

// Section groups blocks that share a slug prefix (the part before the last
// "." separator; blocks with no "." file under "all").
type Section struct {
	Slug   string
	Blocks []DocBlock
}

// Document is the complete output of one assembly run.
type Document struct {
	Sections []Section
}

// DefaultPageLabel substitutes for a printed page number the page-number
// mapping does not cover.
const DefaultPageLabel = "-"

// residueMarker strips leftover footnote markers like "[^1]" from serialized
// output, for compatibility with pages proofread before anchors existed.
var residueMarker = regexp.MustCompile(`\[\^[^\]]*\]`)

var trailingDigits = regexp.MustCompile(`[0-9]+$`)

// placedBlock is a block filed into the output, still mutable: cross-page
// merges and footnote resolution append into it in place.
type placedBlock struct {
	slug   string
	el     *xml.Element
	pageID string
}

// run holds the state of one assembly pass. Every field is local to a single
// CreateDocument call; concurrent calls never share state.
type run struct {
	pageNumbers []string

	lastN     map[string]string
	blocks    []*placedBlock
	bySlug    map[string]*placedBlock
	pending   *placedBlock
	activeSp  *xml.Element
	footnotes map[string]*xml.Element
	errs      []string
	statuses  map[string]bool
}

// CreateDocument assembles the blocks of a project's pages, in page order,
// into a single TEI document for the given target. It returns the document,
// a list of per-block error strings for anything that failed to rewrite, and
// the set of page status labels seen among selected blocks.
//
// A target that fails to compile selects nothing: the result is an empty
// document, not an error.
func CreateDocument(pages []PageInput, pageNumbers []string, target string) (*Document, []string, map[string]bool) {
	flt, err := filter.Compile(target)
	if err != nil {
		flt = filter.None()
	}

	r := &run{
		pageNumbers: pageNumbers,
		lastN:       make(map[string]string),
		bySlug:      make(map[string]*placedBlock),
		footnotes:   make(map[string]*xml.Element),
		errs:        []string{},
		statuses:    make(map[string]bool),
	}

	for i, page := range pages {
		image := i + 1
		root, err := parsePageTree(page)
		if err != nil {
			r.errs = append(r.errs, fmt.Sprintf("page %s: %v", page.ID, err))
			continue
		}
		for bi, orig := range root.Children {
			if orig.Tag == "ignore" {
				continue
			}
			ib := filter.IndexedBlock{ImageNumber: image, BlockIndex: bi, El: orig, Page: root}
			if !flt.Matches(ib) {
				continue
			}
			r.statuses[page.Status] = true
			if err := r.processBlock(orig, image, page, bi); err != nil {
				r.errs = append(r.errs, fmt.Sprintf("page %s, block %d: %v", page.ID, bi+1, err))
			}
		}
	}

	r.resolveFootnotes()
	return r.buildDocument(), r.errs, r.statuses
}

// parsePageTree parses a page's raw content into a <page> tree, running
// never-structured content through the free-text heuristics first.
func parsePageTree(page PageInput) (*xml.Element, error) {
	root, err := xml.Parse(page.Content)
	if err == nil && root.Tag == "page" {
		return root, nil
	}
	pp := proofing.ParsePage(page.Content, page.ID)
	return xml.Parse(pp.XMLString())
}

func (r *run) processBlock(orig *xml.Element, image int, page PageInput, blockIndex int) error {
	if orig.Tag == "metadata" {
		r.handleMetadata(orig)
		return nil
	}

	block := orig.Clone()
	block.Tail = ""
	if err := RewriteBlock(block, image); err != nil {
		return err
	}

	if block.Tag == "note" {
		key := fmt.Sprintf("%d.%s", image, orig.Attr(proofing.AttrMark))
		r.footnotes[key] = block
		return nil
	}

	if r.pending != nil {
		if r.merge(r.pending.el, block, r.pageLabel(image)) {
			if !mergeNext(orig) {
				r.pending = nil
			}
			return nil
		}
		// Types differ: the pending block stays as filed and the current
		// block starts its own chain.
		r.pending = nil
	}

	slug := r.assignN(orig, block)
	placed := &placedBlock{slug: slug, el: block, pageID: page.ID}

	switch {
	case block.Tag == "sp":
		r.activeSp = block
		r.file(placed)
	case isStageOnly(block):
		r.activeSp = nil
		r.file(placed)
	case r.activeSp != nil && (block.Tag == "p" || block.Tag == "lg"):
		// A speaker turn is still open: this block belongs to it.
		r.activeSp.Append(block)
	default:
		r.file(placed)
	}

	if mergeNext(orig) {
		r.pending = placed
	}
	return nil
}

func (r *run) file(b *placedBlock) {
	r.blocks = append(r.blocks, b)
	r.bySlug[b.slug] = b
}

// handleMetadata interprets a metadata block's "key = value" lines. The
// "speaker" command ends the active speaker run. Metadata never enters the
// output.
func (r *run) handleMetadata(el *xml.Element) {
	for _, line := range strings.Split(el.Text, "\n") {
		key, _, _ := strings.Cut(line, "=")
		if strings.TrimSpace(key) == "speaker" {
			r.activeSp = nil
		}
	}
}

func mergeNext(el *xml.Element) bool {
	return strings.EqualFold(el.Attr(proofing.AttrMergeNext), "true") ||
		strings.EqualFold(el.Attr(proofing.AttrMergeText), "true")
}

func (r *run) pageLabel(image int) string {
	if image >= 1 && image <= len(r.pageNumbers) {
		return r.pageNumbers[image-1]
	}
	return DefaultPageLabel
}

// assignN gives the block its ordering identifier: the proofing element's
// explicit n when present (always used verbatim, even when it repeats an
// earlier identifier), otherwise the next auto-incremented identifier for
// its output tag, skipping identifiers already taken. An sp wrapper never
// carries n itself; the identifier goes on its wrapped child.
func (r *run) assignN(orig, block *xml.Element) string {
	explicit := orig.Attr(proofing.AttrN)

	target := block
	tag := block.Tag
	if block.Tag == "sp" {
		if len(block.Children) == 2 {
			target = block.Children[1]
			tag = target.Tag
		} else {
			// Speaker-only turn: nothing to stamp, but the slug still
			// advances the sp counter.
			target = nil
			tag = "sp"
		}
	}

	n := explicit
	if n == "" {
		n = r.nextN(tag)
		for r.bySlug[n] != nil {
			n = r.nextN(tag)
		}
	} else {
		r.lastN[tag] = n
	}
	if target != nil {
		target.SetAttr(proofing.AttrN, n)
	}
	return n
}

// nextN computes the next identifier for a tag by incrementing the trailing
// digit run of the previous one. A previous identifier with no trailing
// digits gets "2" appended; the very first identifier for a tag behaves as
// if the previous one were the bare tag name.
func (r *run) nextN(tag string) string {
	prev, ok := r.lastN[tag]
	if !ok || prev == "" {
		prev = tag
	}
	var next string
	if loc := trailingDigits.FindStringIndex(prev); loc != nil {
		num, err := strconv.Atoi(prev[loc[0]:])
		if err != nil {
			// Digit run too long for an int; start a fresh suffix.
			next = prev + "2"
		} else {
			next = prev[:loc[0]] + strconv.Itoa(num+1)
		}
	} else {
		next = prev + "2"
	}
	r.lastN[tag] = next
	return next
}

// isStageOnly reports whether a rewritten block is nothing but a stage
// direction. Such a block ends the active speaker run.
func isStageOnly(el *xml.Element) bool {
	if len(el.Children) != 1 || el.Children[0].Tag != "stage" {
		return false
	}
	return strings.TrimSpace(el.Text) == "" && strings.TrimSpace(el.Children[0].Tail) == ""
}

// merge appends a continuation block onto the pending block in place,
// separated by a <pb/> page-break marker carrying the printed page label.
// Merging into an sp targets its wrapped child, not the sp itself. Returns
// false when the shapes do not line up, in which case the caller finalizes
// the pending block unmerged.
func (r *run) merge(pending, incoming *xml.Element, label string) bool {
	dst := pending
	if dst.Tag == "sp" {
		if len(dst.Children) != 2 {
			return false
		}
		dst = dst.Children[1]
	}
	src := incoming
	if src.Tag == "sp" && len(src.Children) == 2 {
		src = src.Children[1]
	}
	if dst.Tag != src.Tag {
		return false
	}

	pb := xml.NewElement("pb")
	pb.SetAttr("n", label)
	if dst.Tag == "p" || dst.Tag == "lg" {
		pb.Tail = src.Text
	}
	dst.Append(pb)
	for _, c := range src.Children {
		dst.Append(c)
	}
	return true
}

// resolveFootnotes walks every placed block for noteAnchor refs, assigns
// referenced footnotes sequential fn<N> ids in first-seen order, rewrites
// the anchors to point at them, and appends each footnote to the block that
// referenced it. Unreferenced footnotes are dropped.
func (r *run) resolveFootnotes() {
	assigned := make(map[string]string)
	count := 0
	for _, placed := range r.blocks {
		var refs []*xml.Element
		placed.el.Walk(func(e *xml.Element) {
			if e.Tag == "ref" && e.Attr("type") == "noteAnchor" {
				refs = append(refs, e)
			}
		})
		for _, ref := range refs {
			target := ref.Attr("target")
			if note, ok := r.footnotes[target]; ok {
				count++
				id := fmt.Sprintf("fn%d", count)
				note.SetAttr("xml:id", id)
				assigned[target] = id
				delete(r.footnotes, target)
				placed.el.Append(note)
			}
			if id, ok := assigned[target]; ok {
				ref.SetAttr("target", "#"+id)
			}
		}
	}
}

// buildDocument groups placed blocks into sections by slug prefix, in
// first-seen order, and serializes each block.
func (r *run) buildDocument() *Document {
	doc := &Document{}
	index := make(map[string]int)
	for _, placed := range r.blocks {
		prefix := "all"
		if i := strings.LastIndex(placed.slug, "."); i >= 0 {
			prefix = placed.slug[:i]
		}
		si, ok := index[prefix]
		if !ok {
			si = len(doc.Sections)
			index[prefix] = si
			doc.Sections = append(doc.Sections, Section{Slug: prefix})
		}
		doc.Sections[si].Blocks = append(doc.Sections[si].Blocks, DocBlock{
			XML:    residueMarker.ReplaceAllString(placed.el.String(), ""),
			Slug:   placed.slug,
			PageID: placed.pageID,
		})
	}
	return doc
}

// PreviewBlocks rewrites each block of a parsed page independently,
// returning the per-block TEI markup alongside any per-block errors. This
// drives the live editing preview; no cross-page state applies.
func PreviewBlocks(page proofing.Page, imageNumber int) ([]string, []string) {
	blocks := []string{}
	errs := []string{}
	for i, b := range page.Blocks {
		el, err := ParseBlock(b)
		if err != nil {
			errs = append(errs, fmt.Sprintf("block %d: %v", i+1, err))
			continue
		}
		if err := RewriteBlock(el, imageNumber); err != nil {
			errs = append(errs, fmt.Sprintf("block %d: %v", i+1, err))
			continue
		}
		blocks = append(blocks, el.String())
	}
	return blocks, errs
}
