package proofing

// types.go - Closed vocabularies of the proofing markup language.
// Block tags, inline tags, and languages form fixed sets; everything else the
// parser meets is a validation error, never a silent extension.

// BlockType identifies one kind of top-level block on a proofing page.
type BlockType string

const (
	// BlockParagraph is running prose.
	BlockParagraph BlockType = "p"
	// BlockVerse is metrical text, split into lines on output.
	BlockVerse BlockType = "verse"
	// BlockFootnote is an apparatus note keyed by a marker symbol.
	BlockFootnote BlockType = "footnote"
	// BlockHeading is a section heading.
	BlockHeading BlockType = "heading"
	// BlockTrailer is a closing rubric (colophon line etc.).
	BlockTrailer BlockType = "trailer"
	// BlockTitle is a work or chapter title.
	BlockTitle BlockType = "title"
	// BlockSubtitle is a secondary title.
	BlockSubtitle BlockType = "subtitle"
	// BlockIgnore marks content excluded from every published text.
	BlockIgnore BlockType = "ignore"
	// BlockMetadata holds key = value commands for the assembler.
	BlockMetadata BlockType = "metadata"
)

var validBlockTypes = map[BlockType]bool{
	BlockParagraph: true,
	BlockVerse:     true,
	BlockFootnote:  true,
	BlockHeading:   true,
	BlockTrailer:   true,
	BlockTitle:     true,
	BlockSubtitle:  true,
	BlockIgnore:    true,
	BlockMetadata:  true,
}

// IsValid returns true if the block type is one of the known values.
func (b BlockType) IsValid() bool {
	return validBlockTypes[b]
}

var blockTypeLabels = map[BlockType]string{
	BlockParagraph: "Paragraph",
	BlockVerse:     "Verse",
	BlockFootnote:  "Footnote",
	BlockHeading:   "Heading",
	BlockTrailer:   "Trailer",
	BlockTitle:     "Title",
	BlockSubtitle:  "Subtitle",
	BlockIgnore:    "Ignore",
	BlockMetadata:  "Metadata",
}

// Label returns the human-readable name shown in editing interfaces.
func (b BlockType) Label() string {
	if label, ok := blockTypeLabels[b]; ok {
		return label
	}
	return string(b)
}

// InlineTag identifies one kind of inline markup inside a block.
type InlineTag string

const (
	// InlineError wraps text the source prints incorrectly.
	InlineError InlineTag = "error"
	// InlineFix wraps an editorial correction or supplied reading.
	InlineFix InlineTag = "fix"
	// InlineSpeaker names the speaker of a dramatic passage.
	InlineSpeaker InlineTag = "speaker"
	// InlineStage is a stage direction.
	InlineStage InlineTag = "stage"
	// InlineRef is a footnote anchor pointing at a marker symbol.
	InlineRef InlineTag = "ref"
	// InlineFlag marks text for later editorial attention.
	InlineFlag InlineTag = "flag"
	// InlineChaya wraps the Sanskrit rendering of a Prakrit passage.
	InlineChaya InlineTag = "chaya"
)

var validInlineTags = map[InlineTag]bool{
	InlineError:   true,
	InlineFix:     true,
	InlineSpeaker: true,
	InlineStage:   true,
	InlineRef:     true,
	InlineFlag:    true,
	InlineChaya:   true,
}

// IsValid returns true if the inline tag is one of the known values.
func (i InlineTag) IsValid() bool {
	return validInlineTags[i]
}

// Language codes assigned by the detection heuristic.
const (
	LangSanskrit = "sa"
	LangHindi    = "hi"
	LangEnglish  = "en"
)

// Block attribute names recognized by the parser and validator.
const (
	// AttrLang is the block's language code.
	AttrLang = "lang"
	// AttrText names the published text a block belongs to.
	AttrText = "text"
	// AttrN is the user-assigned ordering identifier.
	AttrN = "n"
	// AttrMark is a footnote's marker symbol.
	AttrMark = "mark"
	// AttrMergeNext marks a block continued on the next page.
	AttrMergeNext = "merge-next"
	// AttrMergeText is the deprecated spelling of AttrMergeNext.
	AttrMergeText = "merge-text"
)
