package proofing

import (
	"fmt"

	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

// Severity classifies a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding. Issues are data, never raised: a page
// with issues still parses and can still be previewed.
type Issue struct {
	Severity Severity
	Message  string
}

// grammarRule lists the child tags and attributes one element may carry.
type grammarRule struct {
	children map[string]bool
	attrs    map[string]bool
}

func tagSet(tags ...string) map[string]bool {
	set := make(map[string]bool, len(tags))
	for _, t := range tags {
		set[t] = true
	}
	return set
}

var (
	blockTags  = tagSet("p", "verse", "footnote", "heading", "trailer", "title", "subtitle", "ignore", "metadata")
	inlineTags = tagSet("error", "fix", "speaker", "stage", "ref", "flag", "chaya")

	contentAttrs  = tagSet(AttrLang, AttrText, AttrN, AttrMergeNext, AttrMergeText)
	headingAttrs  = tagSet(AttrLang, AttrText, AttrN)
	footnoteAttrs = tagSet(AttrLang, AttrText, AttrMark)
	bareAttrs     = tagSet(AttrLang, AttrText)
)

// pageGrammar is the fixed grammar of proofing markup: which tags may appear
// where, and which attributes each tag accepts. Anything outside the table is
// a validation error.
var pageGrammar = map[string]grammarRule{
	"page":     {children: blockTags, attrs: tagSet()},
	"p":        {children: inlineTags, attrs: contentAttrs},
	"verse":    {children: inlineTags, attrs: contentAttrs},
	"footnote": {children: inlineTags, attrs: footnoteAttrs},
	"heading":  {children: inlineTags, attrs: headingAttrs},
	"trailer":  {children: inlineTags, attrs: headingAttrs},
	"title":    {children: inlineTags, attrs: headingAttrs},
	"subtitle": {children: inlineTags, attrs: headingAttrs},
	"ignore":   {children: inlineTags, attrs: bareAttrs},
	"metadata": {children: inlineTags, attrs: bareAttrs},
	"error":    {children: inlineTags, attrs: tagSet()},
	"fix":      {children: inlineTags, attrs: tagSet()},
	"speaker":  {children: inlineTags, attrs: tagSet()},
	"stage":    {children: inlineTags, attrs: tagSet()},
	"ref":      {children: inlineTags, attrs: tagSet()},
	"flag":     {children: inlineTags, attrs: tagSet()},
	"chaya":    {children: inlineTags, attrs: tagSet()},
}

// Validate checks page markup against the proofing grammar. A malformed
// document or wrong root element yields a single fatal error; otherwise the
// tree is walked depth-first and every violation is reported. Validate never
// panics and always returns a (possibly empty) slice.
func Validate(content string) []Issue {
	root, err := xml.Parse(content)
	if err != nil {
		return []Issue{{
			Severity: SeverityError,
			Message:  fmt.Sprintf("Invalid XML: %v", err),
		}}
	}
	if root.Tag != "page" {
		return []Issue{{
			Severity: SeverityError,
			Message:  fmt.Sprintf("Root element must be 'page', found '%s'", root.Tag),
		}}
	}

	issues := []Issue{}
	validateElement(root, "page", &issues)
	return issues
}

func validateElement(el *xml.Element, path string, issues *[]Issue) {
	rule, known := pageGrammar[el.Tag]
	if !known {
		*issues = append(*issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("Unknown element '%s' at %s", el.Tag, path),
		})
		return
	}

	for _, a := range el.Attrs {
		if !rule.attrs[a.Key] {
			*issues = append(*issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("Unexpected attribute '%s' on '%s'", a.Key, el.Tag),
			})
			continue
		}
		if a.Key == AttrMergeText {
			*issues = append(*issues, Issue{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Attribute '%s' on '%s' is deprecated; use '%s'", AttrMergeText, el.Tag, AttrMergeNext),
			})
		}
	}

	for _, child := range el.Children {
		if !rule.children[child.Tag] {
			*issues = append(*issues, Issue{
				Severity: SeverityError,
				Message:  fmt.Sprintf("Unexpected element '%s' in '%s'", child.Tag, el.Tag),
			})
		}
		validateElement(child, path+"/"+child.Tag, issues)
	}
}
