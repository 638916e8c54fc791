// Package filter implements the block-selection predicate language used when
// assembling a published text from a proofing project.
//
// A target is either a bare text label ("mula") or a parenthesized
// S-expression over a small set of predicates:
//
//	(label mula)
//	(tag verse)
//	(image 4)
//	(image 1 10)
//	(and (label mula) (not (tag footnote)))
//
// Selection fails closed: a target that does not compile selects nothing,
// and Matches never panics.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

// IndexedBlock is the positional context a predicate sees for one block:
// which page it sits on, where it sits on that page, and the parsed proofing
// element itself.
type IndexedBlock struct {
	// ImageNumber is the block's 1-based page position within the project.
	ImageNumber int
	// BlockIndex is the block's 0-based index within its page.
	BlockIndex int
	// El is the block's proofing element.
	El *xml.Element
	// Page is the full parsed page tree.
	Page *xml.Element
}

// sexpNode is one node of the parsed expression: either an atom or a
// parenthesized list.
//
//nolint:govet // participle grammar tags are not standard struct tags
type sexpNode struct {
	Atom *string   `  @(Atom|String)`
	List *sexpList `| @@`
}

//nolint:govet // participle grammar tags are not standard struct tags
type sexpList struct {
	Items []*sexpNode `"(" @@* ")"`
}

var sexpLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Atom", Pattern: `[^()\s"]+`},
	{Name: "Punct", Pattern: `[()]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var sexpParser = participle.MustBuild[sexpNode](
	participle.Lexer(sexpLexer),
	participle.Elide("Whitespace"),
)

// predicate is the compiled form of one expression node.
type predicate interface {
	matches(b IndexedBlock) bool
}

type labelPred struct{ label string }

func (p labelPred) matches(b IndexedBlock) bool { return b.El.Attr("text") == p.label }

type tagPred struct{ tag string }

func (p tagPred) matches(b IndexedBlock) bool { return b.El.Tag == p.tag }

type imagePred struct{ lo, hi int }

func (p imagePred) matches(b IndexedBlock) bool {
	return b.ImageNumber >= p.lo && b.ImageNumber <= p.hi
}

type andPred struct{ subs []predicate }

func (p andPred) matches(b IndexedBlock) bool {
	for _, s := range p.subs {
		if !s.matches(b) {
			return false
		}
	}
	return true
}

type orPred struct{ subs []predicate }

func (p orPred) matches(b IndexedBlock) bool {
	for _, s := range p.subs {
		if s.matches(b) {
			return true
		}
	}
	return false
}

type notPred struct{ sub predicate }

func (p notPred) matches(b IndexedBlock) bool { return !p.sub.matches(b) }

// Filter is an immutable compiled block-selection predicate.
type Filter struct {
	pred predicate
}

// None returns a filter that selects nothing. Callers use it when a target
// fails to compile and selection must fail closed.
func None() *Filter {
	return &Filter{}
}

// Compile parses a target into a Filter. A target with no leading "(" is
// legacy shorthand for (label <target>); the empty target selects blocks
// with no text attribute.
func Compile(target string) (*Filter, error) {
	t := strings.TrimSpace(target)
	if !strings.HasPrefix(t, "(") {
		return &Filter{pred: labelPred{label: t}}, nil
	}

	node, err := sexpParser.ParseString("", t)
	if err != nil {
		return nil, &errors.ParseError{Format: "filter", Message: err.Error(), Err: err}
	}
	pred, err := compileNode(node)
	if err != nil {
		return nil, err
	}
	return &Filter{pred: pred}, nil
}

// Matches reports whether the filter selects the given block. A nil or
// empty filter selects nothing.
func (f *Filter) Matches(b IndexedBlock) bool {
	if f == nil || f.pred == nil || b.El == nil {
		return false
	}
	return f.pred.matches(b)
}

func compileNode(n *sexpNode) (predicate, error) {
	if n.List == nil {
		return nil, errors.NewParse("filter", "", "expected a parenthesized expression")
	}
	items := n.List.Items
	if len(items) == 0 {
		return nil, errors.NewParse("filter", "", "empty expression")
	}
	if items[0].Atom == nil {
		return nil, errors.NewParse("filter", "", "expression must start with a predicate name")
	}
	name := unquote(*items[0].Atom)
	args := items[1:]

	switch name {
	case "image", "page":
		return compileImage(name, args)
	case "label":
		s, err := atomArg(name, args)
		if err != nil {
			return nil, err
		}
		return labelPred{label: s}, nil
	case "tag":
		s, err := atomArg(name, args)
		if err != nil {
			return nil, err
		}
		return tagPred{tag: s}, nil
	case "and", "or":
		if len(args) == 0 {
			return nil, errors.NewParse("filter", "", fmt.Sprintf("(%s) needs at least one argument", name))
		}
		subs := make([]predicate, len(args))
		for i, a := range args {
			sub, err := compileNode(a)
			if err != nil {
				return nil, err
			}
			subs[i] = sub
		}
		if name == "and" {
			return andPred{subs: subs}, nil
		}
		return orPred{subs: subs}, nil
	case "not":
		if len(args) != 1 {
			return nil, errors.NewParse("filter", "", "(not) takes exactly one argument")
		}
		sub, err := compileNode(args[0])
		if err != nil {
			return nil, err
		}
		return notPred{sub: sub}, nil
	default:
		return nil, errors.NewParse("filter", "", fmt.Sprintf("unknown predicate %q", name))
	}
}

func compileImage(name string, args []*sexpNode) (predicate, error) {
	if len(args) < 1 || len(args) > 2 {
		return nil, errors.NewParse("filter", "", fmt.Sprintf("(%s) takes one or two numbers", name))
	}
	nums := make([]int, len(args))
	for i, a := range args {
		if a.Atom == nil {
			return nil, errors.NewParse("filter", "", fmt.Sprintf("(%s) takes numeric arguments", name))
		}
		v, err := strconv.Atoi(unquote(*a.Atom))
		if err != nil {
			return nil, errors.NewParse("filter", "", fmt.Sprintf("(%s) argument %q is not a number", name, *a.Atom))
		}
		nums[i] = v
	}
	lo := nums[0]
	hi := lo
	if len(nums) == 2 {
		hi = nums[1]
	}
	return imagePred{lo: lo, hi: hi}, nil
}

func atomArg(name string, args []*sexpNode) (string, error) {
	if len(args) != 1 || args[0].Atom == nil {
		return "", errors.NewParse("filter", "", fmt.Sprintf("(%s) takes exactly one atom", name))
	}
	return unquote(*args[0].Atom), nil
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
