package filter

import (
	"testing"

	"github.com/FocuswithJustin/TulsiPress/core/xml"
)

func block(tag, text string, image int) IndexedBlock {
	el := xml.NewElement(tag)
	if text != "" {
		el.SetAttr("text", text)
	}
	return IndexedBlock{ImageNumber: image, El: el}
}

func TestCompileBareLabel(t *testing.T) {
	f, err := Compile("mula")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !f.Matches(block("p", "mula", 1)) {
		t.Error("bare label should match block with same text attribute")
	}
	if f.Matches(block("p", "commentary", 1)) {
		t.Error("bare label should not match block with different text attribute")
	}
}

func TestCompileEmptyTarget(t *testing.T) {
	f, err := Compile("")
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !f.Matches(block("p", "", 1)) {
		t.Error("empty target should match blocks with no text attribute")
	}
	if f.Matches(block("p", "mula", 1)) {
		t.Error("empty target should not match labelled blocks")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name   string
		target string
		b      IndexedBlock
		want   bool
	}{
		{"label match", "(label mula)", block("p", "mula", 1), true},
		{"label mismatch", "(label mula)", block("p", "tika", 1), false},
		{"quoted label", `(label "mula")`, block("p", "mula", 1), true},
		{"tag match", "(tag verse)", block("verse", "", 1), true},
		{"tag mismatch", "(tag verse)", block("p", "", 1), false},
		{"image exact", "(image 3)", block("p", "", 3), true},
		{"image exact miss", "(image 3)", block("p", "", 4), false},
		{"image range low", "(image 1 10)", block("p", "", 1), true},
		{"image range high", "(image 1 10)", block("p", "", 10), true},
		{"image range outside", "(image 1 10)", block("p", "", 11), false},
		{"legacy page alias", "(page 2 5)", block("p", "", 4), true},
		{"and all match", "(and (tag verse) (image 1 10))", block("verse", "", 5), true},
		{"and one fails", "(and (tag verse) (image 1 10))", block("p", "", 5), false},
		{"or one matches", "(or (tag verse) (label mula))", block("p", "mula", 1), true},
		{"or none match", "(or (tag verse) (label mula))", block("p", "tika", 1), false},
		{"not", "(not (tag footnote))", block("p", "", 1), true},
		{"not inverted", "(not (tag footnote))", block("footnote", "", 1), false},
		{"nested", "(and (label mula) (not (tag footnote)) (image 1 2))", block("p", "mula", 2), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Compile(tt.target)
			if err != nil {
				t.Fatalf("Compile(%q) failed: %v", tt.target, err)
			}
			if got := f.Matches(tt.b); got != tt.want {
				t.Errorf("Matches = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	targets := []string{
		"(label mula",           // unbalanced
		"()",                    // empty expression
		"(frobnicate 1)",        // unknown predicate
		"(image one)",           // non-numeric argument
		"(image 1 2 3)",         // too many arguments
		"(not (tag p) (tag q))", // wrong arity
		"(label)",               // missing argument
		"(and)",                 // no arguments
		"((label mula))",        // list in call position
	}
	for _, target := range targets {
		if _, err := Compile(target); err == nil {
			t.Errorf("Compile(%q) succeeded, want error", target)
		}
	}
}

func TestNoneSelectsNothing(t *testing.T) {
	f := None()
	if f.Matches(block("p", "", 1)) {
		t.Error("None() matched a block")
	}

	var nilFilter *Filter
	if nilFilter.Matches(block("p", "", 1)) {
		t.Error("nil filter matched a block")
	}
}
