// Package pagemap maps a project's image sequence to printed page labels.
//
// A project stores a page-number spec: one rule per line in the form
// "<image> = <label>", where image is the 1-based position of a page in the
// project and label is the page number printed in the physical book at that
// position. Labels continue automatically from rule to rule: arabic numerals
// increment, roman numerals increment preserving case, and anything else
// repeats verbatim. Images before the first rule map to "-".
package pagemap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/FocuswithJustin/TulsiPress/core/errors"
)

// Placeholder is the label for images no rule covers.
const Placeholder = "-"

// Rule pins the printed label of one image position.
type Rule struct {
	Image int
	Label string
}

// ParseSpec parses a page-number spec. Blank lines and lines starting with
// "#" are ignored. Rules must be in strictly increasing image order.
func ParseSpec(spec string) ([]Rule, error) {
	var rules []Rule
	for i, line := range strings.Split(spec, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		left, right, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &errors.ValidationError{
				Field:   "page_numbers",
				Value:   line,
				Message: fmt.Sprintf("line %d: expected \"<image> = <label>\"", i+1),
			}
		}
		image, err := strconv.Atoi(strings.TrimSpace(left))
		if err != nil || image < 1 {
			return nil, &errors.ValidationError{
				Field:   "page_numbers",
				Value:   strings.TrimSpace(left),
				Message: fmt.Sprintf("line %d: image must be a positive integer", i+1),
			}
		}
		label := strings.TrimSpace(right)
		if label == "" {
			return nil, &errors.ValidationError{
				Field:   "page_numbers",
				Value:   line,
				Message: fmt.Sprintf("line %d: label must not be empty", i+1),
			}
		}
		if len(rules) > 0 && image <= rules[len(rules)-1].Image {
			return nil, &errors.ValidationError{
				Field:   "page_numbers",
				Value:   line,
				Message: fmt.Sprintf("line %d: image %d is not after image %d", i+1, image, rules[len(rules)-1].Image),
			}
		}
		rules = append(rules, Rule{Image: image, Label: label})
	}
	return rules, nil
}

// Apply produces one printed label per image for a project of n pages.
// Each rule sets the label at its image; later images continue the label's
// succession until the next rule takes over.
func Apply(n int, rules []Rule) []string {
	labels := make([]string, n)
	for i := range labels {
		labels[i] = Placeholder
	}
	for ri, rule := range rules {
		end := n
		if ri+1 < len(rules) && rules[ri+1].Image-1 < end {
			end = rules[ri+1].Image - 1
		}
		label := rule.Label
		for image := rule.Image; image <= end; image++ {
			if image >= 1 && image <= n {
				labels[image-1] = label
			}
			label = succ(label)
		}
	}
	return labels
}

// succ returns the label that follows the given one on the next page.
func succ(label string) string {
	if v, err := strconv.Atoi(label); err == nil {
		return strconv.Itoa(v + 1)
	}
	if v, ok := parseRoman(label); ok {
		return formatRoman(v+1, isUpperRoman(label))
	}
	return label
}
