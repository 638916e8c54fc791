package pagemap

import "strings"

var romanValues = []struct {
	value  int
	symbol string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
	{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
	{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"},
	{1, "i"},
}

// parseRoman reads a roman numeral in either case. Mixed-case input and
// malformed numerals (those that do not round-trip through formatRoman)
// are rejected, so labels like "Mix" stay verbatim.
func parseRoman(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	lower := strings.ToLower(s)
	if s != lower && s != strings.ToUpper(s) {
		return 0, false
	}

	total := 0
	rest := lower
	for _, rv := range romanValues {
		for strings.HasPrefix(rest, rv.symbol) {
			total += rv.value
			rest = rest[len(rv.symbol):]
		}
	}
	if rest != "" || formatRoman(total, false) != lower {
		return 0, false
	}
	return total, true
}

// formatRoman writes n as a roman numeral, upper- or lowercase.
func formatRoman(n int, upper bool) string {
	var b strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			b.WriteString(rv.symbol)
			n -= rv.value
		}
	}
	if upper {
		return strings.ToUpper(b.String())
	}
	return b.String()
}

func isUpperRoman(s string) bool {
	return s != "" && s == strings.ToUpper(s)
}
