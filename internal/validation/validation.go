// Package validation checks the identifiers that flow into the database and
// into URLs: project, page, and published-text slugs. Slugs appear in edit
// links and export filenames, so they are restricted to a safe character
// set up front rather than escaped downstream.
package validation

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxSlugLength bounds every slug stored or routed on.
	MaxSlugLength = 64
)

var (
	// ErrInvalidSlug indicates a slug that cannot be stored or routed on.
	ErrInvalidSlug = errors.New("invalid slug")
)

// ValidateSlug checks that a slug is usable as a stable identifier: ASCII
// letters, digits, hyphen, underscore, and dot, not empty, not overlong,
// and not starting with a character that reads as a flag or a relative path.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSlug)
	}
	if len(slug) > MaxSlugLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidSlug, MaxSlugLength)
	}
	if strings.HasPrefix(slug, "-") || strings.HasPrefix(slug, ".") {
		return fmt.Errorf("%w: cannot start with %q", ErrInvalidSlug, slug[0])
	}
	for _, r := range slug {
		if !isSlugRune(r) {
			return fmt.Errorf("%w: character %q not allowed", ErrInvalidSlug, r)
		}
	}
	return nil
}

func isSlugRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.':
		return true
	}
	return false
}

// SlugFromFilename derives a valid slug from a page file's name: the
// extension is dropped and every disallowed character becomes a hyphen.
// It fails only when nothing usable remains.
func SlugFromFilename(filename string) (string, error) {
	base := filename
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	var b strings.Builder
	for _, r := range base {
		if isSlugRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-.")
	if len(slug) > MaxSlugLength {
		slug = slug[:MaxSlugLength]
		slug = strings.Trim(slug, "-.")
	}
	if err := ValidateSlug(slug); err != nil {
		return "", fmt.Errorf("filename %q: %w", filename, err)
	}
	return slug, nil
}
