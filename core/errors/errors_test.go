package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "project", ID: "kumarasambhavam"},
			wantMsg:  "project not found: kumarasambhavam",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "page"},
			wantMsg:  "page not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	// Test with underlying error separately
	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "revision", ID: "47", Err: underlyingErr}
		if got := err.Error(); got != "revision not found: 47" {
			t.Errorf("Error() = %q, want %q", got, "revision not found: 47")
		}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with field",
			err:      &ValidationError{Field: "slug", Message: "must not be empty"},
			wantMsg:  "validation failed for slug: must not be empty",
			wantBase: ErrInvalidInput,
		},
		{
			name:     "without field",
			err:      &ValidationError{Message: "invalid format"},
			wantMsg:  "validation failed: invalid format",
			wantBase: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}
}

func TestConflictError(t *testing.T) {
	err := &ConflictError{Resource: "page", ID: "47", Message: "version 3 is stale"}
	want := "conflict on page 47: version 3 is stale"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrConflict) {
		t.Error("errors.Is(err, ErrConflict) = false, want true")
	}

	err = &ConflictError{Resource: "text", Message: "already published"}
	want = "conflict on text: already published"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ParseError
		wantMsg string
	}{
		{
			name:    "with path",
			err:     &ParseError{Format: "page XML", Path: "page 12, block 3", Message: "unbalanced tag"},
			wantMsg: "failed to parse page XML at page 12, block 3: unbalanced tag",
		},
		{
			name:    "without path",
			err:     &ParseError{Format: "filter", Message: "unexpected token"},
			wantMsg: "failed to parse filter: unexpected token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Error("ParseError should unwrap to ErrInvalidInput")
			}
		})
	}
}

func TestIOError(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := &IOError{Operation: "write", Path: "/tmp/out.xml", Err: underlying}
	want := "failed to write /tmp/out.xml: permission denied"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("base error")

	wrapped := Wrap(base, "context")
	if wrapped == nil {
		t.Fatal("Wrap returned nil for non-nil error")
	}
	if got := wrapped.Error(); got != "context: base error" {
		t.Errorf("Wrap() = %q, want %q", got, "context: base error")
	}
	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match base via errors.Is")
	}

	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil, ...) should return nil")
	}
}

func TestWrapf(t *testing.T) {
	base := errors.New("base error")

	wrapped := Wrapf(base, "page %d", 7)
	if got := wrapped.Error(); got != "page 7: base error" {
		t.Errorf("Wrapf() = %q, want %q", got, "page 7: base error")
	}

	if Wrapf(nil, "page %d", 7) != nil {
		t.Error("Wrapf(nil, ...) should return nil")
	}
}

func TestIsAs(t *testing.T) {
	err := Wrap(NewNotFound("project", "x"), "loading")

	if !Is(err, ErrNotFound) {
		t.Error("Is(err, ErrNotFound) = false, want true")
	}

	var nf *NotFoundError
	if !As(err, &nf) {
		t.Fatal("As(err, *NotFoundError) = false, want true")
	}
	if nf.Resource != "project" {
		t.Errorf("nf.Resource = %q, want %q", nf.Resource, "project")
	}
}
