// internal/pages/errors.go
package pages

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qaforge/sauceprobe/internal/browser"
)

var (
	// ErrElementTimeout is matched by every *TimeoutError.
	ErrElementTimeout = errors.New("element wait timed out")
	// ErrIndexOutOfRange is matched by every *IndexError.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
)

// TimeoutError reports a bounded wait whose condition never held.
type TimeoutError struct {
	Locator   browser.Locator
	Timeout   time.Duration
	Condition string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for %s to be %s", e.Timeout, e.Locator, e.Condition)
}

func (e *TimeoutError) Is(target error) bool { return target == ErrElementTimeout }

// IndexError reports a positional selection outside the available items.
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("item index %d is out of range: %d item(s) available", e.Index, e.Size)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndexOutOfRange }

// FieldError describes one violated field constraint.
type FieldError struct {
	Field string
	Rule  string
}

func (f FieldError) String() string {
	switch f.Rule {
	case "required":
		return f.Field + ": field required"
	case "min":
		return f.Field + ": must not be empty"
	}
	return fmt.Sprintf("%s: failed %q constraint", f.Field, f.Rule)
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Model  string
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return fmt.Sprintf("%d validation error(s) for %s: %s", len(e.Fields), e.Model, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FieldNames returns the offending field names in declaration order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return names
}
