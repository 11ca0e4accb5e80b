package ingestion_engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/markdave123-py/contexta-ingest/internal/core"
)

// Category classifies a failed invocation for the caller.
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryExtraction Category = "extraction"
	CategoryTransient  Category = "transient"
	CategoryTimeout    Category = "timeout"
	CategoryDuplicate  Category = "duplicate_content"
	CategoryInternal   Category = "internal"
)

var (
	ErrValidation = errors.New("validation error")
	ErrExtraction = errors.New("extraction error")
	ErrTransient  = errors.New("transient external error")
	ErrTimeout    = errors.New("timeout")
)

// Error carries the category and phase of a pipeline failure.
type Error struct {
	Category Category
	Phase    Phase
	Err      error
}

func (e *Error) Error() string {
	if e.Phase != "" {
		return fmt.Sprintf("%s: %s: %v", e.Phase, e.Category, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the category sentinels so callers can use errors.Is(err, ErrTimeout).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Category == CategoryValidation
	case ErrExtraction:
		return e.Category == CategoryExtraction
	case ErrTransient:
		return e.Category == CategoryTransient
	case ErrTimeout:
		return e.Category == CategoryTimeout
	case core.ErrDuplicateContent:
		return e.Category == CategoryDuplicate
	}
	return false
}

func newError(cat Category, phase Phase, err error) *Error {
	return &Error{Category: cat, Phase: phase, Err: err}
}

func validationErrorf(format string, args ...any) *Error {
	return newError(CategoryValidation, PhaseParsing, fmt.Errorf(format, args...))
}

func extractionErrorf(format string, args ...any) *Error {
	return newError(CategoryExtraction, PhaseParsing, fmt.Errorf(format, args...))
}

// CategoryOf reports the category of err. Errors that carry no category are
// classified by their sentinel, falling back to internal.
func CategoryOf(err error) Category {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Category
	}
	switch {
	case errors.Is(err, core.ErrDuplicateContent):
		return CategoryDuplicate
	case isTimeout(err):
		return CategoryTimeout
	}
	return CategoryInternal
}

// asPipelineError attaches phase and category to err unless it already has them.
func asPipelineError(phase Phase, cat Category, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Phase == "" {
			pe.Phase = phase
		}
		return pe
	}
	if isTimeout(err) {
		cat = CategoryTimeout
	}
	return newError(cat, phase, err)
}

// rollsBack reports whether a failure of this category deletes the source object.
func (c Category) rollsBack() bool {
	switch c {
	case CategoryValidation, CategoryTimeout, CategoryDuplicate:
		return false
	}
	return true
}

func isTimeout(err error) bool {
	return errors.Is(err, errUnitTimeout) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
