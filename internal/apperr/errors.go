// Package apperr defines the error classes shared by the portfolio, analysis
// and chat services. Callers wrap one of the sentinels with fmt.Errorf("%w")
// and inspect it with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound: the referenced portfolio, holding or session does not exist for the caller.
	ErrNotFound = errors.New("not found")
	// ErrValidation: the input was rejected before any pipeline stage ran.
	ErrValidation = errors.New("validation failed")
	// ErrDegraded: an external data source was unavailable.
	ErrDegraded = errors.New("external service degraded")
	// ErrReasoning: the reasoning engine failed or returned an unusable response.
	ErrReasoning = errors.New("reasoning failure")
	// ErrStorage: persistence failed. This is the only fatal class.
	ErrStorage = errors.New("storage failure")
)

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func Degraded(source string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrDegraded, source, err)
}

func Reasoning(err error) error {
	if errors.Is(err, ErrReasoning) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrReasoning, err)
}

func Storage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// Kind names the class of err for display, or "internal" if it has none.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDegraded):
		return "degraded"
	case errors.Is(err, ErrReasoning):
		return "reasoning"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
	}
}
