package registry

import (
	"errors"
	"fmt"

	"github.com/ashinth-ffyo/harmony-cup/internal/models"
)

var (
	// ErrValidation matches every *ValidationError via errors.Is.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound matches every *NotFoundError via errors.Is.
	ErrNotFound = errors.New("not found")
)

// ValidationError names the first field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError reports an unknown category (RefNo == 0) or an unknown team.
type NotFoundError struct {
	Category models.Category
	RefNo    int
}

func (e *NotFoundError) Error() string {
	if e.RefNo == 0 {
		return fmt.Sprintf("category %q not found", string(e.Category))
	}
	return fmt.Sprintf("team with %s %d not found in category %s", models.ColRefNo, e.RefNo, e.Category)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
