package common

import "strings"

// ValidationError carries user-safe descriptions of rejected input.
// errors.Is(err, ErrorValidation) holds for it.
type ValidationError struct {
	Problems []string
}

func NewValidationError(problems ...string) *ValidationError {
	return &ValidationError{Problems: problems}
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return ErrorValidation.Error()
	}
	return strings.Join(e.Problems, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrorValidation
}
