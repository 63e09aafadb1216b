package model

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

// ValidationError names the field and the constraint a value failed.
type ValidationError struct {
	Field      string
	Constraint string
	Param      string
}

func (e *ValidationError) Error() string {
	switch e.Constraint {
	case "required":
		return fmt.Sprintf("%s is required", e.Field)
	case "gte":
		if e.Param == "0" {
			return fmt.Sprintf("%s must be a non-negative number", e.Field)
		}
		return fmt.Sprintf("%s must be >= %s", e.Field, e.Param)
	case "gt":
		if e.Param == "0" {
			return fmt.Sprintf("%s must be a positive number", e.Field)
		}
		return fmt.Sprintf("%s must be > %s", e.Field, e.Param)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", e.Field, e.Param)
	case "finite":
		return fmt.Sprintf("%s must be a finite number", e.Field)
	case "isodate":
		return fmt.Sprintf("%s must be a date (YYYY-MM-DD)", e.Field)
	case "hhmm":
		return fmt.Sprintf("%s must be a time (HH:MM)", e.Field)
	case "weekday":
		return fmt.Sprintf("%s must be one of mon, tue, wed, thu, fri, sat, sun", e.Field)
	case "after":
		return fmt.Sprintf("%s must be after %s", e.Field, e.Param)
	case "onOrAfter":
		return fmt.Sprintf("%s must be on or after %s", e.Field, e.Param)
	case "activeFast":
		return "a fast is already active"
	default:
		return fmt.Sprintf("%s failed %s", e.Field, e.Constraint)
	}
}

func invalid(field, constraint, param string) error {
	return &ValidationError{Field: field, Constraint: constraint, Param: param}
}

// NotFoundError reports a missing person, entry, template or recipe.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// IsValidation reports whether err carries a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
