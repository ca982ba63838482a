package apperr

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Check is a predicate result; nil means the field passed.
type Check *FieldError

func Required(field, value string) Check {
	if strings.TrimSpace(value) == "" {
		return &FieldError{Field: field, Reason: "is required"}
	}
	return nil
}

func OneOf(field, value string, allowed ...string) Check {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &FieldError{Field: field, Reason: fmt.Sprintf("must be one of %s", strings.Join(allowed, ", "))}
}

func Positive(field string, n int) Check {
	if n <= 0 {
		return &FieldError{Field: field, Reason: "must be greater than zero"}
	}
	return nil
}

func NonNegative(field string, d decimal.Decimal) Check {
	if d.IsNegative() {
		return &FieldError{Field: field, Reason: "must not be negative"}
	}
	return nil
}

func MaxLen(field, value string, max int) Check {
	if len([]rune(value)) > max {
		return &FieldError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", max)}
	}
	return nil
}

// Validate collects failed checks into a Validation error, or returns nil.
func Validate(msg string, checks ...Check) error {
	var fields []FieldError
	for _, c := range checks {
		if c != nil {
			fields = append(fields, *c)
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return &Error{kind: Validation, Msg: msg, Fields: fields}
}
