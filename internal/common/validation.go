package common

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// FieldError is one failed rule on one request field.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s (got %q)", e.Field, e.Message, fmt.Sprint(e.Value))
}

// Rule checks a single field value and returns nil when it passes.
type Rule func(field string, value any) *FieldError

// Validator collects field errors for one request.
type Validator struct {
	errs []FieldError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field runs every rule against value, in order.
func (v *Validator) Field(name string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if fe := rule(name, value); fe != nil {
			v.errs = append(v.errs, *fe)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.errs) > 0 }

func (v *Validator) Errors() []FieldError { return v.errs }

// ErrorMessage joins every field error; empty when valid.
func (v *Validator) ErrorMessage() string {
	msgs := make([]string, 0, len(v.errs))
	for _, fe := range v.errs {
		msgs = append(msgs, fe.Error())
	}
	return strings.Join(msgs, "; ")
}

// Err returns an AppError wrapping ErrInvalidInput, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError("INVALID_INPUT", v.ErrorMessage(), ErrInvalidInput)
}

// ValidateAndReturnError is Err for gRPC handlers: InvalidArgument status, or nil.
func ValidateAndReturnError(v *Validator) error {
	if !v.HasErrors() {
		return nil
	}
	return InvalidArgumentError(v.ErrorMessage())
}

// stringValue unwraps string and *string; ok is false for any other type.
func stringValue(value any) (s string, isNil, ok bool) {
	switch x := value.(type) {
	case string:
		return x, false, true
	case *string:
		if x == nil {
			return "", true, true
		}
		return *x, false, true
	}
	return "", value == nil, false
}

func Required(field string, value any) *FieldError {
	s, isNil, ok := stringValue(value)
	if isNil || (ok && strings.TrimSpace(s) == "") {
		return &FieldError{Field: field, Value: value, Message: "is required"}
	}
	return nil
}

// UUID accepts a canonical receipt id. Empty values are left to Required.
func UUID(field string, value any) *FieldError {
	s, _, ok := stringValue(value)
	if !ok {
		return &FieldError{Field: field, Value: value, Message: "must be a string"}
	}
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return &FieldError{Field: field, Value: value, Message: "must be a valid UUID"}
	}
	return nil
}

// MaxLength bounds a string by rune count.
func MaxLength(n int) Rule {
	return func(field string, value any) *FieldError {
		s, _, ok := stringValue(value)
		if ok && utf8.RuneCountInString(s) > n {
			return &FieldError{Field: field, Value: fmt.Sprintf("%d runes", utf8.RuneCountInString(s)), Message: fmt.Sprintf("must be at most %d characters", n)}
		}
		return nil
	}
}

// Date accepts strings in layout. Empty values pass.
func Date(layout string) Rule {
	return func(field string, value any) *FieldError {
		s, _, ok := stringValue(value)
		if !ok {
			return &FieldError{Field: field, Value: value, Message: "must be a string"}
		}
		if s == "" {
			return nil
		}
		if _, err := time.Parse(layout, s); err != nil {
			return &FieldError{Field: field, Value: value, Message: "must be a date in " + layout + " format"}
		}
		return nil
	}
}
