// Package validation wraps a process-wide go-playground/validator instance
// and turns its field errors into short, client-safe messages.
//
//	if err := validation.Struct(params); err != nil {
//	    return apperr.E(apperr.Validation, op, err.Error(), err)
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared validator. It caches struct metadata and is
// safe for concurrent use.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report fields by their json name so messages match the API surface.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			switch name {
			case "-":
				return ""
			case "":
				return f.Name
			}
			return name
		})
	})
	return validate
}

// FieldError is one failed rule.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e FieldError) Error() string {
	switch e.Tag {
	case "required":
		return e.Field + " is required"
	case "email":
		return e.Field + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field, e.Param)
	case "min":
		if e.Param == "1" {
			return e.Field + " must not be empty"
		}
		return fmt.Sprintf("%s must be at least %s characters", e.Field, e.Param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.Field, e.Param)
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field, e.Tag)
	}
}

// Errors is returned by Struct when at least one rule failed.
type Errors []FieldError

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Struct validates s against its `validate` tags. It returns nil or Errors;
// a non-struct argument yields the validator's own error.
func Struct(s any) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}
