package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxQuestionLength bounds the question text accepted at the edges
const MaxQuestionLength = 2000

var (
	// validate is the singleton validator instance
	validate *validator.Validate
)

func init() {
	validate = validator.New()
	// Report fields by their wire name
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	validate.RegisterAlias("question", fmt.Sprintf("required,max=%d", MaxQuestionLength))
}

// InsightsQuery is the validated form of an insights request
type InsightsQuery struct {
	Question string `query:"q" json:"question" validate:"question"`
}

// ValidateStruct validates a struct using go-playground/validator
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return NewValidationError(validationErrors)
		}
		return err
	}
	return nil
}

// ValidationError wraps validation errors with structured details
type ValidationError struct {
	Message string
	Fields  map[string]string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError from validator.ValidationErrors.
// A single failure becomes the message itself.
func NewValidationError(errs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string)
	var first string
	for _, err := range errs {
		field := err.Field()
		var msg string

		switch err.ActualTag() {
		case "required":
			msg = fmt.Sprintf("%s is required", field)
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", field, err.Param())
		case "min":
			msg = fmt.Sprintf("%s must be at least %s characters", field, err.Param())
		default:
			msg = fmt.Sprintf("%s validation failed on '%s' tag", field, err.Tag())
		}
		fields[field] = msg
		if first == "" {
			first = msg
		}
	}

	message := "Validation failed"
	if len(fields) == 1 {
		message = first
	}
	return &ValidationError{
		Message: message,
		Fields:  fields,
	}
}

// GetValidationFields extracts field errors from a ValidationError
func GetValidationFields(err error) map[string]string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Fields
	}
	return nil
}
