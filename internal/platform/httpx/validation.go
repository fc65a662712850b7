package httpx

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidation converts validator errors into a coded 400. A missing required field
// wins over other failures. Errors that are not validation errors pass through.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return BadRequest(CodeMissingRequiredField, fmt.Sprintf("%s is required", fieldName(fe)))
		}
	}
	fe := fieldErrs[0]
	return BadRequest(CodeInvalidInput, fmt.Sprintf("%s failed %s validation", fieldName(fe), fe.Tag()))
}

func fieldName(fe validator.FieldError) string {
	name := fe.Field()
	if name == "" {
		return "field"
	}
	return strings.ToLower(name[:1]) + name[1:]
}
