// Package validation checks request documents against the JSON schemas kept in
// the operation registry.
package validation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "voicecoach-gateway/internal/common/errors"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ValidateJSON validates a raw JSON document. Syntax errors are reported as a
// single error on field "body".
func ValidateJSON(schema map[string]interface{}, document []byte) (*ValidationResult, error) {
	if !json.Valid(document) {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "body",
				Message: "must be valid JSON",
				Code:    "INVALID_JSON",
			}},
		}, nil
	}
	return validate(schema, gojsonschema.NewBytesLoader(document))
}

// ValidateValue validates an already decoded Go value.
func ValidateValue(schema map[string]interface{}, value interface{}) (*ValidationResult, error) {
	return validate(schema, gojsonschema.NewGoLoader(value))
}

func validate(schema map[string]interface{}, document gojsonschema.JSONLoader) (*ValidationResult, error) {
	if len(schema) == 0 {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), document)
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return &ValidationResult{Valid: true}, nil
	}

	errs := make([]ValidationError, 0, len(result.Errors()))
	seen := make(map[string]bool)
	for _, desc := range result.Errors() {
		ve := ValidationError{
			Field:   fieldName(desc),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		}
		key := ve.Field + "|" + ve.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		errs = append(errs, ve)
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })

	return &ValidationResult{Valid: false, Errors: errs}, nil
}

// fieldName turns gojsonschema's context path into a dotted field name.
// Missing required properties are reported against the property itself.
func fieldName(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok && prop != "" {
			if field == "(root)" || field == "" {
				return prop
			}
			return field + "." + prop
		}
	}
	if field == "(root)" || field == "" {
		return "body"
	}
	return field
}

// FieldErrors converts the result into the field list carried by a
// VALIDATION_ERROR response.
func (r *ValidationResult) FieldErrors() []apperrors.FieldError {
	if r == nil {
		return nil
	}
	out := make([]apperrors.FieldError, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = apperrors.FieldError{Field: e.Field, Message: e.Message}
	}
	return out
}

// AsError returns nil for a valid result and a VALIDATION_ERROR otherwise.
func (r *ValidationResult) AsError() error {
	if r == nil || r.Valid {
		return nil
	}
	return apperrors.NewValidationError("", r.FieldErrors()...)
}
