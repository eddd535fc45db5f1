// Package jsonschema validates JSON documents against JSON Schema definitions.
package jsonschema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// resourceName is the name under which inline schemas are registered.
const resourceName = "schema.json"

// ValidationErrors represents a collection of validation errors
type ValidationErrors []error

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, err := range ve {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Schema is a compiled schema that can be reused for many documents.
type Schema struct {
	compiled *jsonschema.Schema
}

// Compile compiles an inline JSON Schema document.
func Compile(schemaStr string) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceName, strings.NewReader(schemaStr)); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}

	compiled, err := compiler.Compile(resourceName)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompile is like Compile but panics on error. Use it for schemas that
// are part of the program.
func MustCompile(schemaStr string) *Schema {
	s, err := Compile(schemaStr)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateJSON validates raw JSON bytes. It returns nil when the document is valid.
func (s *Schema) ValidateJSON(data []byte) ValidationErrors {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return ValidationErrors{fmt.Errorf("invalid JSON: %w", err)}
	}
	return s.validate(doc)
}

// ValidateValue validates an already decoded value. The value is round-tripped
// through encoding/json so that documents decoded by other parsers (YAML)
// use JSON types.
func (s *Schema) ValidateValue(v interface{}) ValidationErrors {
	data, err := json.Marshal(v)
	if err != nil {
		return ValidationErrors{fmt.Errorf("document is not representable as JSON: %w", err)}
	}
	return s.ValidateJSON(data)
}

func (s *Schema) validate(doc interface{}) ValidationErrors {
	err := s.compiled.Validate(doc)
	if err == nil {
		return nil
	}

	if validationErr, ok := err.(*jsonschema.ValidationError); ok {
		return extractValidationErrors(validationErr)
	}
	return ValidationErrors{err}
}

// Validate validates a JSON string against a JSON Schema
// Returns true if the JSON is valid, false otherwise
// If there's an error in the schema or JSON parsing, it returns an error
func Validate(jsonStr, schemaStr string) (bool, error) {
	schema, err := Compile(schemaStr)
	if err != nil {
		return false, err
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return false, fmt.Errorf("invalid JSON: %w", err)
	}

	return schema.validate(doc) == nil, nil
}

// ValidateWithErrors validates a JSON string against a JSON Schema
// Returns true if the JSON is valid, false otherwise
// Also returns a list of validation errors if the JSON is invalid
func ValidateWithErrors(jsonStr, schemaStr string) (bool, ValidationErrors) {
	schema, err := Compile(schemaStr)
	if err != nil {
		return false, ValidationErrors{err}
	}

	if errs := schema.ValidateJSON([]byte(jsonStr)); len(errs) > 0 {
		return false, errs
	}
	return true, nil
}

// extractValidationErrors flattens a jsonschema.ValidationError tree into
// leaf messages prefixed with their instance location.
func extractValidationErrors(err *jsonschema.ValidationError) ValidationErrors {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		return ValidationErrors{fmt.Errorf("%s: %s", location, err.Message)}
	}

	var errors ValidationErrors
	for _, childErr := range err.Causes {
		errors = append(errors, extractValidationErrors(childErr)...)
	}
	return errors
}
