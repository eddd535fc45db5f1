package jsonschema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const personSchema = `{
	"type": "object",
	"properties": {
		"name": { "type": "string" },
		"age": { "type": "integer", "minimum": 0 }
	},
	"required": ["name"],
	"additionalProperties": false
}`

func TestValidate(t *testing.T) {
	tests := []struct {
		name          string
		schema        string
		json          string
		expectedValid bool
		expectedError bool
	}{
		{
			name:          "Valid simple object",
			schema:        personSchema,
			json:          `{"name": "John Doe", "age": 30}`,
			expectedValid: true,
		},
		{
			name:          "Invalid - missing required property",
			schema:        personSchema,
			json:          `{"age": 30}`,
			expectedValid: false,
		},
		{
			name:          "Invalid - wrong type",
			schema:        personSchema,
			json:          `{"name": 42}`,
			expectedValid: false,
		},
		{
			name:          "Invalid JSON",
			schema:        personSchema,
			json:          `{"name": "John"`,
			expectedError: true,
		},
		{
			name:          "Invalid schema",
			schema:        `{"type": 12}`,
			json:          `{}`,
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, err := Validate(tt.json, tt.schema)
			if tt.expectedError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedValid, valid)
		})
	}
}

func TestValidateWithErrors(t *testing.T) {
	valid, errs := ValidateWithErrors(`{"name": "ok", "age": -1, "extra": true}`, personSchema)
	assert.False(t, valid)
	require.Len(t, errs, 2)

	joined := errs.Error()
	assert.Contains(t, joined, "/age")
	assert.True(t, strings.Contains(joined, "extra"), "expected additionalProperties error, got %q", joined)

	valid, errs = ValidateWithErrors(`{"name": "ok"}`, personSchema)
	assert.True(t, valid)
	assert.Empty(t, errs)
}

func TestSchema_ValidateValue(t *testing.T) {
	schema := MustCompile(personSchema)

	// YAML decoders produce int rather than float64 values.
	assert.Empty(t, schema.ValidateValue(map[string]interface{}{"name": "a", "age": 3}))

	errs := schema.ValidateValue(map[string]interface{}{"age": 3})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "name")
}

func TestMustCompile_PanicsOnInvalidSchema(t *testing.T) {
	assert.Panics(t, func() {
		MustCompile(`{"type": `)
	})
}

func TestValidationErrors_Error(t *testing.T) {
	assert.Equal(t, "", ValidationErrors(nil).Error())
}
