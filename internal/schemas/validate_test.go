package schemas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSchema(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const testSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["name", "count"],
	"properties": {
		"name": {"type": "string"},
		"count": {"type": "integer"}
	}
}`

func TestValidateDocument_Valid(t *testing.T) {
	schemaPath := writeSchema(t, testSchema)

	doc := map[string]any{"name": "alpha", "count": 3}
	err := ValidateDocument(schemaPath, doc)
	assert.NoError(t, err)
}

func TestValidateDocument_MissingField(t *testing.T) {
	schemaPath := writeSchema(t, testSchema)

	doc := map[string]any{"name": "alpha"}
	err := ValidateDocument(schemaPath, doc)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Greater(t, len(validationErr.Errors), 0)
}

func TestValidateDocument_WrongType(t *testing.T) {
	schemaPath := writeSchema(t, testSchema)

	doc := map[string]any{"name": "alpha", "count": "three"}
	err := ValidateDocument(schemaPath, doc)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "count", validationErr.Errors[0].Field)
}

func TestValidateDocument_NonExistentSchema(t *testing.T) {
	doc := map[string]any{"name": "alpha", "count": 3}
	err := ValidateDocument("testdata/nonexistent_schema.json", doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateDocument_MalformedSchema(t *testing.T) {
	schemaPath := writeSchema(t, `{"type": "object", "properties": {`)

	doc := map[string]any{"name": "alpha"}
	err := ValidateDocument(schemaPath, doc)
	require.Error(t, err)

	_, ok := err.(*SchemaLoadError)
	assert.True(t, ok, "error should be SchemaLoadError type")
}

func TestResolveSchemaPath_NotFound(t *testing.T) {
	resolved := ResolveSchemaPath("definitely_not_here.schema.json")
	assert.Empty(t, resolved)
}
