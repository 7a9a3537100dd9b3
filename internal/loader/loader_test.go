package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalSpec = `{
  "openapi": "3.0.3",
  "info": {"title": "Petstore", "version": "1.0"},
  "paths": {
    "/pets": {
      "get": {"responses": {"200": {"description": "ok"}}}
    }
  }
}`

func TestParse(t *testing.T) {
	result, err := Parse([]byte(minimalSpec))
	require.NoError(t, err)

	assert.Equal(t, "3.0.3", result.Version)
	assert.Equal(t, "Petstore", result.Document.Title())
	assert.Equal(t, 1, result.Document.Paths.Len())
	assert.Equal(t, []byte(minimalSpec), result.RawData)
}

func TestParseYAML(t *testing.T) {
	result, err := Parse([]byte(`
openapi: "3.1.0"
info: {title: YAML, version: "1"}
paths: {}
`))
	require.NoError(t, err)
	assert.Equal(t, "3.1.0", result.Version)
	assert.Equal(t, 0, result.Document.Paths.Len())
}

func TestParseAcceptsExtensionsAndBooleanSchemas(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "extension in paths",
			input: `{"openapi": "3.0.3", "info": {"title": "x", "version": "1"}, "paths": {"x-internal": true, "/a": {"get": {"responses": {"200": {"description": "ok"}}}}}}`,
		},
		{
			name:  "extension in responses",
			input: `{"openapi": "3.0.3", "info": {"title": "x", "version": "1"}, "paths": {"/a": {"get": {"responses": {"200": {"description": "ok"}, "x-note": "hi"}}}}}`,
		},
		{
			name: "boolean schemas",
			input: `{"openapi": "3.1.0", "info": {"title": "x", "version": "1"}, "paths": {"/a": {"get": {"responses": {"200": {"description": "ok"}}}}},
			  "components": {"schemas": {"Any": true, "Obj": {"type": "object", "properties": {"free": true}, "additionalProperties": false}}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Parse([]byte(tt.input))
			require.NoError(t, err)
			require.Equal(t, []string{"/a"}, result.Document.Paths.Keys())

			item, _ := result.Document.Paths.Get("/a")
			require.Equal(t, []string{"200"}, item.Get.Responses.Keys())
		})
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		field   string
		message string
	}{
		{
			name:    "missing openapi",
			input:   `{"info": {"title": "x", "version": "1"}, "paths": {}}`,
			field:   "openapi",
			message: `Missing or invalid "openapi" field`,
		},
		{
			name:    "numeric openapi",
			input:   `{"openapi": 3.1, "info": {"title": "x", "version": "1"}, "paths": {}}`,
			field:   "openapi",
			message: `Missing or invalid "openapi" field`,
		},
		{
			name:    "swagger 2",
			input:   `{"openapi": "2.0", "info": {"title": "x", "version": "1"}, "paths": {}}`,
			field:   "openapi",
			message: `Unsupported OpenAPI version "2.0" (only 3.x is supported)`,
		},
		{
			name:    "null info",
			input:   `{"openapi": "3.0.0", "info": null, "paths": {}}`,
			field:   "info",
			message: `Missing or invalid "info" field`,
		},
		{
			name:    "missing paths",
			input:   `{"openapi": "3.0.0", "info": {"title": "x", "version": "1"}}`,
			field:   "paths",
			message: `Missing or invalid "paths" field`,
		},
		{
			name:    "paths is a list",
			input:   `{"openapi": "3.0.0", "info": {"title": "x", "version": "1"}, "paths": []}`,
			field:   "paths",
			message: `Missing or invalid "paths" field`,
		},
		{
			name:    "not an object",
			input:   `["openapi"]`,
			message: "Document must be a JSON or YAML object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestParseSyntaxError(t *testing.T) {
	_, err := Parse([]byte(`{"openapi": `))
	require.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Parse(nil)
	require.ErrorIs(t, err, ErrInvalidDocument)
}

func TestSplitErrors(t *testing.T) {
	joined := errors.Join(errors.New("first"), nil, errors.New("second"))
	assert.Equal(t, []string{"first", "second"}, splitErrors(joined))
	assert.Equal(t, []string{"single"}, splitErrors(errors.New("single")))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openapi.json")
	require.NoError(t, os.WriteFile(path, []byte(minimalSpec), 0o600))

	result, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Petstore", result.Document.Title())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
