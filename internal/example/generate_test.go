package example

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/kolah/speclens/internal/model"
	"github.com/stretchr/testify/require"
)

const schemasSpec = `
openapi: 3.0.3
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Node:
      type: object
      properties:
        name: {type: string}
        child: {$ref: "#/components/schemas/Node"}
    Pet:
      type: object
      properties:
        id: {type: integer, format: int64}
        name: {type: string, example: Rex}
        status: {type: string, enum: [available, sold]}
        tags:
          type: array
          items: {type: string}
        born: {type: string, format: date}
        owner: {$ref: "#/components/schemas/Owner"}
        vaccinated: {type: boolean}
        weight: {type: number, default: 4.5}
    Owner:
      type: object
      properties:
        email: {type: string, format: email}
        homepage: {type: string, format: uri}
    Broken:
      type: object
      properties:
        ghost: {$ref: "#/components/schemas/DoesNotExist"}
    WithExample:
      type: object
      example: {id: 7, alias: seven}
      properties:
        id: {type: integer}
    NullExample:
      type: string
      example: null
      default: unused
    Ordered:
      type: object
      properties:
        zeta: {type: string}
        alpha: {type: integer}
        mid: {type: object}
`

func load(t *testing.T, src string) *model.Document {
	t.Helper()
	doc, err := model.Decode([]byte(src))
	require.NoError(t, err)
	return doc
}

func ref(name string) *model.Schema {
	return &model.Schema{Ref: "#/components/schemas/" + name}
}

// requireJSON compares the exact encoding, so key order matters.
func requireJSON(t *testing.T, expected string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, expected, string(data))
}

func object(t *testing.T, v any) *model.OrderedMap[any] {
	t.Helper()
	obj, ok := v.(*model.OrderedMap[any])
	require.True(t, ok, "got %T", v)
	return obj
}

func TestGenerateByType(t *testing.T) {
	tests := []struct {
		name     string
		schema   *model.Schema
		expected any
	}{
		{"nil schema", nil, nil},
		{"string", &model.Schema{Type: model.TypeString}, "string"},
		{"date", &model.Schema{Type: model.TypeString, Format: "date"}, "2024-01-01"},
		{"date-time", &model.Schema{Type: model.TypeString, Format: "date-time"}, "2024-01-01T12:00:00Z"},
		{"email", &model.Schema{Type: model.TypeString, Format: "email"}, "user@example.com"},
		{"uri", &model.Schema{Type: model.TypeString, Format: "uri"}, "https://example.com"},
		{"uuid", &model.Schema{Type: model.TypeString, Format: "uuid"}, "3fa85f64-5717-4562-b3fc-2c963f66afa6"},
		{"unknown format", &model.Schema{Type: model.TypeString, Format: "hostname"}, "string"},
		{"enum wins over format", &model.Schema{Type: model.TypeString, Format: "uuid", Enum: []model.Literal{model.NewLiteral("a"), model.NewLiteral("b")}}, "a"},
		{"integer", &model.Schema{Type: model.TypeInteger}, 0},
		{"number", &model.Schema{Type: model.TypeNumber}, 0},
		{"boolean", &model.Schema{Type: model.TypeBoolean}, true},
		{"array without items", &model.Schema{Type: model.TypeArray}, []any{}},
		{"array of integers", &model.Schema{Type: model.TypeArray, Items: &model.Schema{Type: model.TypeInteger}}, []any{0}},
		{"no type", &model.Schema{}, nil},
		{"unknown type", &model.Schema{Type: "file"}, nil},
		{"example wins", &model.Schema{Type: model.TypeString, Example: model.NewLiteral("hello"), Default: model.NewLiteral("d")}, "hello"},
		{"default when no example", &model.Schema{Type: model.TypeInteger, Default: model.NewLiteral(42)}, 42},
		{"falsy example is still an example", &model.Schema{Type: model.TypeBoolean, Example: model.NewLiteral(false)}, false},
		{"null example is still an example", &model.Schema{Type: model.TypeString, Example: model.NewLiteral(nil), Default: model.NewLiteral("d")}, nil},
		{"dangling ref without document", &model.Schema{Ref: "#/components/schemas/X"}, Unresolvable{Ref: "#/components/schemas/X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, Generate(tt.schema, nil, 0))
		})
	}
}

func TestGenerateObject(t *testing.T) {
	doc := load(t, schemasSpec)

	got := Generate(ref("Pet"), doc, 0)
	requireJSON(t, `{"id":0,"name":"Rex","status":"available","tags":["string"],"born":"2024-01-01",`+
		`"owner":{"email":"user@example.com","homepage":"https://example.com"},"vaccinated":true,"weight":4.5}`, got)
}

func TestGenerateKeepsPropertyOrder(t *testing.T) {
	doc := load(t, schemasSpec)

	got := object(t, Generate(ref("Ordered"), doc, 0))
	require.Equal(t, []string{"zeta", "alpha", "mid"}, got.Keys())
	requireJSON(t, `{"zeta":"string","alpha":0,"mid":{}}`, got)
}

func TestGenerateSchemaExampleVerbatim(t *testing.T) {
	doc := load(t, schemasSpec)
	requireJSON(t, `{"id":7,"alias":"seven"}`, Generate(ref("WithExample"), doc, 0))
	require.Nil(t, Generate(ref("NullExample"), doc, 0))
}

func TestGenerateUnresolvableRef(t *testing.T) {
	doc := load(t, schemasSpec)

	require.Equal(t, Unresolvable{Ref: "#/components/schemas/DoesNotExist"}, Generate(ref("DoesNotExist"), doc, 0))
	requireJSON(t, `{"ghost":{"$unresolved":"#/components/schemas/DoesNotExist"}}`, Generate(ref("Broken"), doc, 0))
}

func TestGenerateSelfReferenceTerminates(t *testing.T) {
	doc := load(t, schemasSpec)

	got := Generate(ref("Node"), doc, 0)

	depth := 0
	current := got
	for current != nil {
		obj := object(t, current)
		name, _ := obj.Get("name")
		require.Equal(t, "string", name)
		current, _ = obj.Get("child")
		depth++
	}
	// depths 0..MaxDepth are expanded, the next level is nil
	require.Equal(t, MaxDepth+1, depth)
}

func TestGenerateDepthBeyondMax(t *testing.T) {
	require.Nil(t, Generate(&model.Schema{Type: model.TypeString}, nil, MaxDepth+1))
	require.Equal(t, "string", Generate(&model.Schema{Type: model.TypeString}, nil, MaxDepth))
}

func TestGenerateLongChainTerminates(t *testing.T) {
	var b strings.Builder
	b.WriteString("openapi: 3.0.3\ninfo: {title: t, version: '1'}\npaths: {}\ncomponents:\n  schemas:\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "    L%d:\n      type: object\n      properties:\n        next: {$ref: '#/components/schemas/L%d'}\n", i, i+1)
	}
	b.WriteString("    L10:\n      type: object\n      properties:\n        next: {$ref: '#/components/schemas/L0'}\n")
	doc := load(t, b.String())

	got := Generate(ref("L0"), doc, 0)

	levels := 0
	for got != nil {
		got, _ = object(t, got).Get("next")
		levels++
	}
	require.Equal(t, MaxDepth+1, levels)
}

func TestGenerateNonStringKeys(t *testing.T) {
	doc := load(t, `
openapi: 3.0.3
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Codes:
      type: object
      example:
        200: ok
        404: [missing]
`)
	requireJSON(t, `{"200":"ok","404":["missing"]}`, Generate(ref("Codes"), doc, 0))
}
