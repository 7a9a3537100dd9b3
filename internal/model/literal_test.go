package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireJSON compares the exact encoding, so key order matters.
func requireJSON(t *testing.T, expected string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	require.Equal(t, expected, string(data))
}

const literalSpec = `
openapi: 3.1.0
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    Ordered:
      type: object
      example:
        zeta: 1
        alpha: {b: true, a: [x, {z: 1, y: 2}]}
        200: ok
    NullExample:
      type: string
      example: null
      default: fallback
    Plain:
      type: string
    Any: true
    Never: false
    Holder:
      type: object
      properties:
        anything: true
      enum: [{k: 2, j: 1}]
`

func TestLiteralKeepsKeyOrder(t *testing.T) {
	doc := mustDecode(t, literalSpec)

	s := ResolveRef[Schema]("#/components/schemas/Ordered", doc)
	require.NotNil(t, s)
	require.True(t, s.Example.Defined)
	requireJSON(t, `{"zeta":1,"alpha":{"b":true,"a":["x",{"z":1,"y":2}]},"200":"ok"}`, s.Example)

	holder := ResolveRef[Schema]("#/components/schemas/Holder", doc)
	require.NotNil(t, holder)
	require.Len(t, holder.Enum, 1)
	requireJSON(t, `{"k":2,"j":1}`, holder.Enum[0])
}

func TestLiteralExplicitNull(t *testing.T) {
	doc := mustDecode(t, literalSpec)

	s := ResolveRef[Schema]("#/components/schemas/NullExample", doc)
	require.NotNil(t, s)
	require.True(t, s.Example.Defined)
	require.Nil(t, s.Example.Value)
	require.Equal(t, NewLiteral("fallback"), s.Default)

	plain := ResolveRef[Schema]("#/components/schemas/Plain", doc)
	require.NotNil(t, plain)
	require.False(t, plain.Example.Defined)
	require.False(t, plain.Default.Defined)
}

func TestLiteralOmittedFromJSONWhenUndefined(t *testing.T) {
	requireJSON(t, `{"type":"string"}`, &Schema{Type: TypeString})
	requireJSON(t, `{"type":"string","example":null}`, &Schema{Type: TypeString, Example: NewLiteral(nil)})
}

func TestBooleanSchemas(t *testing.T) {
	doc := mustDecode(t, literalSpec)

	for _, name := range []string{"Any", "Never"} {
		s := ResolveRef[Schema]("#/components/schemas/"+name, doc)
		require.NotNil(t, s, name)
		require.Equal(t, &Schema{}, s, name)
	}

	holder := ResolveRef[Schema]("#/components/schemas/Holder", doc)
	require.NotNil(t, holder)
	anything, ok := holder.Properties.Get("anything")
	require.True(t, ok)
	require.Equal(t, &Schema{}, anything)
}

func TestDecodeSkipsExtensions(t *testing.T) {
	doc := mustDecode(t, `
openapi: 3.0.3
info: {title: t, version: "1"}
x-logo: {url: logo.png}
paths:
  x-internal: true
  /a:
    get:
      x-owner: team
      responses:
        "200": {description: ok}
        x-note: hi
        default: {description: other}
`)
	require.Equal(t, []string{"/a"}, doc.Paths.Keys())

	item, ok := doc.Paths.Get("/a")
	require.True(t, ok)
	require.Equal(t, []string{"200", "default"}, item.Get.Responses.Keys())

	// the root node keeps the extensions for reference lookups
	v, ok := doc.Lookup("#/paths/x-internal")
	require.True(t, ok)
	require.Equal(t, true, v)
}

func TestParseLiteral(t *testing.T) {
	v, err := ParseLiteral([]byte(`{"b": 1, "a": [true, null]}`))
	require.NoError(t, err)
	requireJSON(t, `{"b":1,"a":[true,null]}`, v)

	_, err = ParseLiteral([]byte("{unterminated"))
	require.Error(t, err)
}
