// Package example synthesizes representative payloads from schemas and
// extracts literal examples declared on media types and parameters.
package example

import (
	"github.com/kolah/speclens/internal/model"
)

// MaxDepth bounds recursion. Deeper subtrees generate nil, which is what keeps
// self-referencing schemas finite.
const MaxDepth = 5

var formatSamples = map[string]string{
	"date":      "2024-01-01",
	"date-time": "2024-01-01T12:00:00Z",
	"email":     "user@example.com",
	"uri":       "https://example.com",
	"uuid":      "3fa85f64-5717-4562-b3fc-2c963f66afa6",
}

// Unresolvable stands in for the value of a schema whose reference points
// nowhere. It encodes as {"$unresolved": ref}.
type Unresolvable struct {
	Ref string `json:"$unresolved"`
}

// Generate returns a representative value for schema, resolving references
// against doc. A declared example wins over a default, which wins over a
// value synthesized from the type. Objects are *model.OrderedMap[any] in
// declaration order.
func Generate(schema *model.Schema, doc *model.Document, depth int) any {
	if depth > MaxDepth {
		return nil
	}
	s := model.ResolveSchema(schema, doc)
	if s == nil {
		if schema.IsRef() {
			return Unresolvable{Ref: schema.Ref}
		}
		return nil
	}

	if s.Example.Defined {
		return s.Example.Value
	}
	if s.Default.Defined {
		return s.Default.Value
	}

	switch s.Type {
	case model.TypeObject:
		obj := model.NewOrderedMap[any]()
		for name, prop := range s.Properties.FromOldest() {
			obj.Set(name, Generate(prop, doc, depth+1))
		}
		return obj
	case model.TypeArray:
		if s.Items == nil {
			return []any{}
		}
		return []any{Generate(s.Items, doc, depth+1)}
	case model.TypeString:
		if len(s.Enum) > 0 {
			return s.Enum[0].Value
		}
		if sample, ok := formatSamples[s.Format]; ok {
			return sample
		}
		return "string"
	case model.TypeInteger, model.TypeNumber:
		return 0
	case model.TypeBoolean:
		return true
	}
	return nil
}
