package example

import (
	"encoding/json"
	"fmt"

	"github.com/kolah/speclens/internal/model"
)

const jsonMediaType = "application/json"

// FromMediaType returns the literal example declared on a media type: the
// singular example first, else the first non-reference entry of examples.
// String values holding JSON are decoded.
func FromMediaType(mt *model.MediaType) (any, bool) {
	if mt == nil {
		return nil, false
	}
	if mt.Example.Defined {
		return mt.Example.Value, true
	}
	return firstExample(mt.Examples)
}

// FromParameter returns the literal example declared on a parameter, falling
// back to the parameter's content media types.
func FromParameter(p *model.Parameter) (any, bool) {
	if p == nil {
		return nil, false
	}
	if p.Example.Defined {
		return p.Example.Value, true
	}
	if v, ok := firstExample(p.Examples); ok {
		return v, true
	}
	_, mt := PickMediaType(p.Content)
	return FromMediaType(mt)
}

func firstExample(examples *model.OrderedMap[*model.Example]) (any, bool) {
	for _, ex := range examples.FromOldest() {
		if ex == nil || ex.Ref != "" {
			continue
		}
		return decodeValue(ex.Value.Value), true
	}
	return nil, false
}

func decodeValue(v any) any {
	s, ok := v.(string)
	if !ok || !json.Valid([]byte(s)) {
		return v
	}
	parsed, err := model.ParseLiteral([]byte(s))
	if err != nil {
		return s
	}
	return parsed
}

// PickMediaType prefers application/json, else the first declared entry.
func PickMediaType(content *model.OrderedMap[*model.MediaType]) (string, *model.MediaType) {
	if mt, ok := content.Get(jsonMediaType); ok {
		return jsonMediaType, mt
	}
	name, mt, ok := content.First()
	if !ok {
		return "", nil
	}
	return name, mt
}

// ForMediaType prefers a literal example and falls back to generating one
// from the media type schema.
func ForMediaType(mt *model.MediaType, doc *model.Document) any {
	if v, ok := FromMediaType(mt); ok {
		return v
	}
	if mt == nil || mt.Schema == nil {
		return nil
	}
	return Generate(mt.Schema, doc, 0)
}

// ForParameter prefers a literal example and falls back to the schema.
func ForParameter(p *model.Parameter, doc *model.Document) any {
	if v, ok := FromParameter(p); ok {
		return v
	}
	if p == nil || p.Schema == nil {
		return nil
	}
	return Generate(p.Schema, doc, 0)
}

// Body is an example payload for a request or response. Error is set instead
// of a value when the body itself is a dangling reference.
type Body struct {
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Value       any    `json:"value"`
	Error       string `json:"error,omitempty"`
}

// UnresolvableError is the error text attached to dangling references.
func UnresolvableError(ref string) string {
	return fmt.Sprintf("unresolvable reference %q", ref)
}

// ForRequestBody builds the example request body of op, or nil when the
// operation declares none.
func ForRequestBody(op *model.Operation, doc *model.Document) *Body {
	if op == nil || op.RequestBody == nil {
		return nil
	}
	rb := model.ResolveRequestBody(op.RequestBody, doc)
	if rb == nil {
		return &Body{Error: UnresolvableError(op.RequestBody.Ref)}
	}
	ct, mt := PickMediaType(rb.Content)
	if mt == nil {
		return nil
	}
	return &Body{
		Description: rb.Description,
		ContentType: ct,
		Value:       ForMediaType(mt, doc),
	}
}

// ForResponses builds one example per declared status code.
func ForResponses(op *model.Operation, doc *model.Document) []Body {
	if op == nil {
		return nil
	}
	var out []Body
	for status, resp := range op.Responses.FromOldest() {
		r := model.ResolveResponse(resp, doc)
		if r == nil {
			b := Body{Status: status}
			if resp != nil {
				b.Error = UnresolvableError(resp.Ref)
			}
			out = append(out, b)
			continue
		}
		b := Body{Status: status, Description: r.Description}
		if ct, mt := PickMediaType(r.Content); mt != nil {
			b.ContentType = ct
			b.Value = ForMediaType(mt, doc)
		}
		out = append(out, b)
	}
	return out
}
