package model

import (
	"strconv"
	"strings"

	"go.yaml.in/yaml/v4"
)

const refPrefix = "#/"

// LookupNode walks root along a local reference ("#/components/schemas/Pet")
// and returns the node it points at. It returns nil when the reference is not
// local, when a segment is missing, or when the walk reaches a scalar.
// Pointer escapes (~0, ~1) are not decoded.
func LookupNode(root *yaml.Node, ref string) *yaml.Node {
	if root == nil || !strings.HasPrefix(ref, refPrefix) {
		return nil
	}
	current := deref(root)
	if current != nil && current.Kind == yaml.DocumentNode {
		if len(current.Content) == 0 {
			return nil
		}
		current = deref(current.Content[0])
	}
	for _, segment := range strings.Split(strings.TrimPrefix(ref, refPrefix), "/") {
		current = child(current, segment)
		if current == nil {
			return nil
		}
	}
	return current
}

func child(node *yaml.Node, key string) *yaml.Node {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				return deref(node.Content[i+1])
			}
		}
	case yaml.SequenceNode:
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(node.Content) {
			return nil
		}
		return deref(node.Content[idx])
	}
	return nil
}

func deref(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode {
		node = node.Alias
	}
	return node
}

// Lookup resolves ref against the document and returns the generic value at
// that location (maps, slices and scalars). ok is false when unresolvable.
func (d *Document) Lookup(ref string) (value any, ok bool) {
	node := LookupNode(d.Root(), ref)
	if node == nil {
		return nil, false
	}
	if err := node.Decode(&value); err != nil {
		return nil, false
	}
	return value, true
}

// ResolveRef resolves ref and decodes the target into T. It returns nil when
// the reference is unresolvable or the target does not decode as T.
func ResolveRef[T any](ref string, doc *Document) *T {
	node := LookupNode(doc.Root(), ref)
	if node == nil {
		return nil
	}
	out := new(T)
	if err := node.Decode(out); err != nil {
		return nil
	}
	return out
}

// ResolveSchema returns the target of a reference schema, the schema itself
// when it is concrete, or nil.
func ResolveSchema(s *Schema, doc *Document) *Schema {
	if s == nil {
		return nil
	}
	if !s.IsRef() {
		return s
	}
	return ResolveRef[Schema](s.Ref, doc)
}

// ResolveParameter returns the target of a reference parameter, the parameter
// itself when concrete, or nil.
func ResolveParameter(p *Parameter, doc *Document) *Parameter {
	if p == nil {
		return nil
	}
	if !p.IsRef() {
		return p
	}
	return ResolveRef[Parameter](p.Ref, doc)
}

func ResolveRequestBody(rb *RequestBody, doc *Document) *RequestBody {
	if rb == nil {
		return nil
	}
	if rb.Ref == "" {
		return rb
	}
	return ResolveRef[RequestBody](rb.Ref, doc)
}

func ResolveResponse(r *Response, doc *Document) *Response {
	if r == nil {
		return nil
	}
	if r.Ref == "" {
		return r
	}
	return ResolveRef[Response](r.Ref, doc)
}

func ResolveExample(e *Example, doc *Document) *Example {
	if e == nil {
		return nil
	}
	if e.Ref == "" {
		return e
	}
	return ResolveRef[Example](e.Ref, doc)
}
