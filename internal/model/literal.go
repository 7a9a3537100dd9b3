package model

import (
	"encoding/json"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Literal is a free-form value taken from the document, such as an example or
// a default. Mappings decode into *OrderedMap[any] so key order survives, and
// Defined tells an explicit null apart from an absent key.
type Literal struct {
	Value   any
	Defined bool
}

// NewLiteral returns a defined literal holding v.
func NewLiteral(v any) Literal {
	return Literal{Value: v, Defined: true}
}

func (l *Literal) UnmarshalYAML(node *yaml.Node) error {
	*l = NewLiteral(literalValue(node))
	return nil
}

func (l Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Value)
}

func (l Literal) IsZero() bool {
	return !l.Defined
}

// ParseLiteral parses JSON or YAML text into the same shapes a Literal holds.
func ParseLiteral(data []byte) (any, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	return literalValue(&node), nil
}

func literalValue(node *yaml.Node) any {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil
		}
		return literalValue(node.Content[0])
	case yaml.AliasNode:
		if node.Alias == nil {
			return nil
		}
		return literalValue(node.Alias)
	case yaml.MappingNode:
		m := NewOrderedMap[any]()
		for i := 0; i+1 < len(node.Content); i += 2 {
			m.Set(node.Content[i].Value, literalValue(node.Content[i+1]))
		}
		return m
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			out = append(out, literalValue(item))
		}
		return out
	}
	var v any
	if err := node.Decode(&v); err != nil {
		return node.Value
	}
	return v
}

// markNull flags the named literals whose key is present with a null value.
// The decoder never hands null nodes to UnmarshalYAML, so the parent object
// has to notice them.
func markNull(node *yaml.Node, fields map[string]*Literal) {
	if node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		lit, ok := fields[node.Content[i].Value]
		if ok && node.Content[i+1].ShortTag() == "!!null" {
			*lit = NewLiteral(nil)
		}
	}
}

func isExtension(key string) bool {
	return strings.HasPrefix(key, "x-")
}

// withoutExtensions returns node with the x- entries of the mapping under key
// removed. node itself is left untouched; a modified shallow copy is returned.
func withoutExtensions(node *yaml.Node, key string) *yaml.Node {
	if node.Kind != yaml.MappingNode {
		return node
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value != key {
			continue
		}
		child := node.Content[i+1]
		if child.Kind != yaml.MappingNode {
			return node
		}
		trimmed := *child
		trimmed.Content = make([]*yaml.Node, 0, len(child.Content))
		for j := 0; j+1 < len(child.Content); j += 2 {
			if isExtension(child.Content[j].Value) {
				continue
			}
			trimmed.Content = append(trimmed.Content, child.Content[j], child.Content[j+1])
		}
		out := *node
		out.Content = append([]*yaml.Node(nil), node.Content...)
		out.Content[i+1] = &trimmed
		return &out
	}
	return node
}
