package model

import (
	"fmt"
	"iter"
	"slices"

	"github.com/pb33f/libopenapi/orderedmap"
	"go.yaml.in/yaml/v4"
)

// OrderedMap is a string-keyed mapping that remembers the order in which keys
// appear in the source document. The zero value and a nil pointer are both
// usable as empty maps.
type OrderedMap[V any] struct {
	items *orderedmap.Map[string, V]
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{items: orderedmap.New[string, V]()}
}

// Set inserts or replaces a value. Replacing keeps the original position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if m.items == nil {
		m.items = orderedmap.New[string, V]()
	}
	m.items.Set(key, value)
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	if m == nil || m.items == nil {
		var zero V
		return zero, false
	}
	return m.items.Get(key)
}

func (m *OrderedMap[V]) Len() int {
	if m == nil {
		return 0
	}
	return orderedmap.Len(m.items)
}

func (m *OrderedMap[V]) Keys() []string {
	if m.Len() == 0 {
		return nil
	}
	return slices.Collect(m.items.KeysFromOldest())
}

// First returns the entry that was inserted first.
func (m *OrderedMap[V]) First() (string, V, bool) {
	var zero V
	if m == nil {
		return "", zero, false
	}
	pair := m.items.First()
	if pair == nil {
		return "", zero, false
	}
	return pair.Key(), pair.Value(), true
}

// FromOldest iterates entries in insertion order.
func (m *OrderedMap[V]) FromOldest() iter.Seq2[string, V] {
	var items *orderedmap.Map[string, V]
	if m != nil {
		items = m.items
	}
	return items.FromOldest()
}

func (m *OrderedMap[V]) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	m.items = orderedmap.New[string, V]()
	for i := 0; i+1 < len(node.Content); i += 2 {
		var v V
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("decoding %q: %w", node.Content[i].Value, err)
		}
		m.items.Set(node.Content[i].Value, v)
	}
	return nil
}

func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("null"), nil
	}
	if m.items == nil {
		return []byte("{}"), nil
	}
	return m.items.MarshalJSON()
}
