package model

import (
	"go.yaml.in/yaml/v4"
)

type Schema struct {
	Ref         string     `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Title       string     `yaml:"title,omitempty" json:"title,omitempty"`
	Description string     `yaml:"description,omitempty" json:"description,omitempty"`
	Type        SchemaType `yaml:"type,omitempty" json:"type,omitempty"`
	Format      string     `yaml:"format,omitempty" json:"format,omitempty"`
	Nullable    bool       `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Deprecated  bool       `yaml:"deprecated,omitempty" json:"deprecated,omitempty"`
	ReadOnly    bool       `yaml:"readOnly,omitempty" json:"readOnly,omitempty"`
	WriteOnly   bool       `yaml:"writeOnly,omitempty" json:"writeOnly,omitempty"`
	Default     Literal    `yaml:"default,omitempty" json:"default,omitzero"`
	Example     Literal    `yaml:"example,omitempty" json:"example,omitzero"`

	// Object properties
	Properties *OrderedMap[*Schema] `yaml:"properties,omitempty" json:"properties,omitempty"`
	Required   []string             `yaml:"required,omitempty" json:"required,omitempty"`

	// Array items
	Items *Schema `yaml:"items,omitempty" json:"items,omitempty"`

	Enum []Literal `yaml:"enum,omitempty" json:"enum,omitempty"`

	// Composition
	AllOf []*Schema `yaml:"allOf,omitempty" json:"allOf,omitempty"`
	OneOf []*Schema `yaml:"oneOf,omitempty" json:"oneOf,omitempty"`
	AnyOf []*Schema `yaml:"anyOf,omitempty" json:"anyOf,omitempty"`

	// Constraints
	Minimum   *float64 `yaml:"minimum,omitempty" json:"minimum,omitempty"`
	Maximum   *float64 `yaml:"maximum,omitempty" json:"maximum,omitempty"`
	MinLength *int64   `yaml:"minLength,omitempty" json:"minLength,omitempty"`
	MaxLength *int64   `yaml:"maxLength,omitempty" json:"maxLength,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	MinItems  *int64   `yaml:"minItems,omitempty" json:"minItems,omitempty"`
	MaxItems  *int64   `yaml:"maxItems,omitempty" json:"maxItems,omitempty"`
}

// UnmarshalYAML also accepts the boolean schemas of OpenAPI 3.1, which
// decode to an empty schema.
func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!bool" {
		*s = Schema{}
		return nil
	}
	type plain Schema
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	markNull(node, map[string]*Literal{"example": &s.Example, "default": &s.Default})
	return nil
}

// IsRef reports whether the schema is a reference object.
func (s *Schema) IsRef() bool {
	return s != nil && s.Ref != ""
}

type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
	TypeNull    SchemaType = "null"
)

// UnmarshalYAML accepts both the 3.0 scalar form and the 3.1 list form
// ("type: [string, 'null']"). For lists the first non-null entry wins.
func (t *SchemaType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = SchemaType(node.Value)
	case yaml.SequenceNode:
		*t = ""
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				continue
			}
			if SchemaType(item.Value) == TypeNull && len(node.Content) > 1 {
				continue
			}
			*t = SchemaType(item.Value)
			break
		}
	}
	return nil
}
