package model

import (
	"errors"
	"fmt"
	"strings"

	"go.yaml.in/yaml/v4"
)

// Document is a loaded OpenAPI 3.x document. It is treated as an immutable
// snapshot: reloading produces a new Document rather than mutating this one.
type Document struct {
	OpenAPI    string                 `yaml:"openapi" json:"openapi"`
	Info       *Info                  `yaml:"info" json:"info"`
	Servers    []Server               `yaml:"servers,omitempty" json:"servers,omitempty"`
	Paths      *OrderedMap[*PathItem] `yaml:"paths" json:"paths"`
	Components *Components            `yaml:"components,omitempty" json:"components,omitempty"`
	Tags       []Tag                  `yaml:"tags,omitempty" json:"tags,omitempty"`

	root *yaml.Node
}

type Info struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Version     string `yaml:"version" json:"version"`
}

type Server struct {
	URL         string                       `yaml:"url" json:"url"`
	Description string                       `yaml:"description,omitempty" json:"description,omitempty"`
	Variables   *OrderedMap[*ServerVariable] `yaml:"variables,omitempty" json:"variables,omitempty"`
}

type ServerVariable struct {
	Default     string   `yaml:"default" json:"default"`
	Enum        []string `yaml:"enum,omitempty" json:"enum,omitempty"`
	Description string   `yaml:"description,omitempty" json:"description,omitempty"`
}

// ResolvedURL substitutes every {variable} of the URL template with its
// default value. Undeclared variables are left as is.
func (s Server) ResolvedURL() string {
	out := s.URL
	for name, v := range s.Variables.FromOldest() {
		if v == nil {
			continue
		}
		out = strings.ReplaceAll(out, "{"+name+"}", v.Default)
	}
	return out
}

type Tag struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

type Components struct {
	Schemas         *OrderedMap[*Schema]         `yaml:"schemas,omitempty" json:"schemas,omitempty"`
	Parameters      *OrderedMap[*Parameter]      `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	RequestBodies   *OrderedMap[*RequestBody]    `yaml:"requestBodies,omitempty" json:"requestBodies,omitempty"`
	Responses       *OrderedMap[*Response]       `yaml:"responses,omitempty" json:"responses,omitempty"`
	Examples        *OrderedMap[*Example]        `yaml:"examples,omitempty" json:"examples,omitempty"`
	SecuritySchemes *OrderedMap[*SecurityScheme] `yaml:"securitySchemes,omitempty" json:"securitySchemes,omitempty"`
}

type SecurityScheme struct {
	Type         string `yaml:"type" json:"type"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	In           string `yaml:"in,omitempty" json:"in,omitempty"`
	Scheme       string `yaml:"scheme,omitempty" json:"scheme,omitempty"`
	BearerFormat string `yaml:"bearerFormat,omitempty" json:"bearerFormat,omitempty"`
}

// ParseNode parses JSON or YAML bytes into a document node.
func ParseNode(data []byte) (*yaml.Node, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing document: %w", err)
	}
	if node.Kind == 0 || (node.Kind == yaml.DocumentNode && len(node.Content) == 0) {
		return nil, errors.New("parsing document: empty input")
	}
	return &node, nil
}

// NewDocument decodes the typed model from a parsed node and keeps the node
// as the root for reference resolution.
func NewDocument(root *yaml.Node) (*Document, error) {
	var doc Document
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	doc.root = root
	return &doc, nil
}

// Decode parses and decodes in one step without structural validation.
func Decode(data []byte) (*Document, error) {
	node, err := ParseNode(data)
	if err != nil {
		return nil, err
	}
	return NewDocument(node)
}

// UnmarshalYAML drops the x- extensions a Paths object may carry next to its
// path items.
func (d *Document) UnmarshalYAML(node *yaml.Node) error {
	type plain Document
	return withoutExtensions(node, "paths").Decode((*plain)(d))
}

// Root returns the underlying node of the document.
func (d *Document) Root() *yaml.Node {
	if d == nil {
		return nil
	}
	return d.root
}

// Title returns info.title or an empty string.
func (d *Document) Title() string {
	if d == nil || d.Info == nil {
		return ""
	}
	return d.Info.Title
}
