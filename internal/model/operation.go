package model

import "go.yaml.in/yaml/v4"

type PathItem struct {
	Ref         string       `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Summary     string       `yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Servers     []Server     `yaml:"servers,omitempty" json:"servers,omitempty"`
	Parameters  []*Parameter `yaml:"parameters,omitempty" json:"parameters,omitempty"`

	Get     *Operation `yaml:"get,omitempty" json:"get,omitempty"`
	Put     *Operation `yaml:"put,omitempty" json:"put,omitempty"`
	Post    *Operation `yaml:"post,omitempty" json:"post,omitempty"`
	Delete  *Operation `yaml:"delete,omitempty" json:"delete,omitempty"`
	Options *Operation `yaml:"options,omitempty" json:"options,omitempty"`
	Head    *Operation `yaml:"head,omitempty" json:"head,omitempty"`
	Patch   *Operation `yaml:"patch,omitempty" json:"patch,omitempty"`
	Trace   *Operation `yaml:"trace,omitempty" json:"trace,omitempty"`
}

// Operation returns the operation declared for method, or nil.
func (p *PathItem) Operation(method Method) *Operation {
	if p == nil {
		return nil
	}
	switch method {
	case MethodGet:
		return p.Get
	case MethodPut:
		return p.Put
	case MethodPost:
		return p.Post
	case MethodDelete:
		return p.Delete
	case MethodOptions:
		return p.Options
	case MethodHead:
		return p.Head
	case MethodPatch:
		return p.Patch
	case MethodTrace:
		return p.Trace
	}
	return nil
}

type Operation struct {
	OperationID string                 `yaml:"operationId,omitempty" json:"operationId,omitempty"`
	Summary     string                 `yaml:"summary,omitempty" json:"summary,omitempty"`
	Description string                 `yaml:"description,omitempty" json:"description,omitempty"`
	Tags        []string               `yaml:"tags,omitempty" json:"tags,omitempty"`
	Parameters  []*Parameter           `yaml:"parameters,omitempty" json:"parameters,omitempty"`
	RequestBody *RequestBody           `yaml:"requestBody,omitempty" json:"requestBody,omitempty"`
	Responses   *OrderedMap[*Response] `yaml:"responses,omitempty" json:"responses,omitempty"`
	Deprecated  bool                   `yaml:"deprecated,omitempty" json:"deprecated,omitempty"`
	Security    []map[string][]string  `yaml:"security,omitempty" json:"security,omitempty"`
	Servers     []Server               `yaml:"servers,omitempty" json:"servers,omitempty"`
}

// UnmarshalYAML drops the x- extensions a Responses object may carry next to
// its status codes.
func (o *Operation) UnmarshalYAML(node *yaml.Node) error {
	type plain Operation
	return withoutExtensions(node, "responses").Decode((*plain)(o))
}

type Method string

const (
	MethodGet     Method = "GET"
	MethodPut     Method = "PUT"
	MethodPost    Method = "POST"
	MethodDelete  Method = "DELETE"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
	MethodPatch   Method = "PATCH"
	MethodTrace   Method = "TRACE"
)

// Methods lists every method a path item can declare, in display order.
var Methods = []Method{
	MethodGet,
	MethodPut,
	MethodPost,
	MethodDelete,
	MethodOptions,
	MethodHead,
	MethodPatch,
	MethodTrace,
}

type ParameterLocation string

const (
	LocationPath   ParameterLocation = "path"
	LocationQuery  ParameterLocation = "query"
	LocationHeader ParameterLocation = "header"
	LocationCookie ParameterLocation = "cookie"
)

type Parameter struct {
	Ref         string                  `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Name        string                  `yaml:"name,omitempty" json:"name,omitempty"`
	In          ParameterLocation       `yaml:"in,omitempty" json:"in,omitempty"`
	Description string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool                    `yaml:"required,omitempty" json:"required,omitempty"`
	Deprecated  bool                    `yaml:"deprecated,omitempty" json:"deprecated,omitempty"`
	Schema      *Schema                 `yaml:"schema,omitempty" json:"schema,omitempty"`
	Example     Literal                 `yaml:"example,omitempty" json:"example,omitzero"`
	Examples    *OrderedMap[*Example]   `yaml:"examples,omitempty" json:"examples,omitempty"`
	Content     *OrderedMap[*MediaType] `yaml:"content,omitempty" json:"content,omitempty"`
}

func (p *Parameter) UnmarshalYAML(node *yaml.Node) error {
	type plain Parameter
	if err := node.Decode((*plain)(p)); err != nil {
		return err
	}
	markNull(node, map[string]*Literal{"example": &p.Example})
	return nil
}

// IsRef reports whether the parameter is a reference object.
func (p *Parameter) IsRef() bool {
	return p != nil && p.Ref != ""
}

type RequestBody struct {
	Ref         string                  `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Description string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool                    `yaml:"required,omitempty" json:"required,omitempty"`
	Content     *OrderedMap[*MediaType] `yaml:"content,omitempty" json:"content,omitempty"`
}

type MediaType struct {
	Schema   *Schema               `yaml:"schema,omitempty" json:"schema,omitempty"`
	Example  Literal               `yaml:"example,omitempty" json:"example,omitzero"`
	Examples *OrderedMap[*Example] `yaml:"examples,omitempty" json:"examples,omitempty"`
}

func (m *MediaType) UnmarshalYAML(node *yaml.Node) error {
	type plain MediaType
	if err := node.Decode((*plain)(m)); err != nil {
		return err
	}
	markNull(node, map[string]*Literal{"example": &m.Example})
	return nil
}

type Example struct {
	Ref           string  `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Summary       string  `yaml:"summary,omitempty" json:"summary,omitempty"`
	Description   string  `yaml:"description,omitempty" json:"description,omitempty"`
	Value         Literal `yaml:"value,omitempty" json:"value,omitzero"`
	ExternalValue string  `yaml:"externalValue,omitempty" json:"externalValue,omitempty"`
}

func (e *Example) UnmarshalYAML(node *yaml.Node) error {
	type plain Example
	if err := node.Decode((*plain)(e)); err != nil {
		return err
	}
	markNull(node, map[string]*Literal{"value": &e.Value})
	return nil
}

type Response struct {
	Ref         string                  `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Description string                  `yaml:"description,omitempty" json:"description,omitempty"`
	Content     *OrderedMap[*MediaType] `yaml:"content,omitempty" json:"content,omitempty"`
	Headers     *OrderedMap[*Header]    `yaml:"headers,omitempty" json:"headers,omitempty"`
}

type Header struct {
	Ref         string  `yaml:"$ref,omitempty" json:"$ref,omitempty"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Required    bool    `yaml:"required,omitempty" json:"required,omitempty"`
	Schema      *Schema `yaml:"schema,omitempty" json:"schema,omitempty"`
}
