package workspace

import (
	"github.com/kolah/speclens/internal/endpoint"
	"github.com/kolah/speclens/internal/example"
	"github.com/kolah/speclens/internal/model"
)

// ParameterDetail describes one merged parameter. A parameter whose reference
// cannot be resolved carries only Ref and Error.
type ParameterDetail struct {
	Name        string                  `json:"name"`
	In          model.ParameterLocation `json:"in"`
	Required    bool                    `json:"required,omitempty"`
	Deprecated  bool                    `json:"deprecated,omitempty"`
	Description string                  `json:"description,omitempty"`
	Example     any                     `json:"example,omitempty"`
	Ref         string                  `json:"$ref,omitempty"`
	Error       string                  `json:"error,omitempty"`
}

// Detail is everything needed to render and try one endpoint.
type Detail struct {
	Method      model.Method      `json:"method"`
	Path        string            `json:"path"`
	Key         string            `json:"key"`
	OperationID string            `json:"operationId,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Description string            `json:"description,omitempty"`
	Tags        []string          `json:"tags,omitempty"`
	Deprecated  bool              `json:"deprecated,omitempty"`
	Servers     []string          `json:"servers"`
	Parameters  []ParameterDetail `json:"parameters"`
	RequestBody *example.Body     `json:"requestBody,omitempty"`
	Responses   []example.Body    `json:"responses"`
}

// Describe merges the parameters of ep and attaches an example to every
// parameter, the request body and each declared response.
func Describe(doc *model.Document, ep endpoint.Endpoint) Detail {
	d := Detail{
		Method:     ep.Method,
		Path:       ep.Path,
		Key:        ep.Key(),
		Servers:    endpoint.Servers(doc, ep),
		Parameters: []ParameterDetail{},
		Responses:  []example.Body{},
	}
	if op := ep.Operation; op != nil {
		d.OperationID = op.OperationID
		d.Summary = op.Summary
		d.Description = op.Description
		d.Tags = op.Tags
		d.Deprecated = op.Deprecated
	}

	for _, p := range endpoint.ResolvedParameters(ep, doc) {
		if p.IsRef() {
			d.Parameters = append(d.Parameters, ParameterDetail{Ref: p.Ref, Error: example.UnresolvableError(p.Ref)})
			continue
		}
		d.Parameters = append(d.Parameters, ParameterDetail{
			Name:        p.Name,
			In:          p.In,
			Required:    p.Required || p.In == model.LocationPath,
			Deprecated:  p.Deprecated,
			Description: p.Description,
			Example:     example.ForParameter(p, doc),
		})
	}

	d.RequestBody = example.ForRequestBody(ep.Operation, doc)
	if responses := example.ForResponses(ep.Operation, doc); responses != nil {
		d.Responses = responses
	}
	return d
}
