// Package loader turns raw documents into models: parsing, structural
// validation, diagnostics, remote fetching and conditional refresh.
package loader

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kolah/speclens/internal/model"
	"github.com/pb33f/libopenapi"
	"go.yaml.in/yaml/v4"
)

type Result struct {
	Document *model.Document
	Version  string
	Warnings []string
	RawData  []byte
}

func LoadFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading spec file: %w", err)
	}
	return Parse(data)
}

// Parse accepts a JSON or YAML document. The top level must carry an
// "openapi" string starting with "3.", an "info" object and a "paths"
// object; anything else is rejected with a *ValidationError naming the field.
// Problems found by the full OpenAPI model builder are returned as warnings.
func Parse(data []byte) (*Result, error) {
	root, err := model.ParseNode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	version, err := validateStructure(root)
	if err != nil {
		return nil, err
	}

	doc, err := model.NewDocument(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return &Result{
		Document: doc,
		Version:  version,
		Warnings: diagnose(data),
		RawData:  data,
	}, nil
}

func validateStructure(root *yaml.Node) (string, error) {
	top := root
	if top.Kind == yaml.DocumentNode && len(top.Content) > 0 {
		top = top.Content[0]
	}
	if top.Kind != yaml.MappingNode {
		return "", &ValidationError{Message: "Document must be a JSON or YAML object"}
	}

	openapi := field(top, "openapi")
	if openapi == nil || openapi.Kind != yaml.ScalarNode || openapi.ShortTag() != "!!str" {
		return "", missingField("openapi")
	}
	if !strings.HasPrefix(openapi.Value, "3.") {
		return "", &ValidationError{
			Field:   "openapi",
			Message: fmt.Sprintf("Unsupported OpenAPI version %q (only 3.x is supported)", openapi.Value),
		}
	}

	for _, name := range []string{"info", "paths"} {
		if n := field(top, name); n == nil || n.Kind != yaml.MappingNode {
			return "", missingField(name)
		}
	}
	return openapi.Value, nil
}

func field(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			v := mapping.Content[i+1]
			for v.Kind == yaml.AliasNode && v.Alias != nil {
				v = v.Alias
			}
			return v
		}
	}
	return nil
}

// diagnose runs the document through libopenapi. Its findings never reject
// a document that passed structural validation.
func diagnose(data []byte) []string {
	doc, err := libopenapi.NewDocument(data)
	if err != nil {
		return []string{fmt.Sprintf("libopenapi: %v", err)}
	}
	if _, err := doc.BuildV3Model(); err != nil {
		return splitErrors(err)
	}
	return nil
}

func splitErrors(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			if e != nil {
				out = append(out, e.Error())
			}
		}
		return out
	}
	return []string{err.Error()}
}
